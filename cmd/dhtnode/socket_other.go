// +build !linux,!darwin,!freebsd

package main

import "syscall"

// reuseAddrControl is a no-op outside the platforms SO_REUSEPORT is defined
// for; the socket is still bound, just without the fast-restart behavior.
func reuseAddrControl(network, address string, c syscall.RawConn) error {
	return nil
}
