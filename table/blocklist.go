package table

import (
	"bufio"
	"net"
	"os"
	"sync"

	"github.com/rjeczalik/notify"

	"github.com/ethereumproject/dht/logger"
)

// Blocklist is a set of banned IP addresses considerContact consults before
// adding a contact, reloaded live from a text file (one address per line)
// so an operator can ban a misbehaving peer without restarting the node.
type Blocklist struct {
	mu   sync.RWMutex
	ips  map[string]bool
	path string
	log  *logger.Logger
}

// NewBlocklist loads path — a missing file just means an empty list — and,
// if stop is non-nil, watches it for changes until stop is closed.
func NewBlocklist(path string, stop <-chan struct{}) *Blocklist {
	b := &Blocklist{ips: make(map[string]bool), path: path, log: logger.NewLogger("blocklist")}
	b.reload()
	if stop == nil {
		return b
	}

	events := make(chan notify.EventInfo, 4)
	if err := notify.Watch(path, events, notify.Write, notify.Create, notify.Remove); err != nil {
		b.log.Warnf("not watching %s for changes: %v", path, err)
		return b
	}
	go func() {
		defer notify.Stop(events)
		for {
			select {
			case <-events:
				b.reload()
			case <-stop:
				return
			}
		}
	}()
	return b
}

func (b *Blocklist) reload() {
	f, err := os.Open(b.path)
	if err != nil {
		return
	}
	defer f.Close()

	next := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if ip := net.ParseIP(scanner.Text()); ip != nil {
			next[ip.String()] = true
		}
	}

	b.mu.Lock()
	b.ips = next
	b.mu.Unlock()
	b.log.Infof("reloaded blocklist %s: %d address(es)", b.path, len(next))
}

// Blocked reports whether ip has been banned.
func (b *Blocklist) Blocked(ip net.IP) bool {
	if b == nil {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ips[ip.String()]
}
