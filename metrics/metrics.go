// Copyright 2015 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package metrics centralizes the registration of counters describing
// DHT node traffic and routing table health.
package metrics

import (
	"bufio"
	"encoding/json"
	"os"
	"runtime"
	"time"

	"github.com/ethereumproject/dht/logger/glog"
	"github.com/rcrowley/go-metrics"
)

// reg is the metrics destination.
var reg = metrics.NewRegistry()

var (
	MsgPingIn       = metrics.NewRegisteredMeter("msg/ping/in", reg)
	MsgPingOut      = metrics.NewRegisteredMeter("msg/ping/out", reg)
	MsgPingReplyIn  = metrics.NewRegisteredMeter("msg/ping/reply/in", reg)
	MsgPingReplyOut = metrics.NewRegisteredMeter("msg/ping/reply/out", reg)

	MsgFindNodeIn       = metrics.NewRegisteredMeter("msg/findnode/in", reg)
	MsgFindNodeOut      = metrics.NewRegisteredMeter("msg/findnode/out", reg)
	MsgFindNodeReplyIn  = metrics.NewRegisteredMeter("msg/findnode/reply/in", reg)
	MsgFindNodeReplyOut = metrics.NewRegisteredMeter("msg/findnode/reply/out", reg)

	MsgErrorIn  = metrics.NewRegisteredMeter("msg/error/in", reg)
	MsgMalformedIn = metrics.NewRegisteredMeter("msg/malformed/in", reg)

	DatagramIn       = metrics.NewRegisteredMeter("datagram/in", reg)
	DatagramInBytes  = metrics.NewRegisteredMeter("datagram/in/bytes", reg)
	DatagramOut      = metrics.NewRegisteredMeter("datagram/out", reg)
	DatagramOutBytes = metrics.NewRegisteredMeter("datagram/out/bytes", reg)
	DatagramDropped  = metrics.NewRegisteredMeter("datagram/dropped", reg)
)

var (
	CallbacksRegistered = metrics.NewRegisteredMeter("callback/registered", reg)
	CallbacksMatched    = metrics.NewRegisteredMeter("callback/matched", reg)
	CallbacksExpired    = metrics.NewRegisteredMeter("callback/expired", reg)
)

var (
	BucketSplits    = metrics.NewRegisteredMeter("table/bucket/split", reg)
	ContactsAdded   = metrics.NewRegisteredMeter("table/contact/added", reg)
	ContactsDropped = metrics.NewRegisteredMeter("table/contact/dropped", reg)
	ContactsGood    = metrics.GetOrRegisterGauge("table/contact/good", reg)
	ContactsBad     = metrics.GetOrRegisterGauge("table/contact/bad", reg)
)

var (
	MemAllocs = metrics.GetOrRegisterGauge("memory/allocs", reg)
	MemFrees  = metrics.GetOrRegisterGauge("memory/frees", reg)
	MemInuse  = metrics.GetOrRegisterGauge("memory/inuse", reg)
	MemPauses = metrics.GetOrRegisterGauge("memory/pauses", reg)

	DiskReads      = metrics.GetOrRegisterGauge("disk/readcount", reg)
	DiskReadBytes  = metrics.GetOrRegisterGauge("disk/readdata", reg)
	DiskWrites     = metrics.GetOrRegisterGauge("disk/writecount", reg)
	DiskWriteBytes = metrics.GetOrRegisterGauge("disk/writedata", reg)
)

// diskStats is the per process disk I/O statistics.
type diskStats struct {
	ReadCount  int64 // Number of read operations executed
	ReadBytes  int64 // Total number of bytes read
	WriteCount int64 // Number of write operations executed
	WriteBytes int64 // Total number of byte written
}

// Collect writes metrics to the given file every 3 seconds until the
// process exits. Intended to run in its own goroutine.
func Collect(file string) {
	f, err := os.OpenFile(file, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0666)
	if err != nil {
		glog.Fatal(err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	encoder := json.NewEncoder(w)

	for range time.Tick(3 * time.Second) {
		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)
		MemAllocs.Update(int64(mem.Mallocs))
		MemFrees.Update(int64(mem.Frees))
		MemInuse.Update(int64(mem.Alloc))
		MemPauses.Update(int64(mem.PauseTotalNs))

		var disk diskStats
		readDiskStats(&disk)
		DiskReads.Update(disk.ReadCount)
		DiskReadBytes.Update(disk.ReadBytes)
		DiskWrites.Update(disk.WriteCount)
		DiskWriteBytes.Update(disk.WriteBytes)

		if err := encoder.Encode(reg); err != nil {
			glog.Errorf("metrics: log to %q: %s", file, err)
		}
		if err := w.Flush(); err != nil {
			glog.Errorf("metrics: flush %q: %s", file, err)
		}
	}
}
