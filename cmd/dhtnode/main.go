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

// dhtnode runs a standalone Mainline-style DHT routing table: it answers
// ping and find_node queries, keeps its own routing tree warm, and
// persists contacts across restarts.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"gopkg.in/urfave/cli.v1"

	"github.com/ethereumproject/dht/common"
	"github.com/ethereumproject/dht/dht"
	"github.com/ethereumproject/dht/logger"
	"github.com/ethereumproject/dht/logger/glog"
	"github.com/ethereumproject/dht/metrics"
	"github.com/ethereumproject/dht/table"
)

// Version is the application revision identifier. It can be set with the
// linker as in: go build -ldflags "-X main.Version="`git describe --tags`
var Version = "source"

var (
	ListenAddrFlag = cli.StringFlag{
		Name:  "addr",
		Usage: "UDP listen address",
		Value: ":6881",
	}
	DataDirFlag = cli.StringFlag{
		Name:  "datadir",
		Usage: "directory holding the persisted routing table",
		Value: common.DefaultDataDir(),
	}
	NodeIdHexFlag = cli.StringFlag{
		Name:  "nodeidhex",
		Usage: "fixed 40-hex-digit node id (random if unset)",
	}
	CacheFlag = cli.IntFlag{
		Name:  "cache",
		Usage: "megabytes of leveldb cache for the contact store",
		Value: 16,
	}
	HandlesFlag = cli.IntFlag{
		Name:  "handles",
		Usage: "file descriptors allotted to the contact store",
		Value: 16,
	}
	MetricsFlag = cli.StringFlag{
		Name:  "metrics",
		Usage: "file to append periodic metrics snapshots to",
	}
	BlocklistFlag = cli.StringFlag{
		Name:  "blocklist",
		Usage: "file of banned IP addresses, reloaded live on change",
	}
	HTTPAddrFlag = cli.StringFlag{
		Name:  "httpaddr",
		Usage: "address to serve a read-only JSON status endpoint on (disabled if unset)",
	}
	ConsoleFlag = cli.BoolFlag{
		Name:  "console",
		Usage: "open an interactive status console on stdin/stdout",
	}
	TUIFlag = cli.BoolFlag{
		Name:  "tui",
		Usage: "show a live terminal dashboard instead of periodic log lines",
	}
	VerbosityFlag = cli.GenericFlag{
		Name:  "verbosity",
		Usage: "log verbosity (0-9)",
		Value: glog.GetVerbosity(),
	}
	VModuleFlag = cli.GenericFlag{
		Name:  "vmodule",
		Usage: "log verbosity pattern",
		Value: glog.GetVModule(),
	}
)

func makeCLIApp() *cli.App {
	app := cli.NewApp()
	app.Name = filepath.Base(os.Args[0])
	app.Version = Version
	app.Usage = "a standalone Mainline DHT routing table node"
	app.Action = run
	app.HideVersion = true

	app.Flags = []cli.Flag{
		ListenAddrFlag,
		DataDirFlag,
		NodeIdHexFlag,
		CacheFlag,
		HandlesFlag,
		MetricsFlag,
		BlocklistFlag,
		HTTPAddrFlag,
		ConsoleFlag,
		TUIFlag,
		VerbosityFlag,
		VModuleFlag,
	}

	app.Before = func(ctx *cli.Context) error {
		glog.SetToStderr(true)
		if s := ctx.GlobalString(MetricsFlag.Name); s != "" {
			go metrics.Collect(s)
		}
		return nil
	}
	app.After = func(ctx *cli.Context) error {
		logger.Flush()
		return nil
	}
	return app
}

func main() {
	common.SetClientVersion(Version)
	if err := makeCLIApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func selfID(ctx *cli.Context) (dht.NodeId, error) {
	if hex := ctx.GlobalString(NodeIdHexFlag.Name); hex != "" {
		return dht.ParseHex(hex)
	}
	return dht.Random(), nil
}

// run binds the UDP socket, opens the persisted contact store, and blocks
// serving queries until interrupted.
func run(ctx *cli.Context) error {
	self, err := selfID(ctx)
	if err != nil {
		return fmt.Errorf("dhtnode: bad -%s: %v", NodeIdHexFlag.Name, err)
	}

	lc := net.ListenConfig{Control: reuseAddrControl}
	pc, err := lc.ListenPacket(context.Background(), "udp4", ctx.GlobalString(ListenAddrFlag.Name))
	if err != nil {
		return fmt.Errorf("dhtnode: listen: %v", err)
	}
	conn := pc.(*net.UDPConn)
	defer conn.Close()

	datadir := ctx.GlobalString(DataDirFlag.Name)
	if err := common.EnsureDataDir(datadir); err != nil {
		return fmt.Errorf("dhtnode: datadir: %v", err)
	}
	store, err := table.OpenStore(filepath.Join(datadir, "contacts"), ctx.GlobalInt(CacheFlag.Name), ctx.GlobalInt(HandlesFlag.Name))
	if err != nil {
		return fmt.Errorf("dhtnode: open contact store: %v", err)
	}
	defer store.Close()

	rt := table.NewRoutingTable(self, conn)
	if err := store.Load(rt.Tree()); err != nil {
		glog.V(logger.Info).Infof("starting with an empty routing table (%v)", err)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	stop := make(chan struct{})
	defer close(stop)

	if bl := ctx.GlobalString(BlocklistFlag.Name); bl != "" {
		rt.SetBlocklist(table.NewBlocklist(bl, stop))
	}

	if addr := ctx.GlobalString(HTTPAddrFlag.Name); addr != "" {
		srv := serveHTTPStatus(addr, rt)
		defer srv.Close()
	}

	glog.V(logger.Info).Infof("%s listening on %s, id %s", color.GreenString("dhtnode"), conn.LocalAddr(), self)

	done := make(chan struct{})
	go serve(conn, rt, done)

	if ctx.GlobalBool(TUIFlag.Name) {
		go runDashboard(rt, stop)
	} else {
		reportStatus(rt)
	}
	if ctx.GlobalBool(ConsoleFlag.Name) {
		go runConsole(rt)
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !ctx.GlobalBool(TUIFlag.Name) {
				reportStatus(rt)
			}
		case <-shutdown:
			glog.V(logger.Info).Infoln(color.YellowString("shutting down, saving routing table"))
			if err := store.Save(rt.Tree()); err != nil {
				glog.Errorf("save routing table: %v", err)
			}
			return nil
		case <-done:
			return fmt.Errorf("dhtnode: UDP socket closed unexpectedly")
		}
	}
}

// serve reads datagrams off conn until it errors, handing each to rt. It
// closes done before returning so run can stop waiting on it.
func serve(conn *net.UDPConn, rt *table.RoutingTable, done chan struct{}) {
	defer close(done)
	buf := make([]byte, 8192)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			glog.Errorf("read: %v", err)
			return
		}
		msg := make([]byte, n)
		copy(msg, buf[:n])
		go func(msg []byte, addr *net.UDPAddr) {
			if err := rt.HandleMessage(msg, addr); err != nil {
				glog.V(logger.Debug).Infof("handle message from %s: %v", addr, err)
			}
		}(msg, addr)
	}
}

func reportStatus(rt *table.RoutingTable) {
	glog.V(logger.Info).Infof("%s %d contacts across %d buckets",
		color.CyanString("status"), rt.Size(), rt.Tree().BucketCount())
}
