package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/peterh/liner"

	"github.com/ethereumproject/dht/dht"
	"github.com/ethereumproject/dht/table"
)

// runConsole drives an interactive line-edited prompt on stdin/stdout for
// inspecting the running node without tailing logs: "status" prints the
// same summary reportStatus logs, "find <hex id>" reports whether a
// contact is currently known, and "quit" closes the console (the daemon
// itself keeps running).
func runConsole(rt *table.RoutingTable) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Println("dhtnode console — commands: status, find <hex id>, quit")
	for {
		input, err := line.Prompt("dhtnode> ")
		if err == liner.ErrPromptAborted || err == io.EOF {
			return
		}
		if err != nil {
			return
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		switch fields := strings.Fields(input); fields[0] {
		case "status":
			fmt.Printf("%d contacts across %d buckets, self %s\n", rt.Size(), rt.Tree().BucketCount(), rt.Self())
		case "find":
			if len(fields) != 2 {
				fmt.Println("usage: find <40-hex-digit id>")
				continue
			}
			id, err := dht.ParseHex(fields[1])
			if err != nil {
				fmt.Println("bad id:", err)
				continue
			}
			if c, ok := rt.Tree().FindContact(id); ok {
				fmt.Printf("known at %s\n", c.Addr)
			} else {
				fmt.Println("not known")
			}
		case "quit", "exit":
			return
		default:
			fmt.Println("unknown command:", fields[0])
		}
	}
}
