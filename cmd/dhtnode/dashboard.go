package main

import (
	"fmt"
	"time"

	"github.com/gizak/termui"

	"github.com/ethereumproject/dht/dht"
	"github.com/ethereumproject/dht/table"
)

const (
	dashSmallHeight = 3
	dashLargeWidth  = 100
	dashDataLimit   = 100
)

// runDashboard replaces the plain status ticker with a live terminal
// dashboard: a gauge for bucket occupancy and a sparkline for contact
// count. It blocks until termui's loop exits (on an interrupt, or when stop
// fires), the same shutdown shape the daemon's own status ticker uses.
func runDashboard(rt *table.RoutingTable, stop <-chan struct{}) {
	if err := termui.Init(); err != nil {
		fmt.Println("tui: could not initialize, dashboard disabled:", err)
		return
	}
	defer termui.Close()

	bucketGauge := termui.NewGauge()
	bucketGauge.BorderLabel = "bucket occupancy"
	bucketGauge.Height = dashSmallHeight
	bucketGauge.Width = dashLargeWidth
	bucketGauge.BarColor = termui.ColorGreen

	contactSpark := termui.Sparkline{}
	contactSpark.Title = "contacts"
	contactSpark.Data = []int{0}
	contactSpark.Height = dashSmallHeight
	contactSpark.LineColor = termui.ColorCyan
	contactHolder := termui.NewSparklines(contactSpark)
	contactHolder.Width = bucketGauge.Width
	contactHolder.Y = bucketGauge.Y + bucketGauge.Height
	contactHolder.Height = dashSmallHeight + 2

	draw := func() {
		buckets := rt.Tree().BucketCount()
		size := rt.Size()
		pct := 100
		if buckets > 0 {
			pct = (size * 100) / (buckets * dht.BucketSize)
		}
		if pct > 100 {
			pct = 100
		}
		bucketGauge.Percent = pct
		bucketGauge.Label = fmt.Sprintf("%d contacts / %d buckets", size, buckets)

		data := contactHolder.Lines[0].Data
		if len(data) > dashDataLimit {
			data = data[1:]
		}
		contactHolder.Lines[0].Data = append(data, size)

		termui.Render(bucketGauge, contactHolder)
	}
	draw()

	termui.Handle("/sys/kbd/q", func(termui.Event) { termui.StopLoop() })
	termui.Handle("/sys/kbd/C-c", func(termui.Event) { termui.StopLoop() })

	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				draw()
			case <-stop:
				termui.StopLoop()
				return
			}
		}
	}()

	termui.Loop()
}
