package main

import (
	"encoding/json"
	"net/http"

	"github.com/rs/cors"

	"github.com/ethereumproject/dht/logger"
	"github.com/ethereumproject/dht/logger/glog"
	"github.com/ethereumproject/dht/table"
)

// statusResponse is the JSON body served at "/status".
type statusResponse struct {
	Self     string `json:"self"`
	Contacts int    `json:"contacts"`
	Buckets  int    `json:"buckets"`
}

// serveHTTPStatus starts a read-only JSON status endpoint on addr, wrapped
// with permissive CORS so a browser-based dashboard on another origin can
// poll it directly. It returns immediately; the listener runs in its own
// goroutine and is torn down by the caller's Close.
func serveHTTPStatus(addr string, rt *table.RoutingTable) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(statusResponse{
			Self:     rt.Self().String(),
			Contacts: rt.Size(),
			Buckets:  rt.Tree().BucketCount(),
		})
	})

	handler := cors.New(cors.Options{AllowedOrigins: []string{"*"}}).Handler(mux)
	srv := &http.Server{Addr: addr, Handler: handler}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			glog.V(logger.Error).Errorf("status http server: %v", err)
		}
	}()
	return srv
}
