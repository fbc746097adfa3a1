// Command loadtest drives read traffic against a running alerts service and
// reports latency percentiles per route.
//
// Usage:
//
//	go run ./cmd/loadtest -url http://localhost:8000 -concurrency 20 -duration 30s
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"
)

type target struct {
	route string
	path  string
}

// targets are cycled by every worker; list reads dominate as in production.
var targets = []target{
	{"list", "/api/v1/scam-alerts"},
	{"list", "/api/v1/scam-alerts?limit=10"},
	{"list", "/api/v1/scam-alerts?limit=100"},
	{"list", "/api/v1/scam-alerts?limit=50&order=asc"},
	{"stats", "/api/v1/scam-alerts/stats"},
	{"ready", "/health/ready"},
}

func main() {
	baseURL := flag.String("url", "http://localhost:8000", "base URL of the alerts service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	flag.Parse()

	fmt.Println("=== Scam Alert Load Test ===")
	fmt.Printf("Target:      %s\n", *baseURL)
	fmt.Printf("Concurrency: %d\n", *concurrency)
	fmt.Printf("Duration:    %s\n\n", *duration)

	start := time.Now()
	stats := run(*baseURL, *concurrency, *duration)
	if !stats.Report(time.Since(start)) {
		fmt.Println("\nWARNING: No requests completed. Is the service running?")
		os.Exit(1)
	}
}

func run(baseURL string, concurrency int, duration time.Duration) *Stats {
	stats := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        concurrency * 2,
			MaxIdleConnsPerHost: concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	var wg sync.WaitGroup
	for w := range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := w; ctx.Err() == nil; i++ {
				t := targets[i%len(targets)]
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+t.path, nil)
				if err != nil {
					stats.Record(t.route, 0, 0, err)
					continue
				}
				began := time.Now()
				resp, err := client.Do(req)
				elapsed := time.Since(began)
				if err != nil {
					if ctx.Err() == nil {
						stats.Record(t.route, elapsed, 0, err)
					}
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats.Record(t.route, elapsed, resp.StatusCode, nil)
			}
		}()
	}
	wg.Wait()
	return stats
}
