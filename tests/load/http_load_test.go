//go:build load
// +build load

package main

import (
	"flag"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
)

var (
	addr     = flag.String("addr", "http://localhost:8090", "Memory service base URL")
	requests = flag.Int("requests", 1000, "Total number of alloc/free cycles")
	workers  = flag.Int("workers", 10, "Number of concurrent workers")
	size     = flag.Uint("size", 256, "Allocation size in bytes")
)

type result struct {
	duration time.Duration
	err      error
}

func main() {
	flag.Parse()

	log.Printf("Starting HTTP load test")
	log.Printf("Target: %s", *addr)
	log.Printf("Cycles: %d", *requests)
	log.Printf("Workers: %d", *workers)
	log.Printf("Allocation size: %d bytes", *size)

	client := resty.New().
		SetBaseURL(*addr).
		SetTimeout(5 * time.Second)

	if resp, err := client.R().Get("/health"); err != nil || !resp.IsSuccess() {
		log.Fatalf("Service unreachable at %s: %v", *addr, err)
	}

	results := runLoadTest(client, *requests, *workers)
	analyzeResults(results)
}

func runLoadTest(client *resty.Client, totalRequests, workers int) []result {
	results := make([]result, 0, totalRequests)
	var mu sync.Mutex

	var completed atomic.Int32
	start := time.Now()

	var wg sync.WaitGroup
	cycles := make(chan int, totalRequests)
	for i := 0; i < totalRequests; i++ {
		cycles <- i
	}
	close(cycles)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for range cycles {
				res := executeCycle(client)

				mu.Lock()
				results = append(results, res)
				mu.Unlock()

				count := completed.Add(1)
				if count%100 == 0 {
					elapsed := time.Since(start)
					rps := float64(count) / elapsed.Seconds()
					log.Printf("Progress: %d/%d cycles (%.2f cycles/sec)",
						count, totalRequests, rps)
				}
			}
		}()
	}

	wg.Wait()

	return results
}

// executeCycle allocates one kernel heap block and frees it again. The
// pair is measured as a single unit so the heap cannot fill up over the
// course of the run.
func executeCycle(client *resty.Client) result {
	start := time.Now()

	var alloc struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Ref     uint32 `json:"ref"`
	}
	resp, err := client.R().
		SetBody(map[string]interface{}{"size": *size, "align": 8}).
		SetResult(&alloc).
		Post("/memory/heap/alloc")
	if err != nil {
		return result{duration: time.Since(start), err: err}
	}
	if !resp.IsSuccess() || !alloc.Success {
		return result{
			duration: time.Since(start),
			err:      fmt.Errorf("alloc refused: %s %s", resp.Status(), alloc.Error),
		}
	}

	resp, err = client.R().
		SetBody(map[string]interface{}{"ref": alloc.Ref, "size": *size, "align": 8}).
		Post("/memory/heap/free")
	if err != nil {
		return result{duration: time.Since(start), err: err}
	}
	if !resp.IsSuccess() {
		return result{
			duration: time.Since(start),
			err:      fmt.Errorf("free refused: %s", resp.Status()),
		}
	}

	return result{duration: time.Since(start)}
}

func analyzeResults(results []result) {
	if len(results) == 0 {
		log.Println("No results to analyze")
		return
	}

	var (
		totalDuration time.Duration
		successCount  int
		errorCount    int
		durations     []time.Duration
	)

	for _, r := range results {
		totalDuration += r.duration
		if r.err == nil {
			successCount++
		} else {
			errorCount++
		}
		durations = append(durations, r.duration)
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	total := len(results)
	avgDuration := totalDuration / time.Duration(total)
	p50 := durations[total*50/100]
	p95 := durations[total*95/100]
	p99 := durations[total*99/100]
	maxDuration := durations[total-1]

	fmt.Println("\n========================================")
	fmt.Println("Load Test Results")
	fmt.Println("========================================")
	fmt.Printf("Total Cycles:      %d\n", total)
	fmt.Printf("Successful:        %d (%.2f%%)\n", successCount, float64(successCount)/float64(total)*100)
	fmt.Printf("Failed:            %d (%.2f%%)\n", errorCount, float64(errorCount)/float64(total)*100)
	fmt.Println("----------------------------------------")
	fmt.Printf("Average Latency:   %v\n", avgDuration)
	fmt.Printf("P50 Latency:       %v\n", p50)
	fmt.Printf("P95 Latency:       %v\n", p95)
	fmt.Printf("P99 Latency:       %v\n", p99)
	fmt.Printf("Max Latency:       %v\n", maxDuration)
	fmt.Println("========================================")
}
