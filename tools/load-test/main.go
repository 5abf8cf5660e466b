package main

import (
	"bytes"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

func main() {
	// Configuration
	url := "http://localhost:8080/api/punch"
	contentType := "application/json"

	numEmployees := 5000
	punchesPerEmployee := 2 // one in, one out
	totalRequests := numEmployees * punchesPerEmployee
	concurrency := 50 // Number of concurrent requests to avoid local port exhaustion

	fmt.Printf("Starting load test: %d employees (%d punches each) to %s with concurrency %d\n", numEmployees, punchesPerEmployee, url, concurrency)

	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency) // Semaphore to limit concurrency

	var successCount int64
	var failCount int64

	startTime := time.Now()

	for i := 0; i < numEmployees; i++ {
		wg.Add(1)
		sem <- struct{}{} // Acquire token

		employeeID := i + 1

		go func(empID int) {
			defer wg.Done()
			defer func() { <-sem }() // Release token

			types := []string{"in", "out"}
			for j := 0; j < punchesPerEmployee; j++ {
				payload := []byte(fmt.Sprintf(
					`{"employeeId": %d, "type": %q, "timestamp": %q, "latitude": 45.42, "longitude": -75.69, "note": "load test"}`,
					empID, types[j%2], time.Now().UTC().Format(time.RFC3339),
				))

				resp, err := http.Post(url, contentType, bytes.NewBuffer(payload))
				if err != nil {
					atomic.AddInt64(&failCount, 1)
					continue
				}

				if resp.StatusCode >= 200 && resp.StatusCode < 300 {
					atomic.AddInt64(&successCount, 1)
				} else {
					atomic.AddInt64(&failCount, 1)
				}
				resp.Body.Close()
			}
		}(employeeID)
	}

	wg.Wait()
	duration := time.Since(startTime)

	fmt.Println("\n--- Load Test Results ---")
	fmt.Printf("Total Duration: %v\n", duration)
	fmt.Printf("Total Requests: %d\n", totalRequests)
	fmt.Printf("Successful:     %d\n", successCount)
	fmt.Printf("Failed:         %d\n", failCount)
	fmt.Printf("Requests/Sec:   %.2f\n", float64(totalRequests)/duration.Seconds())
}
