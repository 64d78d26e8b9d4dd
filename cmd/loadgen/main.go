package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sitepulse/pulse-go/internal/dispatch"
	"github.com/sitepulse/pulse-go/internal/domain"
	"github.com/sitepulse/pulse-go/internal/engine"
	"github.com/sitepulse/pulse-go/internal/storage/cache"
	"github.com/sitepulse/pulse-go/internal/storage/sqlite"
	"go.uber.org/zap"
)

// loadgen drives the in-process ingestion pipeline with synthetic visitors:
// no HTTP, no external resolver, just the validate/enrich/insert/track path.

var pages = []string{"home", "pricing", "docs", "blog", "about", "signup"}

var agents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 16_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.5 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (iPad; CPU OS 16_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.5 Mobile/15E148 Safari/604.1",
}

func main() {
	usersFlag := flag.Int("users", 500, "Number of visitors to simulate")
	durationFlag := flag.Duration("duration", 1*time.Minute, "Duration of the run")
	intervalFlag := flag.Duration("interval", 1*time.Second, "Interval between events per visitor")
	flag.Parse()

	fmt.Printf("Starting loadgen with %d visitors for %v (interval: %v)\n",
		*usersFlag, *durationFlag, *intervalFlag)

	logger := zap.NewNop()

	dbBase := fmt.Sprintf("loadgen_%d.db", time.Now().UnixNano())
	dbURL := "sqlite://" + dbBase
	defer cleanupDBFiles(dbBase)

	eventDB, err := sqlite.NewEventDB(dbURL)
	if err != nil {
		log.Fatalf("create event DB: %v", err)
	}
	defer eventDB.Close()

	sessionDB, err := sqlite.NewSessionDB(dbURL)
	if err != nil {
		log.Fatalf("create session DB: %v", err)
	}
	defer sessionDB.Close()

	metaCache := cache.NewMemoryCache()
	resolver, err := engine.NewResolver(engine.ResolverConfig{Kind: "none"}, logger)
	if err != nil {
		log.Fatalf("create resolver: %v", err)
	}
	defer resolver.Close()

	enricher := engine.NewEnricher(metaCache, resolver, time.Hour, logger)
	tracker := engine.NewSessionTracker(sessionDB, 30*time.Minute, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue := dispatch.New(4096, 2, logger)
	queue.Start(ctx)

	ingestor := engine.NewIngestor(eventDB, enricher, tracker, queue, logger)

	var wg sync.WaitGroup
	var totalEvents int64
	var totalErrors int64
	var peakAllocMB uint64

	startTime := time.Now()
	endTime := startTime.Add(*durationFlag)

	for i := 0; i < *usersFlag; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()

			time.Sleep(time.Duration(rand.Int63n(int64(*intervalFlag))))

			clientIP := fmt.Sprintf("203.0.%d.%d", (index/250)%255, index%250)
			sessionID := uuid.New().String()
			agent := agents[index%len(agents)]

			ticker := time.NewTicker(*intervalFlag)
			defer ticker.Stop()

			for time.Now().Before(endTime) {
				payload := domain.EventPayload{
					PageID:       pages[rand.Intn(len(pages))],
					URL:          "https://example.com/",
					Action:       "view",
					UserAgent:    agent,
					SessionToken: sessionID,
				}

				if _, err := ingestor.Ingest(ctx, payload, clientIP); err != nil {
					atomic.AddInt64(&totalErrors, 1)
				}
				atomic.AddInt64(&totalEvents, 1)
				<-ticker.C
			}
		}(i)
	}

	monitorCtx, cancelMonitor := context.WithCancel(context.Background())
	defer cancelMonitor()
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		var m runtime.MemStats

		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
			}

			runtime.ReadMemStats(&m)
			events := atomic.LoadInt64(&totalEvents)
			errs := atomic.LoadInt64(&totalErrors)
			elapsed := time.Since(startTime).Seconds()
			allocMB := m.Alloc / 1024 / 1024

			for {
				cur := atomic.LoadUint64(&peakAllocMB)
				if allocMB <= cur || atomic.CompareAndSwapUint64(&peakAllocMB, cur, allocMB) {
					break
				}
			}

			fmt.Printf("[%.0fs] Events: %d (%.2f ev/s) | Errs: %d | Alloc: %d MB | G: %d\n",
				elapsed, events, float64(events)/elapsed, errs, allocMB, runtime.NumGoroutine())
		}
	}()

	wg.Wait()
	cancelMonitor()
	queue.Close()

	actual := time.Since(startTime)
	events := atomic.LoadInt64(&totalEvents)
	errs := atomic.LoadInt64(&totalErrors)

	stored, err := eventDB.CountEvents()
	if err != nil {
		log.Fatalf("count events: %v", err)
	}
	visitors, _ := eventDB.CountDistinctVisitors()

	fmt.Println("\n--- Loadgen Results ---")
	fmt.Printf("Duration: %v\n", actual.Truncate(time.Millisecond))
	fmt.Printf("Events Sent: %d\n", events)
	fmt.Printf("Events Stored: %d\n", stored)
	fmt.Printf("Errors: %d\n", errs)
	fmt.Printf("Distinct Visitors: %d\n", visitors)
	fmt.Printf("Average RPS: %.2f\n", float64(events)/actual.Seconds())
	fmt.Printf("Peak Alloc: %d MB\n", atomic.LoadUint64(&peakAllocMB))
}

func cleanupDBFiles(base string) {
	_ = os.Remove(base)
	_ = os.Remove(base[:len(base)-3] + "_sessions.db")
}
