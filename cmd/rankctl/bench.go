package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/searcher/handler"
)

var defaultBenchQueries = []string{
	"ranking rules",
	"typo tolerance",
	"words proximity",
	"exact match",
	"attribute position",
	"distinct results",
	"prefix search",
	"rankng",
	"proximty",
	"ranking OR relevance",
	"search NOT deprecated",
	"query words",
}

type benchConfig struct {
	baseURL     string
	concurrency int
	duration    time.Duration
	limit       int
	distinct    bool
	queriesFile string
}

type benchStats struct {
	total     atomic.Int64
	success   atomic.Int64
	failed    atomic.Int64
	cacheHits atomic.Int64

	mu        sync.Mutex
	latencies []time.Duration
	codes     map[int]int64
}

func (s *benchStats) record(d time.Duration, resp *http.Response, err error) {
	s.total.Add(1)
	if err != nil {
		s.failed.Add(1)
		return
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		s.success.Add(1)
	} else {
		s.failed.Add(1)
	}
	if resp.Header.Get(handler.CacheHeader) == "HIT" {
		s.cacheHits.Add(1)
	}
	s.mu.Lock()
	s.latencies = append(s.latencies, d)
	s.codes[resp.StatusCode]++
	s.mu.Unlock()
}

func newBenchCmd() *cobra.Command {
	cfg := benchConfig{}
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Load test a running search service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			queries := defaultBenchQueries
			if cfg.queriesFile != "" {
				var err error
				if queries, err = readQueries(cfg.queriesFile); err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Target:      %s\n", cfg.baseURL)
			fmt.Fprintf(out, "Concurrency: %d\n", cfg.concurrency)
			fmt.Fprintf(out, "Duration:    %s\n", cfg.duration)
			fmt.Fprintf(out, "Queries:     %d unique\n\n", len(queries))

			stats := runBench(cmd.Context(), cfg, queries)
			return printBenchReport(out, stats, cfg.duration)
		},
	}
	cmd.Flags().StringVar(&cfg.baseURL, "url", "http://localhost:8080", "base URL of the search service")
	cmd.Flags().IntVarP(&cfg.concurrency, "concurrency", "c", 10, "number of concurrent workers")
	cmd.Flags().DurationVarP(&cfg.duration, "duration", "d", 30*time.Second, "test duration")
	cmd.Flags().IntVar(&cfg.limit, "limit", 10, "results per query")
	cmd.Flags().BoolVar(&cfg.distinct, "distinct", false, "request distinct results")
	cmd.Flags().StringVar(&cfg.queriesFile, "queries", "", "file with one query per line")
	return cmd
}

func readQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening queries file: %w", err)
	}
	defer f.Close()
	var queries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if q := strings.TrimSpace(scanner.Text()); q != "" {
			queries = append(queries, q)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading queries file: %w", err)
	}
	if len(queries) == 0 {
		return nil, errors.New("queries file is empty")
	}
	return queries, nil
}

func runBench(ctx context.Context, cfg benchConfig, queries []string) *benchStats {
	if ctx == nil {
		ctx = context.Background()
	}
	workers := max(1, cfg.concurrency)
	stats := &benchStats{codes: make(map[int]int64)}
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        workers * 2,
			MaxIdleConnsPerHost: workers * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	defer client.CloseIdleConnections()

	ctx, cancel := context.WithTimeout(ctx, cfg.duration)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := w; ctx.Err() == nil; i++ {
				params := url.Values{}
				params.Set("q", queries[i%len(queries)])
				params.Set("limit", strconv.Itoa(cfg.limit))
				if cfg.distinct {
					params.Set("distinct", "true")
				}
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.baseURL+"/api/v1/search?"+params.Encode(), nil)
				if err != nil {
					return err
				}
				start := time.Now()
				resp, err := client.Do(req)
				if ctx.Err() != nil {
					if resp != nil {
						resp.Body.Close()
					}
					return nil
				}
				stats.record(time.Since(start), resp, err)
				if err == nil {
					io.Copy(io.Discard, resp.Body)
					resp.Body.Close()
				}
			}
			return nil
		})
	}
	g.Wait()
	return stats
}

func printBenchReport(out io.Writer, s *benchStats, duration time.Duration) error {
	total, failed := s.total.Load(), s.failed.Load()
	fmt.Fprintln(out, "=== Results ===")
	fmt.Fprintf(out, "Total Requests:  %d\n", total)
	fmt.Fprintf(out, "Successful:      %d\n", s.success.Load())
	fmt.Fprintf(out, "Errors:          %d\n", failed)
	fmt.Fprintf(out, "Cache Hits:      %d\n", s.cacheHits.Load())
	if total == 0 {
		return errors.New("no requests completed, is the search service running?")
	}
	fmt.Fprintf(out, "Error Rate:      %.2f%%\n", float64(failed)/float64(total)*100)
	fmt.Fprintf(out, "Requests/sec:    %.2f\n", float64(total)/duration.Seconds())

	s.mu.Lock()
	latencies := slices.Clone(s.latencies)
	codes := make(map[int]int64, len(s.codes))
	for code, n := range s.codes {
		codes[code] = n
	}
	s.mu.Unlock()

	if len(latencies) > 0 {
		slices.Sort(latencies)
		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))
		var sq float64
		for _, l := range latencies {
			diff := float64(l - avg)
			sq += diff * diff
		}
		fmt.Fprintln(out, "\n=== Latency ===")
		fmt.Fprintf(out, "Min:    %s\n", latencies[0])
		fmt.Fprintf(out, "Avg:    %s\n", avg)
		fmt.Fprintf(out, "P50:    %s\n", percentile(latencies, 50))
		fmt.Fprintf(out, "P90:    %s\n", percentile(latencies, 90))
		fmt.Fprintf(out, "P99:    %s\n", percentile(latencies, 99))
		fmt.Fprintf(out, "Max:    %s\n", latencies[len(latencies)-1])
		fmt.Fprintf(out, "StdDev: %s\n", time.Duration(math.Sqrt(sq/float64(len(latencies)))))
	}

	fmt.Fprintln(out, "\n=== Status Codes ===")
	keys := make([]int, 0, len(codes))
	for code := range codes {
		keys = append(keys, code)
	}
	slices.Sort(keys)
	for _, code := range keys {
		fmt.Fprintf(out, "  %d: %d\n", code, codes[code])
	}
	if s.success.Load() == 0 {
		return errors.New("no request succeeded, is the search service running?")
	}
	return nil
}

// percentile expects sorted input.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[min(max(idx, 0), len(sorted)-1)]
}
