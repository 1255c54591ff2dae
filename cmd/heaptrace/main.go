// Command heaptrace replays a malloc-lab-style trace file against one of
// this module's Heap variants (or a real pooling allocator, as a baseline)
// and reports peak utilization and throughput.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"

	"github.com/blockheap/blockheap/concurrency/gopool"
	"github.com/blockheap/blockheap/malloc"
	"github.com/blockheap/blockheap/malloc/sbrk"
)

// Options configures one heaptrace run. Plain constructor parameters plus a
// DefaultOptions factory, mirroring concurrency/gopool.Option/DefaultOption
// rather than a config file or env-var loader.
type Options struct {
	Variant string // "explicit", "segregated", or "mcache"
	Verify  bool
	Workers int
}

// DefaultOptions returns the options heaptrace uses when a flag is not set.
func DefaultOptions() Options {
	return Options{Variant: "segregated", Workers: 1}
}

func main() {
	log.SetFlags(0)
	opts := DefaultOptions()
	flag.StringVar(&opts.Variant, "variant", opts.Variant, "heap to replay against: explicit, segregated, or mcache")
	flag.BoolVar(&opts.Verify, "verify", opts.Verify, "run the heap walker after every op")
	flag.IntVar(&opts.Workers, "workers", opts.Workers, "number of trace files to replay concurrently")
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		log.Fatal("heaptrace: usage: heaptrace [flags] trace-file [trace-file ...]")
	}

	if opts.Workers <= 1 || len(paths) == 1 {
		for _, p := range paths {
			runOne(opts, p)
		}
		return
	}
	runConcurrent(opts, paths)
}

// runConcurrent fans N trace files out across gopool workers, each against
// its own Heap instance: Heap is not safe for concurrent use, so nothing is
// ever shared between the goroutines gopool dispatches here.
func runConcurrent(opts Options, paths []string) {
	var wg sync.WaitGroup
	sem := make(chan struct{}, opts.Workers)
	for _, p := range paths {
		p := p
		wg.Add(1)
		sem <- struct{}{}
		gopool.CtxGo(context.Background(), func() {
			defer wg.Done()
			defer func() { <-sem }()
			runOne(opts, p)
		})
	}
	wg.Wait()
}

func runOne(opts Options, path string) {
	ops, err := parseTrace(path)
	if err != nil {
		log.Fatalf("%v", err)
	}

	var stats Stats
	switch opts.Variant {
	case "mcache":
		stats, err = replayMcache(ops)
	case "explicit":
		var h *malloc.Heap
		if h, err = malloc.NewExplicitHeap(sbrk.NewBumpArena()); err == nil {
			stats, err = replayHeap(h, ops, opts.Verify)
		}
	case "segregated":
		var h *malloc.Heap
		if h, err = malloc.NewSegregatedHeap(sbrk.NewBumpArena()); err == nil {
			stats, err = replayHeap(h, ops, opts.Verify)
		}
	default:
		err = fmt.Errorf("heaptrace: unknown -variant %q", opts.Variant)
	}
	if err != nil {
		log.Fatalf("%s: %v", path, err)
	}
	fmt.Printf("%s: %s\n", path, stats)
}
