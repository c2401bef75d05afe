// Command trie-bench drives insert, lookup, and mixed read/write
// workloads against pkg/trie to exercise its concurrency behavior under
// load. It is not part of the trie's core (spec §6: "no CLI surface in
// the core"); it exists the way cmd/turdb drove its storage engine in
// this repository's lineage, adapted here to the ecosystem CLI
// framework (urfave/cli/v2) rather than the bespoke os.Args parsing
// that command used.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"trie/pkg/trie"
)

func main() {
	app := &cli.App{
		Name:  "trie-bench",
		Usage: "benchmark pkg/trie under concurrent load",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "threads",
				Value: runtime.GOMAXPROCS(0),
				Usage: "number of concurrent worker goroutines",
			},
			&cli.IntFlag{
				Name:  "rounds",
				Value: 100000,
				Usage: "operations performed per worker",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "insert",
				Usage:  "each worker inserts rounds distinct keys under its own worker id",
				Action: runInsert,
			},
			{
				Name:   "lookup",
				Usage:  "pre-populate the trie, then each worker repeatedly looks up a fixed key",
				Action: runLookup,
			},
			{
				Name:   "mixed",
				Usage:  "interleave inserts, removes, and lookups across workers on shared keys",
				Action: runMixed,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

type key = [2]int

func runInsert(c *cli.Context) error {
	threads := c.Int("threads")
	rounds := c.Int("rounds")

	t := trie.New[key, int]()

	since := time.Now()
	g, _ := errgroup.WithContext(context.Background())
	for w := 0; w < threads; w++ {
		worker := w
		g.Go(func() error {
			guard := t.Pin()
			defer guard.Release()
			for round := 0; round < rounds; round++ {
				guard.Insert(key{worker, round}, round)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(since)

	stats := t.Stats()
	fmt.Printf("insert: %d threads x %d rounds in %s (%d inserts, %d retries)\n",
		threads, rounds, elapsed, stats.Inserts, stats.Retries)
	return nil
}

func runLookup(c *cli.Context) error {
	threads := c.Int("threads")
	rounds := c.Int("rounds")

	t := trie.New[key, int]()
	t.Insert(key{0, 0}, 42)

	var misses int64
	since := time.Now()
	g, _ := errgroup.WithContext(context.Background())
	for w := 0; w < threads; w++ {
		g.Go(func() error {
			guard := t.Pin()
			defer guard.Release()
			for round := 0; round < rounds; round++ {
				if _, ok := guard.Get(key{0, 0}); !ok {
					atomic.AddInt64(&misses, 1)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(since)

	fmt.Printf("lookup: %d threads x %d rounds in %s (%d misses)\n",
		threads, rounds, elapsed, atomic.LoadInt64(&misses))
	return nil
}

func runMixed(c *cli.Context) error {
	threads := c.Int("threads")
	rounds := c.Int("rounds")
	const keyspace = 64

	t := trie.New[key, int]()

	since := time.Now()
	g, _ := errgroup.WithContext(context.Background())
	for w := 0; w < threads; w++ {
		worker := w
		g.Go(func() error {
			guard := t.Pin()
			defer guard.Release()
			for round := 0; round < rounds; round++ {
				k := key{round % keyspace, 0}
				switch round % 3 {
				case 0:
					guard.Insert(k, worker)
				case 1:
					guard.Remove(k)
				default:
					guard.Get(k)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(since)

	stats := t.Stats()
	fmt.Printf("mixed: %d threads x %d rounds in %s (stats=%+v)\n",
		threads, rounds, elapsed, stats)
	return nil
}
