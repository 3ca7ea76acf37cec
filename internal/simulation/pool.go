package simulation

import (
	"context"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchSize is the number of trials a worker runs between
// cancellation checks.
const DefaultBatchSize = 1000

// PoolOptions configure a partitioned run.
type PoolOptions struct {
	Seed      uint64
	Workers   int // <= 0 selects runtime.NumCPU()
	BatchSize int // <= 0 selects DefaultBatchSize
}

func (o PoolOptions) workers(trials int) int {
	w := o.Workers
	if w <= 0 {
		w = runtime.NumCPU()
	}
	return max(1, min(w, trials))
}

func (o PoolOptions) batchSize() int {
	if o.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return o.BatchSize
}

// Partition is the contiguous trial range [Start, End) owned by one worker.
type Partition struct {
	Worker int
	Start  int
	End    int
}

// Len is the number of trials in the partition.
func (p Partition) Len() int { return p.End - p.Start }

// Partitions splits trials into contiguous ranges, one per worker. The first
// trials%workers ranges are one trial longer.
func Partitions(trials, workers int) []Partition {
	if trials <= 0 {
		return nil
	}
	workers = max(1, min(workers, trials))

	parts := make([]Partition, workers)
	size, extra := trials/workers, trials%workers
	start := 0
	for w := range parts {
		n := size
		if w < extra {
			n++
		}
		parts[w] = Partition{Worker: w, Start: start, End: start + n}
		start += n
	}
	return parts
}

// RunPartitioned runs step for every trial in [0, trials) on a fixed pool of
// workers. Each worker owns a generator seeded from (Seed, worker index) and
// an accumulator created by init; accumulators are returned in worker order
// once every worker has finished. Cancellation is checked between batches.
// On cancellation or the first step error no accumulator is returned.
func RunPartitioned[T any](
	ctx context.Context,
	trials int,
	opts PoolOptions,
	init func(p Partition, rng *rand.Rand) (T, error),
	step func(rng *rand.Rand, trial int, acc *T) error,
) ([]T, error) {
	parts := Partitions(trials, opts.workers(trials))
	partials := make([]T, len(parts))
	batch := opts.batchSize()

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range parts {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(opts.Seed, uint64(p.Worker)))
			acc, err := init(p, rng)
			if err != nil {
				return err
			}

			for start := p.Start; start < p.End; start += batch {
				if err := gctx.Err(); err != nil {
					return err
				}
				end := min(start+batch, p.End)
				for t := start; t < end; t++ {
					if err := step(rng, t, &acc); err != nil {
						return err
					}
				}
			}

			partials[i] = acc
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return partials, nil
}
