// Package loader batches a prepared dataset for training. Epoch order
// is derived from a seed so two runs walk the data identically, and
// batch assembly is prefetched by a bounded pool of workers while
// delivery stays in order.
package loader

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/hollen/taskline/internal/data"
	"github.com/hollen/taskline/internal/sysinfo"
)

// Options configures a Loader.
type Options struct {
	// BatchSize is the number of samples per batch.
	BatchSize int

	// Shuffle re-derives the walk order per epoch from Seed. Off,
	// the loader walks the dataset in its natural order.
	Shuffle bool

	// DropLast discards a trailing batch smaller than BatchSize.
	DropLast bool

	// Seed drives the epoch shuffles.
	Seed int64

	// Workers bounds the prefetch pool. Zero means size it from the
	// host's core count.
	Workers int
}

// Batch is one training batch: dataset positions, their targets, and
// vectors when the dataset carries payloads.
type Batch struct {
	Indices []int
	Targets []int
	Vectors [][]float64
}

// Loader walks a dataset in seeded batch order.
type Loader struct {
	ds      data.Dataset
	vec     data.VectorSource
	opts    Options
	order   []int
	workers int
}

// New creates a Loader over ds. The first epoch's order is the
// dataset's natural order until Reshuffle is called.
func New(ds data.Dataset, opts Options) (*Loader, error) {
	if ds == nil {
		return nil, fmt.Errorf("%w: dataset is nil", data.ErrConfig)
	}
	if opts.BatchSize < 1 {
		return nil, fmt.Errorf("%w: batch size must be at least 1, got %d", data.ErrConfig, opts.BatchSize)
	}
	if opts.Workers < 0 {
		return nil, fmt.Errorf("%w: workers must not be negative, got %d", data.ErrConfig, opts.Workers)
	}

	workers := opts.Workers
	if workers == 0 {
		workers = sysinfo.RecommendedWorkers()
	}

	l := &Loader{
		ds:      ds,
		opts:    opts,
		order:   make([]int, ds.Len()),
		workers: workers,
	}
	for i := range l.order {
		l.order[i] = i
	}
	if vs, ok := ds.(data.VectorSource); ok {
		l.vec = vs
	}
	return l, nil
}

// Reshuffle re-derives the walk order for an epoch. A given seed and
// epoch always produce the same order. No-op when shuffling is off.
// Must not be called while a batch stream is open.
func (l *Loader) Reshuffle(epoch int) {
	if !l.opts.Shuffle {
		return
	}
	rng := rand.New(rand.NewSource(l.opts.Seed + int64(epoch)))
	l.order = rng.Perm(l.ds.Len())
}

// Len returns the number of samples walked per epoch.
func (l *Loader) Len() int {
	return len(l.order)
}

// NumBatches returns the batches per epoch under the current options.
func (l *Loader) NumBatches() int {
	n := len(l.order) / l.opts.BatchSize
	if !l.opts.DropLast && len(l.order)%l.opts.BatchSize != 0 {
		n++
	}
	return n
}

// Workers returns the resolved prefetch pool size.
func (l *Loader) Workers() int {
	return l.workers
}

// Batches streams the epoch's batches in order. Assembly runs on a
// bounded worker pool ahead of the consumer. The channel closes after
// the last batch, or early when ctx is cancelled.
func (l *Loader) Batches(ctx context.Context) <-chan Batch {
	out := make(chan Batch, l.workers)

	// Each pending batch gets a buffered slot, so workers never block
	// and the consumer reads slots strictly in dispatch order.
	slots := make(chan chan Batch, l.workers)

	go func() {
		defer close(slots)

		sem := make(chan struct{}, l.workers)
		var wg sync.WaitGroup
		defer wg.Wait()

		for b := 0; b < l.NumBatches(); b++ {
			slot := make(chan Batch, 1)
			select {
			case slots <- slot:
			case <-ctx.Done():
				return
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}

			wg.Add(1)
			go func(b int, slot chan<- Batch) {
				defer wg.Done()
				defer func() { <-sem }()
				slot <- l.batchAt(b)
			}(b, slot)
		}
	}()

	go func() {
		defer close(out)

		for slot := range slots {
			var batch Batch
			select {
			case batch = <-slot:
			case <-ctx.Done():
				for range slots {
				}
				return
			}

			select {
			case out <- batch:
			case <-ctx.Done():
				for range slots {
				}
				return
			}
		}
	}()

	return out
}

// batchAt assembles the b-th batch of the current order.
func (l *Loader) batchAt(b int) Batch {
	start := b * l.opts.BatchSize
	end := start + l.opts.BatchSize
	if end > len(l.order) {
		end = len(l.order)
	}
	idxs := l.order[start:end]

	batch := Batch{
		Indices: make([]int, len(idxs)),
		Targets: make([]int, len(idxs)),
	}
	for k, i := range idxs {
		batch.Indices[k] = i
		batch.Targets[k] = l.ds.Target(i)
	}
	if l.vec != nil {
		batch.Vectors = make([][]float64, len(idxs))
		for k, i := range idxs {
			batch.Vectors[k] = l.vec.Vector(i)
		}
	}
	return batch
}
