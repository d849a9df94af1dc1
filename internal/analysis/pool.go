package analysis

import (
	"context"
	"sync"
)

// RunPool runs work over items with at most maxParallel invocations in
// flight at once: a slot starts the next item as soon as one completes.
// If quit is closed, no further items are started, but every already
// in-flight invocation is allowed to finish before RunPool returns.
//
// This is an in-process bounded fan-out: no database-backed job table, no
// multi-pod orphan recovery, no podID — just a semaphore over one process's
// in-memory item list.
func RunPool[T any](ctx context.Context, items []T, maxParallel int, quit <-chan struct{}, work func(context.Context, T)) {
	if maxParallel <= 0 {
		maxParallel = 1
	}
	sem := make(chan struct{}, maxParallel)
	var wg sync.WaitGroup

	for _, item := range items {
		select {
		case <-quit:
			wg.Wait()
			return
		default:
		}

		sem <- struct{}{}
		select {
		case <-quit:
			<-sem
			wg.Wait()
			return
		default:
		}
		wg.Add(1)
		go func(it T) {
			defer wg.Done()
			defer func() { <-sem }()
			work(ctx, it)
		}(item)
	}

	wg.Wait()
}
