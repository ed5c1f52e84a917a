package impact

import (
	"fmt"
	"sync"

	"github.com/akmonengine/impact/settings"
	"golang.org/x/sync/errgroup"
)

func task[T any](workersCount int, data []T, fn func(data T)) {
	workersCount = settings.Clamp(workersCount, 1, max(1, len(data)))
	if workersCount == 1 {
		for _, d := range data {
			fn(d)
		}
		return
	}

	var wg sync.WaitGroup
	dataSize := len(data)
	chunkSize := (dataSize + workersCount - 1) / workersCount

	for workerID := 0; workerID < workersCount; workerID++ {
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				fn(data[i])
			}
		}(workerID*chunkSize, min((workerID+1)*chunkSize, dataSize))
	}
	wg.Wait()
}

// StepWorlds steps independent worlds in parallel on at most workers
// goroutines. Worlds must not share bodies, fixtures or listeners that mutate
// shared state. Every world is stepped; the first error is returned.
func StepWorlds(worlds []*World, dt float64, workers int) error {
	var g errgroup.Group
	g.SetLimit(settings.Clamp(workers, 1, max(1, len(worlds))))

	for _, w := range worlds {
		g.Go(func() error {
			if err := w.Step(dt); err != nil {
				return fmt.Errorf("step worlds: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}
