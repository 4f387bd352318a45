package tools

import (
	"sync"
)

// RunWithWorkers runs handler over jobs with at most maxWorkers goroutines.
// The handler receives each job's index so callers can write results in order.
func RunWithWorkers[T any](jobs []T, maxWorkers int, handler func(int, T)) {
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, maxWorkers)

	for i, job := range jobs {
		wg.Add(1)
		sem <- struct{}{}

		go func(i int, j T) {
			defer wg.Done()
			defer func() { <-sem }()

			handler(i, j)
		}(i, job)
	}

	wg.Wait()
}
