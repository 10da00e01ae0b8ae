package aero

import (
	"sync"

	"github.com/klauspost/cpuid/v2"
)

// Workers is the goroutine count used by ParallelFor.
var Workers = defaultWorkers()

func defaultWorkers() int {
	n := cpuid.CPU.PhysicalCores
	if n <= 0 {
		n = cpuid.CPU.LogicalCores
	}
	if n <= 0 {
		n = 1
	}
	if n > 8 {
		n = 8
	}
	return n
}

// ParallelFor executes fn in parallel over the range [0, n). Ranges shorter
// than minChunk run on the calling goroutine.
func ParallelFor(n, minChunk int, fn func(start, end int)) {
	numWorkers := Workers
	if n <= minChunk || numWorkers <= 1 {
		fn(0, n)
		return
	}

	workers := numWorkers
	if n/minChunk < workers {
		workers = n / minChunk
	}
	if workers < 1 {
		workers = 1
	}

	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}

	wg.Wait()
}
