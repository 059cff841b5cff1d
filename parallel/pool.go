// Package parallel provides the persistent worker pool used for data-parallel
// simulation phases.
package parallel

import (
	"runtime"
	"sync"
)

// DefaultThreshold is the minimum item count to dispatch to workers.
// Below this, single-threaded is faster due to goroutine overhead.
const DefaultThreshold = 64

// workChunk represents a range of items for a worker to process.
type workChunk struct {
	lo, hi int
	fn     func(lo, hi int)
	wg     *sync.WaitGroup
}

// Pool runs range functions over fixed-size chunks on persistent workers.
// Run must not be called concurrently with itself.
type Pool struct {
	numWorkers int
	threshold  int

	workChan chan workChunk // sends work to workers
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool
}

// NewPool creates a pool with the given worker count (0 = GOMAXPROCS).
// Workers start lazily on the first parallel Run.
func NewPool(workers, threshold int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Pool{numWorkers: workers, threshold: threshold}
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int { return p.numWorkers }

// Run calls fn over [0,n) split into chunks of chunkSize (0 = one chunk per
// worker) and returns once every chunk is done. Chunk boundaries depend only
// on n and chunkSize, never on whether the work ran in parallel.
func (p *Pool) Run(n, chunkSize int, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}
	if chunkSize <= 0 {
		chunkSize = (n + p.numWorkers - 1) / p.numWorkers
	}

	if n < p.threshold || p.numWorkers == 1 {
		for lo := 0; lo < n; lo += chunkSize {
			fn(lo, min(lo+chunkSize, n))
		}
		return
	}

	p.start()

	var done sync.WaitGroup
	for lo := 0; lo < n; lo += chunkSize {
		done.Add(1)
		p.workChan <- workChunk{lo: lo, hi: min(lo+chunkSize, n), fn: fn, wg: &done}
	}
	done.Wait()
}

// start launches persistent worker goroutines.
func (p *Pool) start() {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// worker processes chunks until stopped.
func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			chunk.fn(chunk.lo, chunk.hi)
			chunk.wg.Done()
		}
	}
}

// Stop signals all workers to exit and waits for them. The pool restarts on the next parallel Run.
func (p *Pool) Stop() {
	if p == nil || !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	p.running = false
}
