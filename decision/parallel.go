package decision

import (
	"runtime"
	"sync"

	"github.com/pthm-cable/cortex/scoring"
)

// defaultParallelThreshold is the minimum controller count to score in
// parallel. Below this, single-threaded is faster due to goroutine overhead.
const defaultParallelThreshold = 64

// workChunk is a range of jobs for one worker.
type workChunk struct {
	start, end int
	world      World
	scorer     *scoring.Scorer
}

// pool is a persistent set of scoring workers.
type pool struct {
	scratches  []*scratch
	numWorkers int

	workChan chan workChunk
	doneChan chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

func newPool(workers int) *pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	scratches := make([]*scratch, workers)
	for i := range scratches {
		scratches[i] = newScratch()
	}
	return &pool{numWorkers: workers, scratches: scratches}
}

// start launches the worker goroutines.
func (p *pool) start(e *Engine) {
	if p.running {
		return
	}
	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(e, i)
	}
}

// stop signals all workers to exit and waits for them.
func (p *pool) stop() {
	if !p.running {
		return
	}
	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

func (p *pool) worker(e *Engine, id int) {
	defer p.wg.Done()
	s := p.scratches[id]

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			e.decideRange(chunk.world, chunk.scorer, chunk.start, chunk.end, s)
			p.doneChan <- struct{}{}
		}
	}
}

// run splits n jobs into one chunk per worker and waits for all of them.
func (p *pool) run(e *Engine, w World, scorer *scoring.Scorer, n int) {
	p.start(e)

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers
	dispatched := 0
	for i := 0; i < p.numWorkers; i++ {
		start := i * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			continue
		}
		p.workChan <- workChunk{start: start, end: end, world: w, scorer: scorer}
		dispatched++
	}
	for i := 0; i < dispatched; i++ {
		<-p.doneChan
	}
}

// decideRange scores jobs[i0:i1] into results[i0:i1] and cands[i0:i1].
func (e *Engine) decideRange(w World, scorer *scoring.Scorer, i0, i1 int, s *scratch) {
	for i := i0; i < i1; i++ {
		e.results[i] = e.decide(w, scorer, e.jobs[i], s, &e.cands[i])
	}
}
