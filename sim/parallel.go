package sim

import (
	"runtime"
	"sync"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/photovore/catalog"
	"github.com/pthm-cable/photovore/components"
	"github.com/pthm-cable/photovore/systems"
)

// parallelThreshold is the minimum node count to use parallel processing.
// Below this, single-threaded is faster due to goroutine overhead.
const parallelThreshold = 64

// nodeSnapshot captures read-only state for parallel processing.
type nodeSnapshot struct {
	Entity   ecs.Entity
	ID       uint32
	Bat      components.Battery
	Act      components.Activity
	Gene     components.Gene
	Model    *catalog.ModelProfile
	TierCapW float64
}

// nodeIntent captures computed outputs to apply after the parallel phase.
type nodeIntent struct {
	Bat components.Battery
	Act components.Activity
}

// workChunk represents a range of nodes for a worker to process.
type workChunk struct {
	idx        int
	start, end int
	sample     systems.Sample
	dt         float64
}

// parallelState holds resources for the fork-join physics pass.
type parallelState struct {
	snapshots  []nodeSnapshot
	intents    []nodeIntent
	errs       []error
	numWorkers int

	// Worker pool channels
	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running
}

func newParallelState() *parallelState {
	numWorkers := runtime.GOMAXPROCS(0)
	return &parallelState{
		numWorkers: numWorkers,
		errs:       make([]error, numWorkers),
		snapshots:  make([]nodeSnapshot, 0, 512),
		intents:    make([]nodeIntent, 0, 512),
	}
}

// startWorkers launches persistent worker goroutines.
func (p *parallelState) startWorkers(e *Engine) {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(e)
	}
}

// stopWorkers signals all workers to exit and waits for them.
func (p *parallelState) stopWorkers() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

// worker runs in a goroutine, processing chunks until stopped.
func (p *parallelState) worker(e *Engine) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			p.errs[chunk.idx] = e.computeChunk(chunk.start, chunk.end, chunk.sample, chunk.dt)
			p.doneChan <- struct{}{}
		}
	}
}

// computeParallel dispatches work to the worker pool.
func (e *Engine) computeParallel(n int, sample systems.Sample, dt float64) error {
	// Ensure workers are running
	if !e.parallel.running {
		e.parallel.startWorkers(e)
	}

	numWorkers := e.parallel.numWorkers
	chunkSize := (n + numWorkers - 1) / numWorkers

	// Dispatch chunks to workers
	chunksDispatched := 0
	for w := 0; w < numWorkers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}

		e.parallel.workChan <- workChunk{
			idx:    chunksDispatched,
			start:  start,
			end:    end,
			sample: sample,
			dt:     dt,
		}
		chunksDispatched++
	}

	// Wait for all chunks to complete
	for i := 0; i < chunksDispatched; i++ {
		<-e.parallel.doneChan
	}

	for i := 0; i < chunksDispatched; i++ {
		if err := e.parallel.errs[i]; err != nil {
			return err
		}
	}
	return nil
}

// computeChunk advances a range of nodes against the shared solar
// sample. Workers touch only their own snapshot and intent slots;
// nothing here reads the world.
func (e *Engine) computeChunk(i0, i1 int, sample systems.Sample, dt float64) error {
	availability := e.cfg.Solar.Availability

	for i := i0; i < i1; i++ {
		snap := &e.parallel.snapshots[i]
		intent := &e.parallel.intents[i]

		intent.Bat = snap.Bat
		intent.Act = snap.Act

		err := systems.UpdateNode(&intent.Bat, &intent.Act, &snap.Gene, snap.Model, snap.TierCapW, sample, availability, dt)
		if err != nil {
			return err
		}
	}
	return nil
}
