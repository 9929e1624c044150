package pipeline

import "sync"

// pool runs a fixed number of workers over a queue of record titles.
type pool struct {
	workers int
	jobs    chan string
	wg      sync.WaitGroup
}

func newPool(workers, queueSize int) *pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &pool{workers: workers, jobs: make(chan string, queueSize)}
}

func (p *pool) start(process func(title string)) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for title := range p.jobs {
				process(title)
			}
		}()
	}
}

// submit blocks while the queue is full.
func (p *pool) submit(title string) {
	p.jobs <- title
}

// stop closes the queue and waits for the workers to drain it.
func (p *pool) stop() {
	close(p.jobs)
	p.wg.Wait()
}
