package jobs

import (
	"context"
	"log"
	"time"
)

// Processor handles one polling pass over pending work.
type Processor interface {
	ProcessPending(ctx context.Context) error
}

// Worker polls a Processor on a fixed interval. One pass runs
// immediately on start so a backlog left over from a previous run is
// drained without waiting out the first tick.
type Worker struct {
	processor    Processor
	pollInterval time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
}

func NewWorker(processor Processor, pollInterval time.Duration) *Worker {
	return &Worker{
		processor:    processor,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start begins the polling loop. Blocks until Stop is called or ctx is
// cancelled; run it on its own goroutine.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("Replay worker started with poll interval: %v", w.pollInterval)

	if err := w.processor.ProcessPending(ctx); err != nil {
		log.Printf("Error processing pending entries: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			log.Println("Replay worker stopped: context cancelled")
			return
		case <-w.stopChan:
			log.Println("Replay worker stopped: stop signal received")
			return
		case <-ticker.C:
			if err := w.processor.ProcessPending(ctx); err != nil {
				log.Printf("Error processing pending entries: %v", err)
			}
		}
	}
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
	log.Println("Replay worker shutdown complete")
}
