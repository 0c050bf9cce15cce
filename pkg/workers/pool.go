// Package workers provides a fixed-size worker pool. Migration workflows are
// submitted as work units; the pool bounds how many run concurrently.
package workers

import (
	"context"
	"fmt"

	"github.com/kubev2v/live-migration-orchestrator/internal/models"
)

type workRequest struct {
	fn  models.Work[any]
	c   chan models.Result[any]
	ctx context.Context
}

type worker struct {
	done chan any
}

func (w worker) Work(r workRequest) {
	defer func() {
		if p := recover(); p != nil {
			r.c <- models.Result[any]{Err: fmt.Errorf("worker panicked: %v", p)}
		}
		w.done <- struct{}{}
	}()

	v, err := r.fn(r.ctx)
	r.c <- models.Result[any]{Data: v, Err: err}
}

func newWorker(done chan any) worker {
	return worker{done: done}
}

// Pool runs submitted work on a bounded set of workers. Work submitted while
// all workers are busy queues up in submission order.
type Pool struct {
	workers    *models.Queue[worker]
	workQueue  *models.Queue[workRequest]
	close      chan any
	done       chan any
	work       chan workRequest
	mainCtx    context.Context
	mainCancel context.CancelFunc
}

func NewPool(nbWorkers int) *Pool {
	done := make(chan any)
	wq := &models.Queue[worker]{}
	for range nbWorkers {
		wq.Push(newWorker(done))
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		workers:    wq,
		workQueue:  &models.Queue[workRequest]{},
		close:      make(chan any),
		done:       done,
		work:       make(chan workRequest),
		mainCtx:    ctx,
		mainCancel: cancel,
	}
	go p.run()
	return p
}

// Submit hands work to the pool and returns a future resolving with its
// result. Stopping the future cancels the work's context.
func (p *Pool) Submit(w models.Work[any]) *models.Future[models.Result[any]] {
	c := make(chan models.Result[any], 1)
	ctx, cancel := context.WithCancel(p.mainCtx)
	p.work <- workRequest{w, c, ctx}
	return models.NewFuture(c, cancel)
}

// Close cancels the context of all in-flight work and stops the dispatch
// loop. It does not wait for running workers.
func (p *Pool) Close() {
	p.mainCancel()
	p.close <- struct{}{}
}

func (p *Pool) run() {
	for {
		select {
		case w := <-p.work:
			p.workQueue.Push(w)
			if p.workers.Len() == 0 {
				continue
			}
			p.dispatch(p.workQueue.Pop())
		case <-p.done:
			p.workers.Push(newWorker(p.done))

			if p.workQueue.Len() == 0 {
				continue
			}
			p.dispatch(p.workQueue.Pop())
		case <-p.close:
			return
		}
	}
}

func (p *Pool) dispatch(r workRequest) {
	worker := p.workers.Pop()
	go worker.Work(r)
}
