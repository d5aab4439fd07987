package service

import (
	"context"
	"sync"

	"github.com/haatos/simple-build/internal/store"
	"github.com/haatos/simple-build/internal/target"
	"github.com/sirupsen/logrus"
)

type RunEnqueuer interface {
	Enqueue(context.Context, RunRequest) (*store.Run, error)
}

type queuedRun struct {
	prepared *PreparedRun
	ctx      context.Context
}

// RunQueue executes builds one at a time in submission order.
func NewRunQueue(builds BuildServicer, maxRuns int, logger logrus.FieldLogger) *RunQueue {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RunQueue{
		builds:       builds,
		logger:       logger,
		queue:        make(chan *queuedRun, max(maxRuns, 1)),
		done:         make(chan struct{}),
		cancelRunMap: NewCancelMap[string](),
	}
}

type RunQueue struct {
	builds BuildServicer
	logger logrus.FieldLogger
	// OnReport is called after every executed run.
	OnReport func(*store.Run, *target.Report)

	queue        chan *queuedRun
	done         chan struct{}
	cancelRunMap *CancelMap[string]
	mu           sync.Mutex
}

// Enqueue validates and records the request, then queues it. Invalid plans
// are rejected before anything is recorded.
func (rq *RunQueue) Enqueue(ctx context.Context, req RunRequest) (*store.Run, error) {
	pr, err := rq.builds.Prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	runCtx, cancel := context.WithCancel(context.Background())
	rq.cancelRunMap.AddCancel(pr.Run.UUID, cancel)

	// the queue goroutine owns pr.Run once it is sent
	queued := *pr.Run
	select {
	case rq.queue <- &queuedRun{prepared: pr, ctx: runCtx}:
		rq.logger.WithField("run", queued.UUID).Info("run queued")
		return &queued, nil
	default:
		rq.cancelRunMap.RemoveCancel(pr.Run.UUID)
		cancel()
		rq.builds.Finish(pr, store.StatusCancelled, -1)
		return nil, NewErrRunQueueFull(cap(rq.queue))
	}
}

// CancelRun stops a running build or drops a queued one.
func (rq *RunQueue) CancelRun(runUUID string) error {
	if !rq.cancelRunMap.Call(runUUID) {
		return RunCancelError{RunUUID: runUUID}
	}
	return nil
}

func (rq *RunQueue) Run() {
	for {
		select {
		case qr := <-rq.queue:
			rq.process(qr)
		case <-rq.done:
			rq.drain()
			return
		}
	}
}

// drain records runs still waiting at shutdown as cancelled.
func (rq *RunQueue) drain() {
	for {
		select {
		case qr := <-rq.queue:
			rq.cancelRunMap.RemoveCancel(qr.prepared.Run.UUID)
			rq.builds.Finish(qr.prepared, store.StatusCancelled, -1)
		default:
			return
		}
	}
}

func (rq *RunQueue) process(qr *queuedRun) {
	run := qr.prepared.Run
	defer rq.cancelRunMap.RemoveCancel(run.UUID)

	log := rq.logger.WithField("run", run.UUID)
	if qr.ctx.Err() != nil {
		log.Info("run cancelled before it started")
		rq.builds.Finish(qr.prepared, store.StatusCancelled, -1)
		return
	}
	log.WithField("targets", qr.prepared.Plan.Targets).Info("run started")
	report := rq.builds.Execute(qr.ctx, qr.prepared)
	log.WithField("status", run.Status).WithField("exit_code", report.ExitCode()).Info("run finished")
	if rq.OnReport != nil {
		rq.OnReport(run, report)
	}
}

// Shutdown stops the queue loop and cancels every queued or running build.
func (rq *RunQueue) Shutdown() {
	rq.mu.Lock()
	defer rq.mu.Unlock()
	select {
	case <-rq.done:
	default:
		close(rq.done)
		rq.cancelRunMap.CallAll()
	}
}
