package soft

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oliverbestmann/onscreen/pulse"
)

var errQueueClosed = errors.New("queue is closed")

type job struct {
	label string
	run   func()
	fence *fence
}

// fence is signaled by closing its channel.
type fence struct {
	done chan struct{}
}

func newFence() *fence {
	return &fence{done: make(chan struct{})}
}

func (f *fence) Signaled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

func (f *fence) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// queue executes jobs one after another on a worker goroutine.
type queue struct {
	latency time.Duration
	raster  *rasterizer

	mu       sync.Mutex
	jobs     chan job
	isClosed bool
	stopped  chan struct{}

	// the fence of the last job
	last *fence
}

func newQueue(latency time.Duration) *queue {
	q := &queue{
		latency: latency,
		raster:  newRasterizer(),
		jobs:    make(chan job, 64),
		stopped: make(chan struct{}),
	}

	go q.worker()

	return q
}

func (q *queue) worker() {
	defer close(q.stopped)

	for job := range q.jobs {
		if q.latency > 0 {
			time.Sleep(q.latency)
		}

		if job.run != nil {
			job.run()
		}

		close(job.fence.done)
	}
}

func (q *queue) enqueue(label string, run func()) (*fence, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.isClosed {
		return nil, errQueueClosed
	}

	f := newFence()
	q.jobs <- job{label: label, run: run, fence: f}
	q.last = f

	return f, nil
}

func (q *queue) WriteTexture(dst pulse.DeviceTexture, region pulse.Rectangle2u, pix []byte, stride uint32) error {
	tex, err := asTexture(dst)
	if err != nil {
		return err
	}

	bounds := pulse.RectangleFromXYWH(0, 0, tex.Width(), tex.Height())
	if region.Empty() || !bounds.Contains(region) {
		return fmt.Errorf("region %s outside of texture %s", region, bounds)
	}

	// take a copy, the caller may reuse the slice
	pix = append([]byte(nil), pix...)

	_, err = q.enqueue("WriteTexture", func() {
		tex.write(region, pix, stride)
	})

	return err
}

func (q *queue) Submit(list *pulse.CommandList) (pulse.Fence, error) {
	target, ok := list.Target.(*swapImage)
	if !ok {
		return nil, errForeignImage
	}

	// resolve all resources now, a released texture is a programming error
	ops := make([]op, 0, len(list.Commands))
	for _, cmd := range list.Commands {
		resolved, err := resolveCommand(cmd)
		if err != nil {
			return nil, err
		}

		ops = append(ops, resolved)
	}

	f, err := q.enqueue(list.Label, func() {
		for _, op := range ops {
			q.raster.execute(target.img, op)
		}
	})

	if err != nil {
		return nil, err
	}

	pulse.Logger().Debug("Command list submitted",
		slog.String("label", list.Label),
		slog.Int("commands", len(ops)))

	return f, nil
}

func (q *queue) WaitIdle(ctx context.Context) error {
	q.mu.Lock()
	last := q.last
	q.mu.Unlock()

	if last == nil {
		return nil
	}

	return last.Wait(ctx)
}

func (q *queue) closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.isClosed
}

// close drains the outstanding jobs and stops the worker.
func (q *queue) close() {
	q.mu.Lock()
	if q.isClosed {
		q.mu.Unlock()
		return
	}

	q.isClosed = true
	close(q.jobs)
	q.mu.Unlock()

	<-q.stopped
}
