// internal/room/writeback.go
package room

import (
	"context"
	"errors"
	"sync"
	"time"

	engine "github.com/jason-s-yu/uno/engine"
	"github.com/jason-s-yu/uno/service/internal/store"
	"github.com/sirupsen/logrus"
)

type jobKind uint8

const (
	jobSave jobKind = iota
	jobDelete
)

type job struct {
	kind   jobKind
	roomID string
	state  engine.GameState
}

// pendingWrite is the latest unsaved state of one room and the timer that
// will hand it to the worker.
type pendingWrite struct {
	state engine.GameState
	timer *time.Timer
	gen   uint64
}

// WriteBack coalesces room saves. Each Schedule replaces the pending write for
// that room and restarts its quiet period; only when the period elapses does
// the latest state go to the store. Saves and deletes run one at a time on a
// single worker in the order they were queued, so a delete is never overtaken
// by an older save of the same room.
type WriteBack struct {
	store   store.RoomStore
	delay   time.Duration
	timeout time.Duration
	log     *logrus.Entry

	mu       sync.Mutex
	pending  map[string]*pendingWrite
	deleting map[string]int // queued, not yet executed deletes
	queue    []job
	wake     chan struct{}

	workMu sync.Mutex // held while a job runs

	// OnError, if set, is called after a failed store operation.
	OnError func(roomID string, err error)
}

// NewWriteBack returns a WriteBack saving to s after delay of quiet. Each
// store call gets timeout. Call Run to start the worker.
func NewWriteBack(s store.RoomStore, delay, timeout time.Duration, log *logrus.Entry) *WriteBack {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &WriteBack{
		store:    s,
		delay:    delay,
		timeout:  timeout,
		log:      log.WithField("component", "writeback"),
		pending:  make(map[string]*pendingWrite),
		deleting: make(map[string]int),
		wake:     make(chan struct{}, 1),
	}
}

// Schedule records state as the latest copy of its room and (re)starts the
// quiet period. It never blocks on the store.
func (w *WriteBack) Schedule(state engine.GameState) {
	id := state.RoomID
	w.mu.Lock()
	defer w.mu.Unlock()

	p := w.pending[id]
	if p == nil {
		p = &pendingWrite{}
		w.pending[id] = p
	} else if p.timer != nil {
		p.timer.Stop()
	}
	p.state = state
	p.gen++
	gen := p.gen
	p.timer = time.AfterFunc(w.delay, func() { w.fire(id, gen) })
}

// fire moves the pending write of id to the queue, unless it was replaced or
// cancelled after the timer was armed.
func (w *WriteBack) fire(id string, gen uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p := w.pending[id]
	if p == nil || p.gen != gen {
		return
	}
	delete(w.pending, id)
	w.enqueueLocked(job{kind: jobSave, roomID: id, state: p.state})
}

// Delete cancels any pending write for roomID and queues removal of the
// durable copy.
func (w *WriteBack) Delete(roomID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if p := w.pending[roomID]; p != nil {
		p.timer.Stop()
		delete(w.pending, roomID)
	}
	w.deleting[roomID]++
	w.enqueueLocked(job{kind: jobDelete, roomID: roomID})
}

// Deleting reports whether a delete of roomID is queued but not yet done. The
// durable copy must not be trusted meanwhile.
func (w *WriteBack) Deleting(roomID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.deleting[roomID] > 0
}

// Pending returns the number of rooms with a write waiting for its quiet period.
func (w *WriteBack) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

func (w *WriteBack) enqueueLocked(j job) {
	w.queue = append(w.queue, j)
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *WriteBack) pop() (job, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queue) == 0 {
		return job{}, false
	}
	j := w.queue[0]
	w.queue[0] = job{}
	w.queue = w.queue[1:]
	return j, true
}

// Run drains queued jobs until ctx is done. Jobs still queued on return are
// left for Flush.
func (w *WriteBack) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.wake:
			w.drain(ctx)
		}
	}
}

// Flush saves every pending room now, without waiting for the quiet period,
// and runs all queued jobs. It is the shutdown path.
func (w *WriteBack) Flush(ctx context.Context) error {
	w.mu.Lock()
	for id, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, id)
		w.queue = append(w.queue, job{kind: jobSave, roomID: id, state: p.state})
	}
	w.mu.Unlock()
	return w.drain(ctx)
}

// drain runs queued jobs in order. Failures are logged and returned joined.
func (w *WriteBack) drain(ctx context.Context) error {
	w.workMu.Lock()
	defer w.workMu.Unlock()

	var errs []error
	for {
		if ctx.Err() != nil {
			return errors.Join(append(errs, ctx.Err())...)
		}
		j, ok := w.pop()
		if !ok {
			return errors.Join(errs...)
		}
		if err := w.run(ctx, j); err != nil {
			errs = append(errs, err)
		}
	}
}

func (w *WriteBack) run(ctx context.Context, j job) error {
	opCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	var err error
	switch j.kind {
	case jobSave:
		err = w.store.Save(opCtx, j.state)
		if err != nil {
			w.log.WithError(err).Errorf("Room %s: failed to save version %d.", j.roomID, j.state.Version)
		} else {
			w.log.Debugf("Room %s: saved version %d.", j.roomID, j.state.Version)
		}
	case jobDelete:
		err = w.store.Delete(opCtx, j.roomID)
		w.mu.Lock()
		if w.deleting[j.roomID]--; w.deleting[j.roomID] <= 0 {
			delete(w.deleting, j.roomID)
		}
		w.mu.Unlock()
		if err != nil {
			w.log.WithError(err).Errorf("Room %s: failed to delete durable copy.", j.roomID)
		} else {
			w.log.Debugf("Room %s: durable copy deleted.", j.roomID)
		}
	}
	if err != nil && w.OnError != nil {
		w.OnError(j.roomID, err)
	}
	return err
}
