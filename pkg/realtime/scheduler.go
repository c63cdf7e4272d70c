package realtime

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Phase is one step of a timed sequence. After is measured from the moment
// the previous phase ran (or from scheduling, for the first phase).
type Phase struct {
	Name  string
	After time.Duration
	Run   func(h *Handle)
}

// Handle identifies one scheduled sequence in a room's slot.
type Handle struct {
	room     string
	seq      uint64
	cancel   context.CancelFunc
	canceled atomic.Bool
	done     chan struct{}
	phase    atomic.Value // name of the last phase that ran
}

// Room returns the room the handle was scheduled for.
func (h *Handle) Room() string { return h.room }

// Canceled reports whether the sequence was canceled before it completed.
func (h *Handle) Canceled() bool { return h.canceled.Load() }

// Done is closed once the sequence goroutine exits, whether it completed or
// was canceled.
func (h *Handle) Done() <-chan struct{} { return h.done }

// LastPhase returns the name of the most recent phase that ran, or "".
func (h *Handle) LastPhase() string {
	name, _ := h.phase.Load().(string)
	return name
}

// Scheduler keeps at most one pending sequence per room. Phase callbacks run
// with the owner's locker held, and Cancel must be called with the same
// locker held; together this means a canceled phase never runs.
type Scheduler struct {
	locker sync.Locker

	mu    sync.Mutex
	slots map[string]*Handle
	seq   uint64
}

// NewScheduler creates a scheduler whose callbacks are serialized by locker.
// A nil locker gets a private mutex.
func NewScheduler(locker sync.Locker) *Scheduler {
	if locker == nil {
		locker = &sync.Mutex{}
	}
	return &Scheduler{
		locker: locker,
		slots:  make(map[string]*Handle),
	}
}

// Schedule cancels the room's current sequence, if any, and starts a new one.
func (s *Scheduler) Schedule(room string, phases ...Phase) *Handle {
	s.Cancel(room)

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.seq++
	h := &Handle{
		room:   room,
		seq:    s.seq,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.slots[room] = h
	s.mu.Unlock()

	go s.run(ctx, h, phases)
	return h
}

// Cancel stops the room's pending sequence. It is a no-op when nothing is
// pending and reports whether a sequence was canceled.
func (s *Scheduler) Cancel(room string) bool {
	s.mu.Lock()
	h, ok := s.slots[room]
	delete(s.slots, room)
	s.mu.Unlock()
	if !ok {
		return false
	}
	h.canceled.Store(true)
	h.cancel()
	return true
}

// Pending reports whether the room has a sequence that has not finished.
func (s *Scheduler) Pending(room string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.slots[room]
	return ok
}

// Current returns the room's pending handle.
func (s *Scheduler) Current(room string) (*Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.slots[room]
	return h, ok
}

// Len reports the number of rooms with a pending sequence.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}

// Stop cancels every pending sequence.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	slots := s.slots
	s.slots = make(map[string]*Handle)
	s.mu.Unlock()
	for _, h := range slots {
		h.canceled.Store(true)
		h.cancel()
	}
}

func (s *Scheduler) run(ctx context.Context, h *Handle, phases []Phase) {
	defer close(h.done)
	defer h.cancel()

	if len(phases) == 0 {
		s.locker.Lock()
		s.release(h)
		s.locker.Unlock()
		return
	}
	for i, p := range phases {
		wait := p.After
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		if !s.fire(h, p, i == len(phases)-1) {
			return
		}
	}
}

// fire runs one phase under the owner's lock. It returns false when the
// sequence must stop.
func (s *Scheduler) fire(h *Handle, p Phase, last bool) bool {
	s.locker.Lock()
	defer s.locker.Unlock()
	if h.Canceled() {
		return false
	}
	h.phase.Store(p.Name)
	if last {
		// Free the slot before the callback so it may schedule the next sequence.
		s.release(h)
	}
	if p.Run != nil {
		p.Run(h)
	}
	return !last && !h.Canceled()
}

func (s *Scheduler) release(h *Handle) {
	s.mu.Lock()
	if cur, ok := s.slots[h.room]; ok && cur == h {
		delete(s.slots, h.room)
	}
	s.mu.Unlock()
}
