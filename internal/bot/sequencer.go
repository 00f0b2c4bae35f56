package bot

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
)

// Sequencer runs the tasks of one chat one at a time in submission order.
// Tasks of different chats run concurrently. A chat's goroutine exits as soon
// as its queue drains.
type Sequencer struct {
	mu     sync.Mutex
	lanes  map[int64]*lane
	closed bool
	wg     sync.WaitGroup
	log    *slog.Logger
}

type lane struct {
	queue []func()
}

func NewSequencer(log *slog.Logger) *Sequencer {
	if log == nil {
		log = slog.Default()
	}
	return &Sequencer{
		lanes: make(map[int64]*lane),
		log:   log,
	}
}

// Submit queues task on chatID's lane. It returns false once Close has been called.
func (s *Sequencer) Submit(chatID int64, task func()) bool {
	if task == nil {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	if l, ok := s.lanes[chatID]; ok {
		l.queue = append(l.queue, task)
		return true
	}

	l := &lane{queue: []func(){task}}
	s.lanes[chatID] = l
	s.wg.Add(1)
	go s.drain(chatID, l)
	return true
}

// Active returns the number of chats with queued or running work.
func (s *Sequencer) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lanes)
}

// Close stops accepting tasks and waits for the queued ones to finish or ctx to expire.
func (s *Sequencer) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sequencer) drain(chatID int64, l *lane) {
	defer s.wg.Done()

	for {
		s.mu.Lock()
		if len(l.queue) == 0 {
			delete(s.lanes, chatID)
			s.mu.Unlock()
			return
		}
		task := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		s.mu.Unlock()

		s.run(chatID, task)
	}
}

func (s *Sequencer) run(chatID int64, task func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic in chat lane",
				slog.Int64("chat_id", chatID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	task()
}
