package executor

import (
	"log/slog"
	"sync"
)

// Serial runs tasks one at a time on a single dedicated goroutine, in the
// order they were submitted.
type Serial struct {
	queue     *queue
	logger    *slog.Logger
	done      chan struct{}
	closeOnce sync.Once
}

// NewSerial starts a serial executor.
func NewSerial(logger *slog.Logger) *Serial {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Serial{
		queue:  newQueue(),
		logger: logger,
		done:   make(chan struct{}),
	}
	go s.loop()
	return s
}

// Submit implements Executor.
func (s *Serial) Submit(task func()) error {
	return s.queue.push(task)
}

func (s *Serial) loop() {
	defer close(s.done)
	for {
		task, ok := s.queue.pop()
		if !ok {
			return
		}
		s.run(task)
	}
}

func (s *Serial) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Task panicked on serial executor.", "panic", r)
		}
	}()
	task()
}

// Close stops accepting work and waits for every queued task to run. It must
// not be called from a task running on this executor.
func (s *Serial) Close() error {
	s.closeOnce.Do(func() {
		s.queue.close()
	})
	<-s.done
	return nil
}
