package dag

import "sync"

// subscription is a one-shot fan-out of FinishFuncs. Once fired, every
// subscriber has been called exactly once and the list is retired; late
// subscribers are called immediately.
type subscription struct {
	mu    sync.Mutex
	fns   []FinishFunc
	fired bool
	name  string
}

func (s *subscription) subscribe(fn FinishFunc) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	if s.fired {
		name := s.name
		s.mu.Unlock()
		fn(name)
		return
	}
	s.fns = append(s.fns, fn)
	s.mu.Unlock()
}

func (s *subscription) fire(name string) {
	s.mu.Lock()
	if s.fired {
		s.mu.Unlock()
		return
	}
	s.fired = true
	s.name = name
	fns := s.fns
	s.fns = nil
	s.mu.Unlock()

	for _, fn := range fns {
		fn(name)
	}
}

// GraphListener observes a graph run.
type GraphListener interface {
	GraphStarted(graph string)
	NodeFinished(graph, node string)
	GraphFinished(graph string)
}

// ListenerFuncs adapts plain functions to GraphListener. Nil fields are
// skipped.
type ListenerFuncs struct {
	Started  func(graph string)
	Node     func(graph, node string)
	Finished func(graph string)
}

func (l ListenerFuncs) GraphStarted(graph string) {
	if l.Started != nil {
		l.Started(graph)
	}
}

func (l ListenerFuncs) NodeFinished(graph, node string) {
	if l.Node != nil {
		l.Node(graph, node)
	}
}

func (l ListenerFuncs) GraphFinished(graph string) {
	if l.Finished != nil {
		l.Finished(graph)
	}
}
