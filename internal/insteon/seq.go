package insteon

import (
	"sync"
	"sync/atomic"
)

// Step is one asynchronous operation in a CommandSeq. It must call onDone
// exactly once when it has finished.
type Step func(onDone DoneFunc)

// CommandSeq runs a list of asynchronous steps strictly one after another
// and reports a single aggregated result.
//
// Each step starts only after the previous step reported success. The first
// failing step ends the sequence: the completion callback receives that
// step's message and data. When every step succeeds the callback receives
// the sequence summary message and the last step's data.
//
// There is no compensation. Steps already applied stay applied when a later
// step fails, so callers must only sequence steps that are safe to leave
// applied on their own.
type CommandSeq struct {
	msg     string
	onDone  DoneFunc
	steps   []Step
	started atomic.Bool
	logger  Logger
}

// NewCommandSeq creates an empty sequence.
//
// Parameters:
//   - msg: Summary message reported when every step succeeds
//   - onDone: Completion callback (may be nil); fired exactly once
func NewCommandSeq(msg string, onDone DoneFunc) *CommandSeq {
	return &CommandSeq{
		msg:    msg,
		onDone: onDone,
		logger: NoopLogger{},
	}
}

// SetLogger sets the logger for the sequence.
func (s *CommandSeq) SetLogger(logger Logger) {
	s.logger = logger
}

// Add appends a step. Steps added after Run are ignored.
func (s *CommandSeq) Add(step Step) {
	if s.started.Load() {
		s.logger.Warn("step added to running command sequence ignored", "sequence", s.msg)
		return
	}
	s.steps = append(s.steps, step)
}

// Len returns the number of queued steps.
func (s *CommandSeq) Len() int {
	return len(s.steps)
}

// Run starts the sequence. An empty sequence completes immediately with
// success. Calling Run more than once has no effect.
func (s *CommandSeq) Run() {
	if !s.started.CompareAndSwap(false, true) {
		s.logger.Warn("command sequence already running", "sequence", s.msg)
		return
	}

	if len(s.steps) == 0 {
		s.onDone.Call(true, s.msg, nil)
		return
	}

	s.runStep(0)
}

// runStep starts step i with a private continuation that advances the sequence.
func (s *CommandSeq) runStep(i int) {
	var once sync.Once
	next := func(success bool, msg string, data any) {
		called := false
		once.Do(func() { called = true })
		if !called {
			s.logger.Warn("command sequence step completed twice",
				"sequence", s.msg,
				"step", i+1,
			)
			return
		}

		if !success {
			s.logger.Debug("command sequence step failed",
				"sequence", s.msg,
				"step", i+1,
				"of", len(s.steps),
				"message", msg,
			)
			s.onDone.Call(false, msg, data)
			return
		}

		if i+1 == len(s.steps) {
			s.onDone.Call(true, s.msg, data)
			return
		}

		s.runStep(i + 1)
	}

	s.steps[i](next)
}
