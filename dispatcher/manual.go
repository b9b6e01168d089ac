package dispatcher

import "sync"

// Manual is a deterministic Dispatcher test double: Submit never runs
// anything itself, it only records the activation. Tests step the
// dispatcher forward explicitly with RunOne or Drain, which lets them
// assert on queue/window state between activations without racing a real
// goroutine pool.
type Manual struct {
	mu      sync.Mutex
	pending []func()
}

var _ Dispatcher = (*Manual)(nil)

// NewManual builds an empty Manual dispatcher.
func NewManual() *Manual {
	return &Manual{}
}

// Submit records run without executing it.
func (m *Manual) Submit(run func()) {
	m.mu.Lock()
	m.pending = append(m.pending, run)
	m.mu.Unlock()
}

// Pending reports how many activations are queued but not yet run.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// RunOne runs the oldest pending activation, if any, and reports whether
// there was one to run.
func (m *Manual) RunOne() bool {
	m.mu.Lock()
	if len(m.pending) == 0 {
		m.mu.Unlock()
		return false
	}
	run := m.pending[0]
	m.pending = m.pending[1:]
	m.mu.Unlock()

	run()
	return true
}

// Drain runs pending activations until none remain, including any that a
// running activation resubmits (e.g. the work loop resuming itself after a
// batch yield). It bounds itself at maxSteps to turn an infinite resubmit
// loop into a test failure instead of a hang.
func (m *Manual) Drain(maxSteps int) (ran int) {
	for i := 0; i < maxSteps; i++ {
		if !m.RunOne() {
			return ran
		}
		ran++
	}
	return ran
}
