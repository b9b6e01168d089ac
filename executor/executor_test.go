package executor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"

	"github.com/tochemey/seqexec/dispatcher"
	"github.com/tochemey/seqexec/future"
	"github.com/tochemey/seqexec/task"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type executorTestSuite struct {
	suite.Suite
}

func TestExecutorTestSuite(t *testing.T) {
	suite.Run(t, new(executorTestSuite))
}

func newSync(fn func() (int, error)) *task.Task {
	return task.NewSync(context.Background(), task.ResultBearing, fn)
}

func newFuture(fn func() (future.Future[int], error)) *task.Task {
	return task.NewFuture(context.Background(), task.ResultBearing, fn)
}

func isAccepted(t *task.Task) bool {
	_, _, ok := t.Admitted().Poll()
	return ok
}

func intResult(t *task.Task) (int, error, bool) {
	value, err, ok := t.Result().Poll()
	if !ok {
		return 0, nil, false
	}
	v, _ := value.(int)
	return v, err, true
}

// --- Scenario 1: backpressure gate ---

func (s *executorTestSuite) TestBackpressureGate() {
	m := dispatcher.NewManual()
	e, err := New(3, m)
	s.Require().NoError(err)

	var counter atomic.Int32
	tasks := make([]*task.Task, 4)
	for i := range tasks {
		tasks[i] = newSync(func() (int, error) {
			return int(counter.Add(1)), nil
		})
		e.enqueue(tasks[i])
	}

	s.Assert().True(isAccepted(tasks[0]))
	s.Assert().True(isAccepted(tasks[1]))
	s.Assert().True(isAccepted(tasks[2]))
	s.Assert().False(isAccepted(tasks[3]))

	s.Require().Equal(1, m.Pending())
	s.Require().True(m.RunOne())

	for _, t := range tasks {
		s.Assert().True(isAccepted(t))
	}
	s.Assert().Equal(int32(4), counter.Load())
}

// --- Scenario 2: single-activation drain ---

func (s *executorTestSuite) TestSingleActivationDrain() {
	m := dispatcher.NewManual()
	e, err := New(3, m)
	s.Require().NoError(err)

	tasks := make([]*task.Task, 3)
	for i := range tasks {
		v := i + 1
		tasks[i] = newSync(func() (int, error) { return v, nil })
		e.enqueue(tasks[i])
	}

	s.Require().Equal(1, m.Pending())
	s.Require().True(m.RunOne())
	s.Assert().Equal(0, m.Pending())

	for i, t := range tasks {
		value, err, ok := intResult(t)
		s.Require().True(ok)
		s.Require().NoError(err)
		s.Assert().Equal(i+1, value)
	}
}

// --- Scenario 3: starvation guard ---

func (s *executorTestSuite) TestStarvationGuard() {
	m := dispatcher.NewManual()
	e, err := New(50, m, WithBatchSize(1000))
	s.Require().NoError(err)

	var counter atomic.Int32
	const total = 1050
	for i := 0; i < total; i++ {
		t := newSync(func() (int, error) {
			return int(counter.Add(1)), nil
		})
		e.enqueue(t)
	}

	activations := m.Drain(10)
	s.Assert().Equal(2, activations)
	s.Assert().Equal(int32(total), counter.Load())
}

// --- Scenario 4: async slot occupancy ---

func (s *executorTestSuite) TestAsyncSlotOccupancy() {
	m := dispatcher.NewManual()
	e, err := New(2, m)
	s.Require().NoError(err)

	completers := make([]future.Completer[int], 4)
	tasks := make([]*task.Task, 4)
	for i := 0; i < 2; i++ {
		completers[i] = future.NewCompleter[int]()
		idx := i
		tasks[i] = newFuture(func() (future.Future[int], error) {
			return completers[idx].Future(), nil
		})
		e.enqueue(tasks[i])
	}

	s.Require().True(m.RunOne())
	s.Assert().Equal(int32(2), e.q.InFlight())

	for i := 2; i < 4; i++ {
		completers[i] = future.NewCompleter[int]()
		idx := i
		tasks[i] = newFuture(func() (future.Future[int], error) {
			return completers[idx].Future(), nil
		})
		e.enqueue(tasks[i])
	}
	s.Assert().False(isAccepted(tasks[2]))
	s.Assert().False(isAccepted(tasks[3]))

	completers[0].Success(1)
	completers[1].Success(2)

	s.Require().Eventually(func() bool {
		return m.Pending() == 1
	}, time.Second, time.Millisecond)
	s.Require().True(m.RunOne())

	s.Assert().True(isAccepted(tasks[2]))
	s.Assert().True(isAccepted(tasks[3]))
}

// --- Scenario 5: mixed resume ---

func (s *executorTestSuite) TestMixedResume() {
	m := dispatcher.NewManual()
	e, err := New(3, m)
	s.Require().NoError(err)

	completers := make([]future.Completer[int], 6)
	tasks := make([]*task.Task, 6)
	for i := 0; i < 6; i++ {
		completers[i] = future.NewCompleter[int]()
		idx := i
		tasks[i] = newFuture(func() (future.Future[int], error) {
			return completers[idx].Future(), nil
		})
		e.enqueue(tasks[i])
	}

	for i := 0; i < 3; i++ {
		s.Assert().True(isAccepted(tasks[i]))
	}
	s.Assert().False(isAccepted(tasks[3]))

	s.Require().True(m.RunOne())
	s.Assert().Equal(int32(3), e.q.InFlight())
	s.Assert().False(isAccepted(tasks[3]))
	s.Assert().False(isAccepted(tasks[4]))
	s.Assert().False(isAccepted(tasks[5]))

	completers[0].Success(10)
	completers[1].Success(20)

	s.Require().Eventually(func() bool {
		return m.Pending() == 1
	}, time.Second, time.Millisecond)
	s.Require().True(m.RunOne())

	s.Assert().True(isAccepted(tasks[3]))
	s.Assert().True(isAccepted(tasks[4]))
	s.Assert().False(isAccepted(tasks[5]))
}

// --- Scenario 6: sync-after-async pruning ---

func (s *executorTestSuite) TestSyncAfterAsyncPruning() {
	m := dispatcher.NewManual()
	e, err := New(2, m)
	s.Require().NoError(err)

	noop := future.NewCompleter[int]()
	incA := future.NewCompleter[int]()
	incB := future.NewCompleter[int]()
	incC := future.NewCompleter[int]()

	asyncNoop := newFuture(func() (future.Future[int], error) {
		return noop.Future(), nil
	})
	syncBody := newSync(func() (int, error) {
		noop.Success(0)
		return 0, nil
	})
	asyncIncA := newFuture(func() (future.Future[int], error) { return incA.Future(), nil })
	asyncIncB := newFuture(func() (future.Future[int], error) { return incB.Future(), nil })
	asyncIncC := newFuture(func() (future.Future[int], error) { return incC.Future(), nil })

	e.enqueue(asyncNoop)
	e.enqueue(syncBody)
	e.enqueue(asyncIncA)
	e.enqueue(asyncIncB)
	e.enqueue(asyncIncC)

	s.Require().True(m.RunOne())

	accepted := 0
	for _, t := range []*task.Task{asyncNoop, syncBody, asyncIncA, asyncIncB, asyncIncC} {
		if isAccepted(t) {
			accepted++
		}
	}
	s.Assert().Equal(4, accepted)
	s.Assert().False(isAccepted(asyncIncC))
}

// --- Quantified invariants ---

func (s *executorTestSuite) TestFIFOExecutionOrder() {
	m := dispatcher.NewManual()
	e, err := New(100, m)
	s.Require().NoError(err)

	var order []int
	var mu sync.Mutex
	const total = 50
	for i := 0; i < total; i++ {
		v := i
		t := newSync(func() (int, error) {
			mu.Lock()
			order = append(order, v)
			mu.Unlock()
			return v, nil
		})
		e.enqueue(t)
	}

	s.Require().Equal(1, m.Drain(10))
	s.Require().Len(order, total)
	for i, v := range order {
		s.Assert().Equal(i, v)
	}
}

func (s *executorTestSuite) TestMutualExclusionUnderConcurrentProducers() {
	pool := dispatcher.NewPool(dispatcher.WithMaxConcurrency(8))
	defer pool.Close()
	e, err := New(16, pool)
	s.Require().NoError(err)

	var busy atomic.Bool
	var violated atomic.Bool
	var wg sync.WaitGroup

	const producers = 8
	const perProducer = 20
	wg.Add(producers * perProducer)
	for p := 0; p < producers; p++ {
		go func() {
			for i := 0; i < perProducer; i++ {
				t := newSync(func() (int, error) {
					if !busy.CompareAndSwap(false, true) {
						violated.Store(true)
					}
					time.Sleep(time.Microsecond)
					busy.Store(false)
					return 0, nil
				})
				e.enqueue(t)
				wg.Done()
			}
		}()
	}
	wg.Wait()

	s.Require().Eventually(func() bool {
		return e.q.Head() == nil
	}, 5*time.Second, time.Millisecond)
	s.Assert().False(violated.Load())
}

func (s *executorTestSuite) TestCapacityBoundNeverExceeded() {
	m := dispatcher.NewManual()
	const bufLen = int32(4)
	e, err := New(bufLen, m)
	s.Require().NoError(err)

	completers := make([]future.Completer[int], 10)
	for i := range completers {
		completers[i] = future.NewCompleter[int]()
		idx := i
		t := newFuture(func() (future.Future[int], error) {
			return completers[idx].Future(), nil
		})
		e.enqueue(t)
		occupancy := e.q.AdmittedLen()
		s.Require().LessOrEqual(occupancy, bufLen)
	}
}

func (s *executorTestSuite) TestBatchYieldResubmits() {
	m := dispatcher.NewManual()
	e, err := New(10, m, WithBatchSize(2))
	s.Require().NoError(err)

	var counter atomic.Int32
	for i := 0; i < 5; i++ {
		t := newSync(func() (int, error) {
			return int(counter.Add(1)), nil
		})
		e.enqueue(t)
	}

	activations := m.Drain(10)
	s.Assert().Greater(activations, 1)
	s.Assert().Equal(int32(5), counter.Load())
}

func (s *executorTestSuite) TestNoLostAcceptance() {
	m := dispatcher.NewManual()
	e, err := New(3, m)
	s.Require().NoError(err)

	const total = 20
	tasks := make([]*task.Task, total)
	for i := range tasks {
		t := newSync(func() (int, error) { return 0, nil })
		e.enqueue(t)
		tasks[i] = t
	}

	m.Drain(50)
	for _, t := range tasks {
		s.Assert().True(isAccepted(t))
	}
}

func (s *executorTestSuite) TestSlotReclamationAdvancesWindow() {
	m := dispatcher.NewManual()
	e, err := New(1, m)
	s.Require().NoError(err)

	c := future.NewCompleter[int]()
	first := newFuture(func() (future.Future[int], error) { return c.Future(), nil })
	second := newSync(func() (int, error) { return 7, nil })

	e.enqueue(first)
	e.enqueue(second)
	s.Assert().False(isAccepted(second))

	s.Require().True(m.RunOne())
	s.Assert().False(isAccepted(second))

	c.Success(1)
	s.Require().Eventually(func() bool {
		return m.Pending() == 1
	}, time.Second, time.Millisecond)
	s.Require().True(m.RunOne())

	s.Assert().True(isAccepted(second))
	value, err, ok := intResult(second)
	s.Require().True(ok)
	s.Require().NoError(err)
	s.Assert().Equal(7, value)
}

func (s *executorTestSuite) TestTaskFailureDoesNotPoisonExecutor() {
	m := dispatcher.NewManual()
	e, err := New(2, m)
	s.Require().NoError(err)

	boom := errors.New("boom")
	failing := newSync(func() (int, error) {
		return 0, boom
	})
	following := newSync(func() (int, error) { return 9, nil })

	e.enqueue(failing)
	e.enqueue(following)
	s.Require().Equal(1, m.Drain(10))

	_, err, ok := intResult(failing)
	s.Require().True(ok)
	s.Assert().Error(err)

	value, err, ok := intResult(following)
	s.Require().True(ok)
	s.Require().NoError(err)
	s.Assert().Equal(9, value)
}
