package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"

	"github.com/tochemey/seqexec/task"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type queueTestSuite struct {
	suite.Suite
}

func TestQueueTestSuite(t *testing.T) {
	suite.Run(t, new(queueTestSuite))
}

func newSyncNode() *Node {
	t := task.NewSync(context.Background(), task.FireAndForget, func() (struct{}, error) {
		return struct{}{}, nil
	})
	return &Node{Task: t}
}

func admittedNow(t *task.Task) bool {
	_, _, ok := t.Admitted().Poll()
	return ok
}

func (s *queueTestSuite) TestAppendEmptyActivates() {
	q := New(3)
	n := newSyncNode()
	result := q.Append(n)
	s.Assert().Equal(Accepted, result.Outcome)
	s.Assert().True(result.Activate)
	s.Assert().True(admittedNow(n.Task))
	s.Assert().Same(n, q.Head())
}

func (s *queueTestSuite) TestAppendBeyondCapacityIsPending() {
	q := New(2)
	first := newSyncNode()
	second := newSyncNode()
	third := newSyncNode()

	s.Require().True(q.Append(first).Activate)
	secondResult := q.Append(second)
	thirdResult := q.Append(third)

	s.Assert().Equal(Accepted, secondResult.Outcome)
	s.Assert().Equal(Pending, thirdResult.Outcome)
	s.Assert().False(admittedNow(third.Task))
	s.Assert().True(q.Full())
	s.Assert().True(q.IsAdmitted(first))
	s.Assert().True(q.IsAdmitted(second))
	s.Assert().False(q.IsAdmitted(third))
}

func (s *queueTestSuite) TestAdvanceAdmittedSlidesWindow() {
	q := New(1)
	first := newSyncNode()
	second := newSyncNode()

	q.Append(first)
	q.Append(second)
	s.Require().False(admittedNow(second.Task))

	q.AdvanceAdmitted(1)
	s.Assert().True(admittedNow(second.Task))
	s.Assert().True(q.IsAdmitted(second))
}

func (s *queueTestSuite) TestAdvanceAdmittedBelowCapacityIsNoop() {
	q := New(4)
	n := newSyncNode()
	q.Append(n)

	s.Assert().Equal(int32(1), q.AdmittedLen())
	// Below capacity, no pending node depends on this credit: the window's
	// occupancy count only matters once it has filled at least once, so a
	// credit here is a no-op CAS barrier rather than a state change.
	q.AdvanceAdmitted(1)
	s.Assert().Equal(int32(1), q.AdmittedLen())
}

func (s *queueTestSuite) TestTryDrainOnlySucceedsAtTail() {
	q := New(2)
	first := newSyncNode()
	second := newSyncNode()
	q.Append(first)
	q.Append(second)

	s.Assert().False(q.TryDrain(first))
	s.Assert().True(q.TryDrain(second))
	s.Assert().Nil(q.Head())
}
