package future

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type futureTestSuite struct {
	suite.Suite
}

func TestFutureTestSuite(t *testing.T) {
	suite.Run(t, new(futureTestSuite))
}

func (s *futureTestSuite) TestNewResolvesValue() {
	f := New(func() (int, error) { return 42, nil })
	value, err := f.Await(context.Background())
	s.Require().NoError(err)
	s.Assert().Equal(42, value)
}

func (s *futureTestSuite) TestNewResolvesError() {
	boom := errors.New("boom")
	f := New(func() (int, error) { return 0, boom })
	_, err := f.Await(context.Background())
	s.Assert().ErrorIs(err, boom)
}

func (s *futureTestSuite) TestAwaitRepeatable() {
	f := Ready(7)
	for i := 0; i < 3; i++ {
		value, err := f.Await(context.Background())
		s.Require().NoError(err)
		s.Assert().Equal(7, value)
	}
}

func (s *futureTestSuite) TestAwaitContextCanceled() {
	c := NewCompleter[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := c.Future().Await(ctx)
	s.Assert().ErrorIs(err, context.DeadlineExceeded)
}

func (s *futureTestSuite) TestPollBeforeAndAfterCompletion() {
	c := NewCompleter[string]()
	f := c.Future()

	_, _, ok := f.Poll()
	s.Assert().False(ok)

	c.Success("done")

	value, err, ok := f.Poll()
	s.Require().True(ok)
	s.Assert().NoError(err)
	s.Assert().Equal("done", value)
}

func (s *futureTestSuite) TestCompleterSettlesOnce() {
	c := NewCompleter[int]()
	c.Success(1)

	value, err := c.Future().Await(context.Background())
	s.Require().NoError(err)
	s.Assert().Equal(1, value)
}

func (s *futureTestSuite) TestCompleterDoubleResolvePanics() {
	c := NewCompleter[int]()
	c.Success(1)

	s.Assert().PanicsWithValue(&ProgrammingError{Msg: "future: Success/Failure called more than once on the same Completer"}, func() {
		c.Success(2)
	})
	s.Assert().Panics(func() {
		c.Failure(errors.New("too late"))
	})
}

func (s *futureTestSuite) TestReentrantAwaitPanics() {
	var guard ReentrancyGuard
	c := NewGuardedCompleter[int](&guard)

	guard.Enter()
	defer guard.Exit()

	s.Assert().Panics(func() {
		_, _ = c.Future().Await(context.Background())
	})
}

func (s *futureTestSuite) TestGuardedAwaitFromOtherGoroutineDoesNotPanic() {
	var guard ReentrancyGuard
	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		guard.Enter()
		close(entered)
		<-release
		guard.Exit()
	}()
	<-entered
	defer close(release)

	c := NewGuardedCompleter[int](&guard)
	go c.Success(3)

	value, err := c.Future().Await(context.Background())
	s.Require().NoError(err)
	s.Assert().Equal(3, value)
}

func (s *futureTestSuite) TestStagedFutureFromThunkAcceptsImmediately() {
	staged := NewStagedFutureFromThunk(func() (int, error) {
		time.Sleep(5 * time.Millisecond)
		return 9, nil
	})

	s.Assert().True(staged.IsAccepted())

	value, err := staged.Await(context.Background())
	s.Require().NoError(err)
	s.Assert().Equal(9, value)
}

func (s *futureTestSuite) TestStagedFutureNestedAcceptanceFailurePropagates() {
	acceptErr := errors.New("rejected downstream")
	acceptance := Failed[Future[int]](acceptErr)
	staged := NewNestedStagedFuture(acceptance)

	_, err := staged.Await(context.Background())
	s.Assert().ErrorIs(err, acceptErr)
}

func (s *futureTestSuite) TestStagedFutureNestedHappyPath() {
	inner := Ready(5)
	acceptance := Ready(inner)
	staged := NewNestedStagedFuture(acceptance)

	value, err := staged.Await(context.Background())
	s.Require().NoError(err)
	s.Assert().Equal(5, value)
}

func (s *futureTestSuite) TestStagedFutureOnAccept() {
	inner := Ready("value")
	staged := NewStagedFuture(inner)

	done := make(chan Future[string], 1)
	staged.OnAccept(func(f Future[string], err error) {
		s.Require().NoError(err)
		done <- f
	})

	select {
	case f := <-done:
		value, err := f.Await(context.Background())
		s.Require().NoError(err)
		s.Assert().Equal("value", value)
	case <-time.After(time.Second):
		s.T().Fatal("OnAccept callback never fired")
	}
}
