package dispatcher

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestManualRunOneInOrder(t *testing.T) {
	m := NewManual()
	var order []int

	m.Submit(func() { order = append(order, 1) })
	m.Submit(func() { order = append(order, 2) })

	require.Equal(t, 2, m.Pending())
	require.True(t, m.RunOne())
	require.Equal(t, 1, m.Pending())
	require.True(t, m.RunOne())
	require.Equal(t, 0, m.Pending())
	require.False(t, m.RunOne())

	require.Equal(t, []int{1, 2}, order)
}

func TestManualDrainFollowsResubmission(t *testing.T) {
	m := NewManual()
	steps := 0

	var activation func()
	activation = func() {
		steps++
		if steps < 3 {
			m.Submit(activation)
		}
	}
	m.Submit(activation)

	ran := m.Drain(10)
	require.Equal(t, 3, ran)
	require.Equal(t, 3, steps)
	require.Equal(t, 0, m.Pending())
}

func TestManualDrainBoundsRunawayResubmission(t *testing.T) {
	m := NewManual()

	var activation func()
	activation = func() { m.Submit(activation) }
	m.Submit(activation)

	ran := m.Drain(5)
	require.Equal(t, 5, ran)
}
