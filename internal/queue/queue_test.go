package queue

import (
	"testing"
	"time"

	"wyckoff/internal/signal"

	"github.com/stretchr/testify/assert"
)

func newTestSignal(symbol string, pattern signal.PatternType, conf, r float64) *signal.Signal {
	s := signal.New(symbol, pattern, conf, r)
	return s
}

func TestScore(t *testing.T) {
	t.Run("High Weight Spring", func(t *testing.T) {
		// 75*0.4 + 30*0.3 + 100*0.3
		assert.InDelta(t, 69.0, Score(75, 3.0, 100), 1e-9)
	})
	t.Run("Low Weight UTAD", func(t *testing.T) {
		// 90*0.4 + 10*0.3 + 40*0.3
		assert.InDelta(t, 51.0, Score(90, 1.0, 40), 1e-9)
	})
}

func TestSignalQueue_Ordering(t *testing.T) {
	q := New(DefaultWeights())

	utad := newTestSignal("BTCUSDT", signal.PatternUTAD, 90, 1.0)
	spring := newTestSignal("EURUSD", signal.PatternSpring, 75, 3.0)
	q.Push(utad)
	q.Push(spring)

	t.Run("Higher Score Pops First", func(t *testing.T) {
		assert.Equal(t, spring.ID, q.Pop().ID)
		assert.Equal(t, utad.ID, q.Pop().ID)
		assert.True(t, q.IsEmpty())
	})
}

func TestSignalQueue_TieBreaks(t *testing.T) {
	q := New(DefaultWeights())

	t.Run("Pattern Weight Breaks Score Tie", func(t *testing.T) {
		// LPS weight 70, SOS weight 60. Pick confidences so scores match:
		// lps: c*0.4 + 30*0.3 + 21 ; sos: (c+7.5)*0.4 + 30*0.3 + 18.
		lps := newTestSignal("AAPL", signal.PatternLPS, 60, 3.0)
		sos := newTestSignal("AAPL", signal.PatternSOS, 67.5, 3.0)
		assert.InDelta(t,
			Score(lps.Confidence, lps.RMultiple, 70),
			Score(sos.Confidence, sos.RMultiple, 60), 1e-9)

		q.Push(sos)
		q.Push(lps)
		assert.Equal(t, lps.ID, q.Pop().ID, "higher pattern weight wins the tie")
		assert.Equal(t, sos.ID, q.Pop().ID)
	})

	t.Run("FIFO On Full Tie", func(t *testing.T) {
		first := newTestSignal("EURUSD", signal.PatternSpring, 80, 2.0)
		second := newTestSignal("GBPUSD", signal.PatternSpring, 80, 2.0)
		second.CreatedAt = first.CreatedAt.Add(time.Millisecond)

		q.Push(second)
		q.Push(first)
		assert.Equal(t, first.ID, q.Pop().ID, "earlier creation time wins")
		assert.Equal(t, second.ID, q.Pop().ID)
	})
}

func TestSignalQueue_DuplicateSuppression(t *testing.T) {
	q := New(nil)
	s := newTestSignal("EURUSD", signal.PatternSpring, 80, 2.0)

	q.Push(s)
	q.Push(s)
	assert.Equal(t, 1, q.Len())

	t.Run("Repushable After Pop", func(t *testing.T) {
		assert.Equal(t, s.ID, q.Pop().ID)
		q.Push(s)
		assert.Equal(t, 1, q.Len())
	})
}

func TestSignalQueue_PeekAndEmpty(t *testing.T) {
	q := New(nil)
	assert.Nil(t, q.Pop())
	assert.Nil(t, q.Peek())

	s := newTestSignal("EURUSD", signal.PatternSpring, 80, 2.0)
	q.Push(s)
	assert.Equal(t, s.ID, q.Peek().ID)
	assert.Equal(t, 1, q.Len(), "peek does not remove")
}

func TestSignalQueue_Prioritize(t *testing.T) {
	q := New(DefaultWeights())
	utad := newTestSignal("BTCUSDT", signal.PatternUTAD, 90, 1.0)
	spring := newTestSignal("EURUSD", signal.PatternSpring, 75, 3.0)
	lps := newTestSignal("AAPL", signal.PatternLPS, 65, 2.5)

	out := q.Prioritize([]*signal.Signal{utad, nil, lps, spring})
	assert.Len(t, out, 3)
	assert.Equal(t, spring.ID, out[0].ID)
	assert.Equal(t, lps.ID, out[1].ID)
	assert.Equal(t, utad.ID, out[2].ID)
	assert.Equal(t, 0, q.Len(), "batch ranking does not touch the queue")
}

func TestLoadWeights_Defaults(t *testing.T) {
	table := DefaultWeights()
	assert.Equal(t, 100.0, table.Weight(signal.PatternSpring))
	assert.Equal(t, 70.0, table.Weight(signal.PatternLPS))
	assert.Equal(t, 60.0, table.Weight(signal.PatternSOS))
	assert.Equal(t, 40.0, table.Weight(signal.PatternUTAD))
	assert.Equal(t, 0.0, table.Weight(signal.PatternType("UNKNOWN")))
}
