// Package queue imposes a deterministic total order over concurrently
// pending signals so the engine acts on exactly one at a time.
package queue

import (
	"container/heap"
	"sort"
	"sync"
	"time"

	"wyckoff/internal/logger"
	"wyckoff/internal/signal"
)

// PrioritizedSignal wraps a signal with its computed ranking fields. It only
// exists inside the queue and is never persisted.
type PrioritizedSignal struct {
	Signal        *signal.Signal
	Score         float64
	PatternWeight float64
	CreatedAt     time.Time

	index int
}

// Less implements the strict total order: score desc, pattern weight desc,
// creation time asc. The timestamp tie-break keeps the relation total for
// practical purposes.
func (a *PrioritizedSignal) less(b *PrioritizedSignal) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.PatternWeight != b.PatternWeight {
		return a.PatternWeight > b.PatternWeight
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

type signalHeap []*PrioritizedSignal

func (h signalHeap) Len() int           { return len(h) }
func (h signalHeap) Less(i, j int) bool { return h[i].less(h[j]) }
func (h signalHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *signalHeap) Push(x any) {
	ps := x.(*PrioritizedSignal)
	ps.index = len(*h)
	*h = append(*h, ps)
}

func (h *signalHeap) Pop() any {
	old := *h
	n := len(old)
	ps := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return ps
}

// SignalQueue is a max-priority queue over pending signals. Push is safe for
// concurrent producers; Pop is owned by a single logical consumer (the
// engine actor) and concurrent Pop is not a supported access pattern.
type SignalQueue struct {
	mu      sync.Mutex
	heap    signalHeap
	queued  map[string]struct{}
	weights *WeightTable
}

func New(weights *WeightTable) *SignalQueue {
	if weights == nil {
		weights = DefaultWeights()
	}
	return &SignalQueue{
		queued:  make(map[string]struct{}),
		weights: weights,
	}
}

// Push enqueues a signal. A signal whose identity is already queued is a
// logged no-op; suppression is by ID, not value.
func (q *SignalQueue) Push(s *signal.Signal) {
	if s == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.queued[s.ID]; ok {
		logger.Debugf("SignalQueue: duplicate push suppressed id=%s symbol=%s", s.ID, s.Symbol)
		return
	}
	ps := q.rank(s)
	heap.Push(&q.heap, ps)
	q.queued[s.ID] = struct{}{}
	logger.Event("signal_queued",
		"signal_id", s.ID,
		"symbol", s.Symbol,
		"pattern", string(s.Pattern),
		"score", ps.Score,
		"depth", len(q.heap),
	)
}

// Pop removes and returns the highest-priority signal, or nil when empty.
func (q *SignalQueue) Pop() *signal.Signal {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.heap) == 0 {
		return nil
	}
	ps := heap.Pop(&q.heap).(*PrioritizedSignal)
	delete(q.queued, ps.Signal.ID)
	return ps.Signal
}

// Peek returns the highest-priority signal without removing it.
func (q *SignalQueue) Peek() *signal.Signal {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.heap) == 0 {
		return nil
	}
	return q.heap[0].Signal
}

func (q *SignalQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}

func (q *SignalQueue) IsEmpty() bool { return q.Len() == 0 }

func (q *SignalQueue) rank(s *signal.Signal) *PrioritizedSignal {
	w := q.weights.Weight(s.Pattern)
	return &PrioritizedSignal{
		Signal:        s,
		Score:         Score(s.Confidence, s.RMultiple, w),
		PatternWeight: w,
		CreatedAt:     s.CreatedAt,
	}
}

// Score computes the ranking score:
// confidence*0.4 + (rMultiple*10)*0.3 + patternWeight*0.3.
func Score(confidence, rMultiple, patternWeight float64) float64 {
	return confidence*0.4 + (rMultiple*10)*0.3 + patternWeight*0.3
}

// Prioritize applies the queue's total order to a batch without going
// through push/pop, for offline ranking. The input slice is not modified.
func (q *SignalQueue) Prioritize(signals []*signal.Signal) []*signal.Signal {
	ranked := make([]*PrioritizedSignal, 0, len(signals))
	for _, s := range signals {
		if s == nil {
			continue
		}
		ranked = append(ranked, q.rank(s))
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].less(ranked[j]) })
	out := make([]*signal.Signal, len(ranked))
	for i, ps := range ranked {
		out[i] = ps.Signal
	}
	return out
}
