package hotreload

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/leslieo2/go-asset-reload/internal/asset"
	"github.com/leslieo2/go-asset-reload/internal/constants"
	"github.com/leslieo2/go-asset-reload/internal/observability"
)

// Request asks the frame loop to reload one registered asset
type Request struct {
	Category asset.Category
	ID       string
	Path     string
	Queued   time.Time
}

type requestKey struct {
	category asset.Category
	id       string
}

// Queue hands reload requests from the watcher goroutine to the frame loop.
// Push never blocks; a pending request for the same asset absorbs later ones.
type Queue struct {
	mu       sync.Mutex
	items    []Request
	pending  map[requestKey]struct{}
	capacity int

	logger  *zap.Logger
	metrics *observability.Metrics
}

func NewQueue(capacity int, logger *zap.Logger, metrics *observability.Metrics) *Queue {
	if capacity <= 0 {
		capacity = constants.DefaultQueueSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		items:    make([]Request, 0, capacity),
		pending:  make(map[requestKey]struct{}, capacity),
		capacity: capacity,
		logger:   logger,
		metrics:  metrics,
	}
}

// Push enqueues r and reports whether it is now pending. It returns false only
// when the queue is full and r was dropped.
func (q *Queue) Push(r Request) bool {
	if r.Queued.IsZero() {
		r.Queued = time.Now()
	}
	key := requestKey{category: r.Category, id: r.ID}

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.pending[key]; ok {
		return true
	}
	if len(q.items) >= q.capacity {
		q.metrics.RecordQueueDrop()
		q.logger.Warn("Reload queue full, dropping request",
			zap.String("id", r.ID),
			zap.Stringer("category", r.Category),
			zap.Int("capacity", q.capacity))
		return false
	}
	q.items = append(q.items, r)
	q.pending[key] = struct{}{}
	q.metrics.SetQueueDepth(len(q.items))
	return true
}

// Drain removes up to max requests in arrival order; max <= 0 takes everything
func (q *Queue) Drain(max int) []Request {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.items)
	if max > 0 && max < n {
		n = max
	}
	if n == 0 {
		return nil
	}

	out := make([]Request, n)
	copy(out, q.items[:n])
	q.items = append(q.items[:0], q.items[n:]...)
	for _, r := range out {
		delete(q.pending, requestKey{category: r.Category, id: r.ID})
	}
	q.metrics.SetQueueDepth(len(q.items))
	return out
}

// Requeue puts unapplied requests back at the head in their original order.
// Requests already pending again or beyond capacity are dropped.
func (q *Queue) Requeue(rs []Request) {
	if len(rs) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	head := make([]Request, 0, len(rs))
	for _, r := range rs {
		key := requestKey{category: r.Category, id: r.ID}
		if _, ok := q.pending[key]; ok {
			continue
		}
		if len(head)+len(q.items) >= q.capacity {
			q.metrics.RecordQueueDrop()
			q.logger.Warn("Reload queue full, dropping requeued request",
				zap.String("id", r.ID),
				zap.Stringer("category", r.Category),
				zap.Int("capacity", q.capacity))
			continue
		}
		head = append(head, r)
		q.pending[key] = struct{}{}
	}
	q.items = append(head, q.items...)
	q.metrics.SetQueueDepth(len(q.items))
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) Cap() int { return q.capacity }

func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = q.items[:0]
	clear(q.pending)
	q.metrics.SetQueueDepth(0)
}
