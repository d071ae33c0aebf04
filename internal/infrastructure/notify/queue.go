package notify

import (
	"context"
	"hash/fnv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/papillon/aggregator/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Queue routes notifications to a fixed set of workers using consistent
// hashing on the account prefix of the notification ID, guaranteeing
// per-account delivery ordering. Delivery itself is delegated to the wrapped
// backend.
type Queue struct {
	workers []chan ports.Notification
	backend ports.Notifier
	log     zerolog.Logger
}

// NewQueue creates a Queue with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewQueue(numWorkers int, backend ports.Notifier, log zerolog.Logger) *Queue {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	q := &Queue{
		workers: make([]chan ports.Notification, numWorkers),
		backend: backend,
		log:     log,
	}
	for i := range q.workers {
		q.workers[i] = make(chan ports.Notification, channelBuffer)
	}
	return q
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (q *Queue) Start(ctx context.Context) {
	for i, ch := range q.workers {
		go q.runWorker(ctx, i, ch)
	}
}

// Notify hands the notification to the worker responsible for its account.
// The call is non-blocking up to channelBuffer capacity.
func (q *Queue) Notify(ctx context.Context, n ports.Notification) error {
	q.workers[q.shardIndex(accountKey(n.ID))] <- n
	return nil
}

// accountKey extracts the account prefix of a notification ID. IDs are
// "<account>:<suffix>"; a bare ID shards on its full value.
func accountKey(id string) string {
	if i := strings.IndexByte(id, ':'); i > 0 {
		return id[:i]
	}
	return id
}

// shardIndex maps an account key deterministically to a worker index.
func (q *Queue) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32()) % len(q.workers)
}

func (q *Queue) runWorker(ctx context.Context, id int, ch <-chan ports.Notification) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			if err := q.backend.Notify(ctx, n); err != nil {
				q.log.Error().Err(err).
					Int("worker", id).
					Str("notification", n.ID).
					Msg("notification delivery failed")
			}
		}
	}
}
