package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/papillon/aggregator/internal/core/ports"
)

type recordingBackend struct {
	mu        sync.Mutex
	delivered []string
	done      chan struct{}
	expect    int
}

func newRecordingBackend(expect int) *recordingBackend {
	return &recordingBackend{done: make(chan struct{}), expect: expect}
}

func (b *recordingBackend) Notify(ctx context.Context, n ports.Notification) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delivered = append(b.delivered, n.ID)
	if len(b.delivered) == b.expect {
		close(b.done)
	}
	return nil
}

func (b *recordingBackend) perAccount(account string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, id := range b.delivered {
		if strings.HasPrefix(id, account+":") {
			out = append(out, id)
		}
	}
	return out
}

func TestQueue_PreservesPerAccountOrder(t *testing.T) {
	const perAccount = 20
	backend := newRecordingBackend(2 * perAccount)
	queue := NewQueue(4, backend, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Start(ctx)

	for i := 0; i < perAccount; i++ {
		for _, account := range []string{"acct-a", "acct-b"} {
			err := queue.Notify(ctx, ports.Notification{ID: fmt.Sprintf("%s:%d", account, i)})
			if err != nil {
				t.Fatalf("notify: %v", err)
			}
		}
	}

	select {
	case <-backend.done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for deliveries")
	}

	for _, account := range []string{"acct-a", "acct-b"} {
		got := backend.perAccount(account)
		if len(got) != perAccount {
			t.Fatalf("%s: expected %d deliveries, got %d", account, perAccount, len(got))
		}
		for i, id := range got {
			want := fmt.Sprintf("%s:%d", account, i)
			if id != want {
				t.Fatalf("%s: delivery %d out of order: got %s, want %s", account, i, id, want)
			}
		}
	}
}

func TestQueue_DefaultWorkerCount(t *testing.T) {
	queue := NewQueue(0, newRecordingBackend(1), zerolog.Nop())
	if len(queue.workers) != defaultWorkers {
		t.Fatalf("expected %d workers, got %d", defaultWorkers, len(queue.workers))
	}
}

func TestAccountKey(t *testing.T) {
	if got := accountKey("acct-1:news"); got != "acct-1" {
		t.Fatalf("unexpected key: %s", got)
	}
	if got := accountKey("bare-id"); got != "bare-id" {
		t.Fatalf("unexpected key: %s", got)
	}
}
