package cleanup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"yapper/store"
)

type fakeQueue struct {
	records []store.FileDeletion
	removed []primitive.ObjectID
	dueErr  error
}

func (f *fakeQueue) Due(ctx context.Context, now time.Time) ([]store.FileDeletion, error) {
	if f.dueErr != nil {
		return nil, f.dueErr
	}
	var out []store.FileDeletion
	for _, r := range f.records {
		if !r.DueAt.After(now) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeQueue) Remove(ctx context.Context, id primitive.ObjectID) error {
	f.removed = append(f.removed, id)
	return nil
}

type fakeDestroyer struct {
	destroyed []string
	failFor   map[string]error
}

func (f *fakeDestroyer) Destroy(ctx context.Context, publicID string) error {
	if err, ok := f.failFor[publicID]; ok {
		return err
	}
	f.destroyed = append(f.destroyed, publicID)
	return nil
}

func record(publicID string, dueAt time.Time) store.FileDeletion {
	return store.FileDeletion{ID: primitive.NewObjectID(), PublicID: publicID, DueAt: dueAt}
}

func TestSweepDestroysDueRecords(t *testing.T) {
	now := time.Now()
	due := record("chat/a", now.Add(-time.Minute))
	future := record("chat/b", now.Add(time.Hour))
	queue := &fakeQueue{records: []store.FileDeletion{due, future}}
	destroyer := &fakeDestroyer{}
	s := NewSweeper(queue, destroyer, time.Minute, zerolog.Nop())

	s.Sweep(context.Background())

	assert.Equal(t, []string{"chat/a"}, destroyer.destroyed)
	assert.Equal(t, []primitive.ObjectID{due.ID}, queue.removed)
}

func TestSweepKeepsRecordOnDestroyFailure(t *testing.T) {
	now := time.Now()
	broken := record("chat/broken", now.Add(-time.Minute))
	fine := record("chat/fine", now.Add(-time.Minute))
	queue := &fakeQueue{records: []store.FileDeletion{broken, fine}}
	destroyer := &fakeDestroyer{failFor: map[string]error{
		"chat/broken": errors.New("rate limited"),
	}}
	s := NewSweeper(queue, destroyer, time.Minute, zerolog.Nop())

	s.Sweep(context.Background())

	// The failed record stays queued for the next sweep; the rest are
	// processed.
	assert.Equal(t, []string{"chat/fine"}, destroyer.destroyed)
	assert.Equal(t, []primitive.ObjectID{fine.ID}, queue.removed)
}

func TestSweepToleratesQueueError(t *testing.T) {
	queue := &fakeQueue{dueErr: errors.New("connection reset")}
	destroyer := &fakeDestroyer{}
	s := NewSweeper(queue, destroyer, time.Minute, zerolog.Nop())

	s.Sweep(context.Background())

	assert.Empty(t, destroyer.destroyed)
}

func TestRunStopsOnCancel(t *testing.T) {
	queue := &fakeQueue{}
	s := NewSweeper(queue, &fakeDestroyer{}, time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
