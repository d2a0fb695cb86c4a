// Package cleanup deletes expired chat attachments from object storage.
// Deletion deadlines live in the database, so pending work survives a
// restart.
package cleanup

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"yapper/store"
)

// Queue is the slice of the deletion store the sweeper needs.
type Queue interface {
	Due(ctx context.Context, now time.Time) ([]store.FileDeletion, error)
	Remove(ctx context.Context, id primitive.ObjectID) error
}

// Destroyer removes an uploaded object by its public id.
type Destroyer interface {
	Destroy(ctx context.Context, publicID string) error
}

// Sweeper periodically destroys files whose deletion deadline has passed.
type Sweeper struct {
	queue    Queue
	storage  Destroyer
	interval time.Duration
	logger   zerolog.Logger
}

func NewSweeper(queue Queue, storage Destroyer, interval time.Duration, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		queue:    queue,
		storage:  storage,
		interval: interval,
		logger:   logger.With().Str("component", "cleanup").Logger(),
	}
}

// Run sweeps on a fixed interval until ctx is cancelled. One sweep runs
// immediately so a restart picks up overdue work without waiting a full
// interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep processes every due record once. A failed destroy leaves the
// record in place for the next sweep; a missing remote object counts as
// done.
func (s *Sweeper) Sweep(ctx context.Context) {
	due, err := s.queue.Due(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error().Err(err).Msg("load due deletions")
		return
	}

	for _, record := range due {
		if err := s.storage.Destroy(ctx, record.PublicID); err != nil {
			s.logger.Warn().Err(err).Str("publicId", record.PublicID).Msg("destroy file")
			continue
		}
		if err := s.queue.Remove(ctx, record.ID); err != nil {
			s.logger.Error().Err(err).Str("publicId", record.PublicID).Msg("remove deletion record")
		}
	}
	if len(due) > 0 {
		s.logger.Info().Int("processed", len(due)).Msg("sweep complete")
	}
}
