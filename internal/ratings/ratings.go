// Package ratings keeps the denormalized rating columns on tours in
// step with the reviews written against them. It wraps the review store
// so every mutation is followed by a recompute of the owning tour.
package ratings

import (
	"context"
	"time"

	"github.com/trailborn/tours-api/internal/domain"
	"github.com/trailborn/tours-api/internal/http/request"
	"github.com/trailborn/tours-api/internal/repo/postgres"
	"github.com/trailborn/tours-api/pkg/events"
	"github.com/trailborn/tours-api/pkg/logger"
)

// Store wraps a review repository with rating synchronization and
// event publication.
type Store struct {
	reviews postgres.ReviewRepository
	bus     events.Publisher
}

func NewStore(reviews postgres.ReviewRepository, bus events.Publisher) *Store {
	if bus == nil {
		bus = events.NopPublisher{}
	}
	return &Store{reviews: reviews, bus: bus}
}

func (s *Store) Create(ctx context.Context, rv *domain.Review) (*domain.Review, error) {
	created, err := s.reviews.Create(ctx, rv)
	if err != nil {
		return nil, err
	}
	s.recalc(ctx, created.TourID)
	s.publish(ctx, events.ReviewCreated, created)
	return created, nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (*domain.Review, error) {
	return s.reviews.FindByID(ctx, id)
}

func (s *Store) Find(ctx context.Context, opts request.ListOptions) ([]domain.Review, error) {
	return s.reviews.Find(ctx, opts)
}

func (s *Store) ListByTour(ctx context.Context, tourID int64) ([]domain.Review, error) {
	return s.reviews.ListByTour(ctx, tourID)
}

func (s *Store) UpdateByID(ctx context.Context, id int64, patch *domain.ReviewPatch) (*domain.Review, error) {
	updated, err := s.reviews.UpdateByID(ctx, id, patch)
	if err != nil || updated == nil {
		return updated, err
	}
	s.recalc(ctx, updated.TourID)
	s.publish(ctx, events.ReviewUpdated, updated)
	return updated, nil
}

func (s *Store) DeleteByID(ctx context.Context, id int64) error {
	// The owning tour has to be resolved before the row disappears.
	rv, err := s.reviews.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if rv == nil {
		return domain.ErrNotFound
	}

	if err := s.reviews.DeleteByID(ctx, id); err != nil {
		return err
	}
	s.recalc(ctx, rv.TourID)
	s.publish(ctx, events.ReviewDeleted, rv)
	return nil
}

// recalc failures leave the tour columns stale until the next review
// mutation, so they are logged rather than surfaced to the caller.
func (s *Store) recalc(ctx context.Context, tourID int64) {
	if err := s.reviews.RecalcTourRatings(ctx, tourID); err != nil {
		logger.ErrorContext(ctx, "failed to recalculate tour ratings",
			"tour_id", tourID, "error", err)
	}
}

func (s *Store) publish(ctx context.Context, subject string, rv *domain.Review) {
	err := s.bus.Publish(ctx, subject, events.ReviewEvent{
		ReviewID: rv.ID,
		TourID:   rv.TourID,
		UserID:   rv.UserID,
		Rating:   rv.Rating,
		At:       time.Now().UTC(),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to publish review event",
			"subject", subject, "error", err)
	}
}
