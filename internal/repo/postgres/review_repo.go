package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trailborn/tours-api/internal/domain"
	"github.com/trailborn/tours-api/internal/http/request"
)

type ReviewRepository interface {
	Create(ctx context.Context, rv *domain.Review) (*domain.Review, error)
	FindByID(ctx context.Context, id int64) (*domain.Review, error)
	Find(ctx context.Context, opts request.ListOptions) ([]domain.Review, error)
	UpdateByID(ctx context.Context, id int64, patch *domain.ReviewPatch) (*domain.Review, error)
	DeleteByID(ctx context.Context, id int64) error

	ListByTour(ctx context.Context, tourID int64) ([]domain.Review, error)

	// RecalcTourRatings recomputes the denormalized rating columns on the
	// tour from its current reviews. A tour with no reviews falls back to
	// the default average and a zero count.
	RecalcTourRatings(ctx context.Context, tourID int64) error
}

type reviewRepository struct {
	pool *pgxpool.Pool
}

func NewReviewRepository(pool *pgxpool.Pool) ReviewRepository {
	return &reviewRepository{pool: pool}
}

const reviewCols = `r.id, r.review, r.rating, r.tour_id, r.user_id, r.created_at, r.updated_at,
u.id, u.name, u.photo`

const reviewSelect = `SELECT ` + reviewCols + ` FROM reviews r JOIN users u ON u.id = r.user_id`

var reviewFilterCols = map[string]column{
	"rating":     {"r.rating", kindInt},
	"tour":       {"r.tour_id", kindInt},
	"user":       {"r.user_id", kindInt},
	"created_at": {"r.created_at", kindTime},
}

func scanReview(row pgx.Row) (*domain.Review, error) {
	var rv domain.Review
	var author domain.UserInfo
	err := row.Scan(
		&rv.ID, &rv.Review, &rv.Rating, &rv.TourID, &rv.UserID, &rv.CreatedAt, &rv.UpdatedAt,
		&author.ID, &author.Name, &author.Photo,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rv.Author = &author
	return &rv, nil
}

func (r *reviewRepository) Create(ctx context.Context, rv *domain.Review) (*domain.Review, error) {
	const q = `
		INSERT INTO reviews (review, rating, tour_id, user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var id int64
	if err := r.pool.QueryRow(ctx, q, rv.Review, rv.Rating, rv.TourID, rv.UserID).Scan(&id); err != nil {
		return nil, translateErr(err)
	}
	return r.FindByID(ctx, id)
}

func (r *reviewRepository) FindByID(ctx context.Context, id int64) (*domain.Review, error) {
	const q = reviewSelect + ` WHERE r.id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanReview(r.pool.QueryRow(ctx, q, id))
}

func (r *reviewRepository) Find(ctx context.Context, opts request.ListOptions) ([]domain.Review, error) {
	q, args, err := buildListQuery(reviewSelect, nil, nil, opts, reviewFilterCols, "r.created_at DESC")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return r.queryReviews(ctx, q, args...)
}

func (r *reviewRepository) ListByTour(ctx context.Context, tourID int64) ([]domain.Review, error) {
	const q = reviewSelect + ` WHERE r.tour_id = $1 ORDER BY r.created_at DESC`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return r.queryReviews(ctx, q, tourID)
}

func (r *reviewRepository) queryReviews(ctx context.Context, q string, args ...any) ([]domain.Review, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []domain.Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, *rv)
	}
	return reviews, rows.Err()
}

func (r *reviewRepository) UpdateByID(ctx context.Context, id int64, patch *domain.ReviewPatch) (*domain.Review, error) {
	const q = `
		UPDATE reviews
		SET
			review = COALESCE($2, review),
			rating = COALESCE($3, rating),
			updated_at = now()
		WHERE id = $1
		RETURNING id`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var updatedID int64
	err := r.pool.QueryRow(ctx, q, id, patch.Review, patch.Rating).Scan(&updatedID)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, translateErr(err)
	}
	return r.FindByID(ctx, updatedID)
}

func (r *reviewRepository) DeleteByID(ctx context.Context, id int64) error {
	const q = `DELETE FROM reviews WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *reviewRepository) RecalcTourRatings(ctx context.Context, tourID int64) error {
	const q = `
		UPDATE tours t
		SET
			ratings_average = COALESCE(agg.avg_rating, $2),
			ratings_quantity = COALESCE(agg.num, 0),
			updated_at = now()
		FROM (
			SELECT ROUND(AVG(rating)::numeric, 1) AS avg_rating, COUNT(*) AS num
			FROM reviews
			WHERE tour_id = $1
		) agg
		WHERE t.id = $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, tourID, domain.DefaultRatingsAverage)
	return err
}
