package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trailborn/tours-api/internal/domain"
	"github.com/trailborn/tours-api/internal/http/request"
)

type TourRepository interface {
	Create(ctx context.Context, t *domain.Tour) (*domain.Tour, error)
	FindByID(ctx context.Context, id int64) (*domain.Tour, error)
	Find(ctx context.Context, opts request.ListOptions) ([]domain.Tour, error)
	UpdateByID(ctx context.Context, id int64, patch *domain.TourPatch) (*domain.Tour, error)
	DeleteByID(ctx context.Context, id int64) error

	FindBySlug(ctx context.Context, slug string) (*domain.Tour, error)
	Stats(ctx context.Context) ([]domain.TourStats, error)
	MonthlyPlan(ctx context.Context, year int) ([]domain.MonthlyPlan, error)
}

// ReviewsLoader resolves the reviews relation when a single tour is read.
type ReviewsLoader interface {
	ListByTour(ctx context.Context, tourID int64) ([]domain.Review, error)
}

type tourRepository struct {
	pool    *pgxpool.Pool
	reviews ReviewsLoader
}

func NewTourRepository(pool *pgxpool.Pool, reviews ReviewsLoader) TourRepository {
	return &tourRepository{pool: pool, reviews: reviews}
}

const tourCols = `id, name, slug, duration, max_group_size, difficulty,
ratings_average, ratings_quantity, price, price_discount,
summary, description, image_cover, start_date, secret, locations,
created_at, updated_at`

var tourFilterCols = map[string]column{
	"name":            {"name", kindText},
	"duration":        {"duration", kindInt},
	"maxGroupSize":    {"max_group_size", kindInt},
	"difficulty":      {"difficulty", kindText},
	"ratingsAverage":  {"ratings_average", kindFloat},
	"ratingsQuantity": {"ratings_quantity", kindInt},
	"price":           {"price", kindFloat},
	"created_at":      {"created_at", kindTime},
}

func scanTour(row pgx.Row) (*domain.Tour, error) {
	var t domain.Tour
	err := row.Scan(
		&t.ID, &t.Name, &t.Slug, &t.Duration, &t.MaxGroupSize, &t.Difficulty,
		&t.RatingsAverage, &t.RatingsQuantity, &t.Price, &t.PriceDiscount,
		&t.Summary, &t.Description, &t.ImageCover, &t.StartDate, &t.Secret, &t.Locations,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tourRepository) Create(ctx context.Context, t *domain.Tour) (*domain.Tour, error) {
	const q = `
		INSERT INTO tours (
			name, slug, duration, max_group_size, difficulty,
			ratings_average, price, price_discount,
			summary, description, image_cover, start_date, secret, locations
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING ` + tourCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	created, err := scanTour(r.pool.QueryRow(ctx, q,
		t.Name, t.Slug, t.Duration, t.MaxGroupSize, t.Difficulty,
		t.RatingsAverage, t.Price, t.PriceDiscount,
		t.Summary, t.Description, t.ImageCover, t.StartDate, t.Secret, t.Locations,
	))
	if err != nil {
		return nil, translateErr(err)
	}
	return created, nil
}

// Secret tours are hidden from every read path, single reads included.
const (
	tourByIDQuery   = `SELECT ` + tourCols + ` FROM tours WHERE id = $1 AND NOT secret`
	tourBySlugQuery = `SELECT ` + tourCols + ` FROM tours WHERE slug = $1 AND NOT secret`
)

func (r *tourRepository) FindByID(ctx context.Context, id int64) (*domain.Tour, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	t, err := scanTour(r.pool.QueryRow(ctx, tourByIDQuery, id))
	if err != nil || t == nil {
		return t, err
	}
	return r.populateReviews(ctx, t)
}

func (r *tourRepository) FindBySlug(ctx context.Context, slug string) (*domain.Tour, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	t, err := scanTour(r.pool.QueryRow(ctx, tourBySlugQuery, slug))
	if err != nil || t == nil {
		return t, err
	}
	return r.populateReviews(ctx, t)
}

func (r *tourRepository) populateReviews(ctx context.Context, t *domain.Tour) (*domain.Tour, error) {
	if r.reviews == nil {
		return t, nil
	}
	reviews, err := r.reviews.ListByTour(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	t.Reviews = reviews
	return t, nil
}

func (r *tourRepository) Find(ctx context.Context, opts request.ListOptions) ([]domain.Tour, error) {
	q, args, err := buildListQuery(
		`SELECT `+tourCols+` FROM tours`,
		[]string{"NOT secret"}, nil,
		opts, tourFilterCols, "created_at DESC",
	)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tours []domain.Tour
	for rows.Next() {
		t, err := scanTour(rows)
		if err != nil {
			return nil, err
		}
		tours = append(tours, *t)
	}
	return tours, rows.Err()
}

func (r *tourRepository) UpdateByID(ctx context.Context, id int64, patch *domain.TourPatch) (*domain.Tour, error) {
	const q = `
		UPDATE tours
		SET
			name = COALESCE($2, name),
			duration = COALESCE($3, duration),
			max_group_size = COALESCE($4, max_group_size),
			difficulty = COALESCE($5, difficulty),
			price = COALESCE($6, price),
			price_discount = COALESCE($7, price_discount),
			summary = COALESCE($8, summary),
			description = COALESCE($9, description),
			image_cover = COALESCE($10, image_cover),
			start_date = COALESCE($11, start_date),
			secret = COALESCE($12, secret),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + tourCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	t, err := scanTour(r.pool.QueryRow(ctx, q, id,
		patch.Name, patch.Duration, patch.MaxGroupSize, patch.Difficulty,
		patch.Price, patch.PriceDiscount, patch.Summary, patch.Description,
		patch.ImageCover, patch.StartDate, patch.Secret,
	))
	if err != nil {
		return nil, translateErr(err)
	}
	return t, nil
}

func (r *tourRepository) DeleteByID(ctx context.Context, id int64) error {
	const q = `DELETE FROM tours WHERE id = $1`
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

// Stats aggregates highly rated tours grouped by difficulty.
func (r *tourRepository) Stats(ctx context.Context) ([]domain.TourStats, error) {
	const q = `
		SELECT
			upper(difficulty),
			COUNT(*),
			COALESCE(SUM(ratings_quantity), 0),
			COALESCE(AVG(ratings_average), 0),
			COALESCE(AVG(price), 0),
			COALESCE(MIN(price), 0),
			COALESCE(MAX(price), 0)
		FROM tours
		WHERE ratings_average >= 4.5
		GROUP BY difficulty
		ORDER BY AVG(price)`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []domain.TourStats
	for rows.Next() {
		var s domain.TourStats
		if err := rows.Scan(
			&s.Difficulty, &s.NumTours, &s.NumRatings,
			&s.AvgRating, &s.AvgPrice, &s.MinPrice, &s.MaxPrice,
		); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// MonthlyPlan counts tour starts per month of the given year, busiest
// months first.
func (r *tourRepository) MonthlyPlan(ctx context.Context, year int) ([]domain.MonthlyPlan, error) {
	const q = `
		SELECT
			EXTRACT(MONTH FROM start_date)::int AS month,
			COUNT(*),
			array_agg(name ORDER BY name)
		FROM tours
		WHERE NOT secret
		  AND start_date >= make_date($1, 1, 1)
		  AND start_date < make_date($1 + 1, 1, 1)
		GROUP BY month
		ORDER BY COUNT(*) DESC, month`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plan []domain.MonthlyPlan
	for rows.Next() {
		var p domain.MonthlyPlan
		if err := rows.Scan(&p.Month, &p.NumTourStarts, &p.Tours); err != nil {
			return nil, err
		}
		plan = append(plan, p)
	}
	return plan, rows.Err()
}
