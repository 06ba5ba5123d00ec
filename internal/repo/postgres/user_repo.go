package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trailborn/tours-api/internal/domain"
	"github.com/trailborn/tours-api/internal/http/request"
)

// UserRepository is the credential store. All reads filter inactive users
// explicitly; soft-deleted accounts never surface again.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	Find(ctx context.Context, opts request.ListOptions) ([]domain.User, error)
	UpdateByID(ctx context.Context, id int64, patch *domain.UserPatch) (*domain.User, error)
	DeleteByID(ctx context.Context, id int64) error

	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id int64, req *domain.UpdateMeRequest) (*domain.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	SetResetToken(ctx context.Context, id int64, tokenHash string, expires time.Time) error
	ClearResetToken(ctx context.Context, id int64) error
	FindByResetToken(ctx context.Context, tokenHash string) (*domain.User, error)
	Deactivate(ctx context.Context, id int64) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userCols = `id, name, email, password_hash, role, photo,
password_changed_at, password_reset_token, password_reset_expires,
active, created_at, updated_at`

var userFilterCols = map[string]column{
	"name":       {"name", kindText},
	"email":      {"email", kindText},
	"role":       {"role", kindText},
	"created_at": {"created_at", kindTime},
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Photo,
		&u.PasswordChangedAt, &u.PasswordResetToken, &u.PasswordResetExpires,
		&u.Active, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	const q = `
		INSERT INTO users (name, email, password_hash, role, photo)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	role := u.Role
	if role == "" {
		role = domain.RoleUser
	}
	photo := u.Photo
	if photo == "" {
		photo = "default.jpg"
	}

	created, err := scanUser(r.pool.QueryRow(ctx, q, u.Name, u.Email, u.PasswordHash, role, photo))
	if err != nil {
		return nil, translateErr(err)
	}
	return created, nil
}

func (r *userRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id = $1 AND active`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanUser(r.pool.QueryRow(ctx, q, id))
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE email = $1 AND active`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanUser(r.pool.QueryRow(ctx, q, email))
}

func (r *userRepository) Find(ctx context.Context, opts request.ListOptions) ([]domain.User, error) {
	q, args, err := buildListQuery(
		`SELECT `+userCols+` FROM users`,
		[]string{"active"}, nil,
		opts, userFilterCols, "created_at DESC",
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

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *userRepository) UpdateByID(ctx context.Context, id int64, patch *domain.UserPatch) (*domain.User, error) {
	const q = `
		UPDATE users
		SET
			name = COALESCE($2, name),
			email = COALESCE($3, email),
			role = COALESCE($4, role),
			photo = COALESCE($5, photo),
			active = COALESCE($6, active),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + userCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, id, patch.Name, patch.Email, patch.Role, patch.Photo, patch.Active))
	if err != nil {
		return nil, translateErr(err)
	}
	return u, nil
}

func (r *userRepository) DeleteByID(ctx context.Context, id int64) error {
	const q = `DELETE FROM users WHERE id = $1`
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

func (r *userRepository) UpdateProfile(ctx context.Context, id int64, req *domain.UpdateMeRequest) (*domain.User, error) {
	const q = `
		UPDATE users
		SET
			name = COALESCE($2, name),
			email = COALESCE($3, email),
			photo = COALESCE($4, photo),
			updated_at = now()
		WHERE id = $1 AND active
		RETURNING ` + userCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, id, req.Name, req.Email, req.Photo))
	if err != nil {
		return nil, translateErr(err)
	}
	return u, nil
}

// UpdatePassword rehashes are done by the caller; this persists the new hash,
// stamps password_changed_at slightly in the past so tokens issued in the
// same second stay valid, and clears any pending reset token.
func (r *userRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	const q = `
		UPDATE users
		SET
			password_hash = $2,
			password_changed_at = now() - interval '1 second',
			password_reset_token = NULL,
			password_reset_expires = NULL,
			updated_at = now()
		WHERE id = $1 AND active`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id, passwordHash)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *userRepository) SetResetToken(ctx context.Context, id int64, tokenHash string, expires time.Time) error {
	const q = `
		UPDATE users
		SET password_reset_token = $2, password_reset_expires = $3, updated_at = now()
		WHERE id = $1 AND active`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id, tokenHash, expires)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *userRepository) ClearResetToken(ctx context.Context, id int64) error {
	const q = `
		UPDATE users
		SET password_reset_token = NULL, password_reset_expires = NULL, updated_at = now()
		WHERE id = $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, id)
	return err
}

func (r *userRepository) FindByResetToken(ctx context.Context, tokenHash string) (*domain.User, error) {
	const q = `
		SELECT ` + userCols + ` FROM users
		WHERE password_reset_token = $1 AND password_reset_expires > now() AND active`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanUser(r.pool.QueryRow(ctx, q, tokenHash))
}

func (r *userRepository) Deactivate(ctx context.Context, id int64) error {
	const q = `UPDATE users SET active = false, updated_at = now() WHERE id = $1 AND active`
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
