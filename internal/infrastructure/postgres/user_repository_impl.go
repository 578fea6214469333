package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/phq9-intake/internal/domain/entity"
	"github.com/oksasatya/phq9-intake/internal/domain/repository"
)

// Constraint names from db/migrations, used to tell which unique field clashed.
const (
	constraintEmail    = "user_emailid_key"
	constraintUsername = "user_username_key"
)

const userColumns = `user_id::text, emailid, username, firstname, lastname, age, gender, industry, profession, password_hash, created_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO "user" (emailid, username, firstname, lastname, age, gender, industry, profession, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING user_id::text, created_at
	`, u.Email, u.Username, u.FirstName, u.LastName, u.Age, u.Gender, u.Industry, u.Profession, u.PasswordHash)

	return mapError(row.Scan(&u.ID, &u.CreatedAt))
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM "user" WHERE user_id = $1`, id)
	return scanUser(row)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM "user" WHERE emailid = $1`, email)
	return scanUser(row)
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM "user" WHERE emailid = $1)`, email).Scan(&ok)
	return ok, mapError(err)
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM "user" WHERE username = $1)`, username).Scan(&ok)
	return ok, mapError(err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*entity.User, error) {
	u := &entity.User{}
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.FirstName, &u.LastName, &u.Age,
		&u.Gender, &u.Industry, &u.Profession, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	return u, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
