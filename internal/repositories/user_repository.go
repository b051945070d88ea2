package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bbr/taskbot/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// Upsert stores the Telegram profile. The language is only taken from Telegram on
// first contact so a choice made with /language survives later updates.
func (r *UserRepository) Upsert(ctx context.Context, user *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		INSERT INTO users (id, first_name, last_name, username, language_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			username = EXCLUDED.username,
			updated_at = NOW();
	`

	_, err := r.DB.ExecContext(ctx, query,
		user.ID,
		user.FirstName,
		user.LastName,
		user.Username,
		user.LanguageCode,
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	user := &models.User{}
	query := `SELECT id, first_name, last_name, username, language_code, surname, created_at, updated_at, last_active_at FROM users WHERE id = $1`

	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Username,
		&user.LanguageCode,
		&user.Surname,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.LastActiveAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) UpdateActivity(ctx context.Context, id int64) error {
	return r.exec(ctx, `UPDATE users SET last_active_at = NOW() WHERE id = $1`, id)
}

func (r *UserRepository) UpdateLanguage(ctx context.Context, id int64, langCode string) error {
	return r.exec(ctx, `UPDATE users SET language_code = $1, updated_at = NOW() WHERE id = $2`, langCode, id)
}

func (r *UserRepository) UpdateSurname(ctx context.Context, id int64, surname string) error {
	return r.exec(ctx, `UPDATE users SET surname = $1, updated_at = NOW() WHERE id = $2`, surname, id)
}

func (r *UserRepository) exec(ctx context.Context, query string, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}
