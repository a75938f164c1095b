package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"drafts-service/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository abstracts user profile lookups.
type UserRepository interface {
	GetUser(ctx context.Context, userID int) (models.User, error)
	GetUsersByIDs(ctx context.Context, userIDs []int, realmID int) ([]models.User, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// GetUser fetches a single user profile.
func (r *UserRepo) GetUser(ctx context.Context, userID int) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user,
		`SELECT id, realm_id, email, full_name, is_active, enable_drafts_sync FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// GetUsersByIDs fetches the given users scoped to a realm. The ids are
// expected to be deduplicated already; any id that does not resolve within
// the realm fails the whole lookup with ErrUserNotFound.
func (r *UserRepo) GetUsersByIDs(ctx context.Context, userIDs []int, realmID int) ([]models.User, error) {
	if len(userIDs) == 0 {
		return []models.User{}, nil
	}

	var users []models.User
	err := r.db.SelectContext(ctx, &users,
		`SELECT id, realm_id, email, full_name, is_active, enable_drafts_sync FROM users WHERE id = ANY($1) AND realm_id=$2`,
		pq.Array(userIDs), realmID)
	if err != nil {
		return nil, err
	}
	if len(users) != len(userIDs) {
		return nil, ErrUserNotFound
	}
	return users, nil
}
