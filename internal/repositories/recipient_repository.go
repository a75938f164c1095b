package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"drafts-service/internal/models"
)

// RecipientRepository resolves a set of users to a single direct-message
// recipient id.
type RecipientRepository interface {
	GetOrCreateDirectRecipient(ctx context.Context, memberIDs []int) (int, error)
}

// RecipientRepo is a sqlx implementation of RecipientRepository.
type RecipientRepo struct {
	db *sqlx.DB
}

// NewRecipientRepo constructs a RecipientRepo.
func NewRecipientRepo(db *sqlx.DB) *RecipientRepo {
	return &RecipientRepo{db: db}
}

// GetOrCreateDirectRecipient returns the recipient whose member set equals
// exactly the given ids, creating it when absent. memberIDs must already be
// deduplicated; order does not matter.
func (r *RecipientRepo) GetOrCreateDirectRecipient(ctx context.Context, memberIDs []int) (int, error) {
	var recipientID int
	err := r.db.GetContext(ctx, &recipientID,
		`SELECT r.id FROM recipients r
         JOIN recipient_members m ON m.recipient_id = r.id
         WHERE r.type=$1
         GROUP BY r.id
         HAVING COUNT(*) = $2 AND COUNT(*) FILTER (WHERE m.user_id = ANY($3)) = $2`,
		models.RecipientTypeDirect, len(memberIDs), pq.Array(memberIDs))
	if err == nil {
		return recipientID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = tx.QueryRowxContext(ctx, `INSERT INTO recipients (type) VALUES ($1) RETURNING id`,
		models.RecipientTypeDirect).Scan(&recipientID); err != nil {
		return 0, err
	}
	for _, id := range memberIDs {
		if _, err = tx.ExecContext(ctx, `INSERT INTO recipient_members (recipient_id, user_id) VALUES ($1, $2)`,
			recipientID, id); err != nil {
			return 0, err
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return recipientID, nil
}
