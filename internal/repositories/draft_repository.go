package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"drafts-service/internal/models"
)

var ErrDraftNotFound = errors.New("draft does not exist")

// DraftRepository abstracts draft persistence. Lookups are always scoped to
// the owning user so a foreign draft id behaves exactly like a missing one.
type DraftRepository interface {
	CreateDrafts(ctx context.Context, drafts []models.Draft) ([]models.Draft, error)
	GetDraft(ctx context.Context, draftID int, userID int) (models.Draft, error)
	ListDrafts(ctx context.Context, userID int) ([]models.Draft, error)
	UpdateDraft(ctx context.Context, draft models.Draft) error
	DeleteDraft(ctx context.Context, draftID int, userID int) error
}

// DraftRepo is a sqlx implementation of DraftRepository.
type DraftRepo struct {
	db *sqlx.DB
}

// NewDraftRepo constructs a DraftRepo.
func NewDraftRepo(db *sqlx.DB) *DraftRepo {
	return &DraftRepo{db: db}
}

// CreateDrafts inserts all drafts in one transaction and returns them with
// assigned ids, in input order.
func (r *DraftRepo) CreateDrafts(ctx context.Context, drafts []models.Draft) ([]models.Draft, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	created := make([]models.Draft, 0, len(drafts))
	for _, draft := range drafts {
		if err = tx.QueryRowxContext(ctx,
			`INSERT INTO drafts (user_id, recipient_id, topic, content, last_edit_time)
             VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			draft.UserID, draft.RecipientID, draft.Topic, draft.Content, draft.LastEditTime).
			Scan(&draft.ID); err != nil {
			return nil, err
		}
		created = append(created, draft)
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return created, nil
}

// GetDraft fetches a draft owned by the user.
func (r *DraftRepo) GetDraft(ctx context.Context, draftID int, userID int) (models.Draft, error) {
	var draft models.Draft
	err := r.db.GetContext(ctx, &draft,
		`SELECT id, user_id, recipient_id, topic, content, last_edit_time FROM drafts WHERE id=$1 AND user_id=$2`,
		draftID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Draft{}, ErrDraftNotFound
	}
	return draft, err
}

// ListDrafts returns all drafts owned by the user, most recently edited first.
func (r *DraftRepo) ListDrafts(ctx context.Context, userID int) ([]models.Draft, error) {
	var drafts []models.Draft
	err := r.db.SelectContext(ctx, &drafts,
		`SELECT id, user_id, recipient_id, topic, content, last_edit_time FROM drafts WHERE user_id=$1 ORDER BY last_edit_time DESC, id DESC`,
		userID)
	return drafts, err
}

// UpdateDraft overwrites the mutable fields of a draft in place.
func (r *DraftRepo) UpdateDraft(ctx context.Context, draft models.Draft) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE drafts SET recipient_id=$1, topic=$2, content=$3, last_edit_time=$4 WHERE id=$5 AND user_id=$6`,
		draft.RecipientID, draft.Topic, draft.Content, draft.LastEditTime, draft.ID, draft.UserID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrDraftNotFound
	}
	return nil
}

// DeleteDraft removes a draft owned by the user.
func (r *DraftRepo) DeleteDraft(ctx context.Context, draftID int, userID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM drafts WHERE id=$1 AND user_id=$2`, draftID, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrDraftNotFound
	}
	return nil
}
