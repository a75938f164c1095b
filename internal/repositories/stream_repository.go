package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"drafts-service/internal/models"
)

var (
	ErrStreamNotFound     = errors.New("invalid stream ID")
	ErrStreamAccessDenied = errors.New("not authorized for stream")
)

// StreamRepository abstracts stream lookups and access checks.
type StreamRepository interface {
	AccessStream(ctx context.Context, streamID int, user models.User) (models.Stream, error)
}

// StreamRepo is a sqlx implementation of StreamRepository.
type StreamRepo struct {
	db *sqlx.DB
}

// NewStreamRepo constructs a StreamRepo.
func NewStreamRepo(db *sqlx.DB) *StreamRepo {
	return &StreamRepo{db: db}
}

// AccessStream resolves a stream id on behalf of a user. Streams outside the
// user's realm look exactly like missing streams. Invite-only streams require
// an active subscription.
func (r *StreamRepo) AccessStream(ctx context.Context, streamID int, user models.User) (models.Stream, error) {
	var stream models.Stream
	err := r.db.GetContext(ctx, &stream,
		`SELECT id, realm_id, name, recipient_id, invite_only FROM streams WHERE id=$1 AND realm_id=$2`,
		streamID, user.RealmID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Stream{}, ErrStreamNotFound
	}
	if err != nil {
		return models.Stream{}, err
	}

	if stream.InviteOnly {
		var subscribed bool
		err = r.db.GetContext(ctx, &subscribed,
			`SELECT EXISTS(SELECT 1 FROM subscriptions WHERE user_id=$1 AND recipient_id=$2 AND active)`,
			user.ID, stream.RecipientID)
		if err != nil {
			return models.Stream{}, err
		}
		if !subscribed {
			return models.Stream{}, ErrStreamAccessDenied
		}
	}

	return stream, nil
}
