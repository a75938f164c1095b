package drafts

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"drafts-service/internal/models"
	"drafts-service/internal/observability"
	"drafts-service/internal/repositories"
)

const (
	maxTopicLength   = 60
	maxContentLength = 10000

	topicTruncationMarker   = "..."
	contentTruncationMarker = "\n[message truncated]"
)

// EventSender delivers a draft event to all of one user's live sessions.
// Delivery is fire-and-forget; ordering and reliability belong to the
// transport.
type EventSender interface {
	SendDraftEvent(userID int, event models.DraftEvent)
}

// Service implements draft validation and the create/edit/delete operations.
type Service struct {
	drafts     repositories.DraftRepository
	users      repositories.UserRepository
	streams    repositories.StreamRepository
	recipients repositories.RecipientRepository
	events     EventSender
	now        func() time.Time
}

// NewService builds a Service.
func NewService(
	drafts repositories.DraftRepository,
	users repositories.UserRepository,
	streams repositories.StreamRepository,
	recipients repositories.RecipientRepository,
	events EventSender,
) *Service {
	return &Service{
		drafts:     drafts,
		users:      users,
		streams:    streams,
		recipients: recipients,
		events:     events,
		now:        time.Now,
	}
}

// validateAndTransform applies the domain rules to a syntactically valid
// payload: normalizes the body, resolves the timestamp and derives the
// recipient id from the addressing info. The returned draft carries no id;
// the store assigns one on insert.
func (s *Service) validateAndTransform(ctx context.Context, user models.User, payload models.DraftPayload) (models.Draft, error) {
	content, err := normalizeBody(payload.Content)
	if err != nil {
		return models.Draft{}, err
	}

	timestamp := float64(s.now().UnixMicro()) / 1e6
	if payload.Timestamp != nil {
		timestamp = *payload.Timestamp
	}
	timestamp = math.Round(timestamp*1e6) / 1e6
	if timestamp < 0 {
		// Not strictly an invalid instant, but nothing we want to store.
		return models.Draft{}, ErrInvalidTimestamp
	}
	lastEditTime := time.UnixMicro(int64(math.Round(timestamp * 1e6))).UTC()

	topic := ""
	var recipientID *int

	switch {
	case payload.Type == models.DraftTypeStream:
		topic = truncateTopic(*payload.Topic)
		if strings.ContainsRune(topic, 0) {
			return models.Draft{}, ErrInvalidTopic
		}
		if len(payload.To) != 1 {
			return models.Draft{}, ErrInvalidRecipientCount
		}
		stream, err := s.streams.AccessStream(ctx, payload.To[0], user)
		if err != nil {
			return models.Draft{}, err
		}
		recipientID = &stream.RecipientID

	case payload.Type == models.DraftTypePrivate && len(payload.To) != 0:
		memberIDs := dedupeMemberIDs(payload.To, user.ID)
		recipients, err := s.users.GetUsersByIDs(ctx, memberIDs, user.RealmID)
		if err != nil {
			return models.Draft{}, err
		}
		for _, recipient := range recipients {
			if !recipient.IsActive {
				return models.Draft{}, &AddressingError{
					Message: fmt.Sprintf("'%s' is deactivated", recipient.Email),
				}
			}
		}
		id, err := s.recipients.GetOrCreateDirectRecipient(ctx, memberIDs)
		if err != nil {
			return models.Draft{}, err
		}
		recipientID = &id
	}

	return models.Draft{
		UserID:       user.ID,
		RecipientID:  recipientID,
		Topic:        topic,
		Content:      content,
		LastEditTime: lastEditTime,
	}, nil
}

// CreateDrafts validates every payload before any write, then inserts all
// drafts in one grouped operation and notifies the user's sessions with a
// single add event. One bad payload aborts the entire batch.
func (s *Service) CreateDrafts(ctx context.Context, user models.User, payloads []models.DraftPayload) ([]models.Draft, error) {
	drafts := make([]models.Draft, 0, len(payloads))
	for _, payload := range payloads {
		draft, err := s.validateAndTransform(ctx, user, payload)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, draft)
	}

	created, err := s.drafts.CreateDrafts(ctx, drafts)
	if err != nil {
		return nil, err
	}

	s.events.SendDraftEvent(user.ID, models.NewDraftsAddedEvent(created))
	observability.IncDraftOp(models.DraftOpAdd)
	return created, nil
}

// EditDraft replaces the content, topic, recipient and edit time of an
// existing draft. Drafts owned by other users are indistinguishable from
// missing ones.
func (s *Service) EditDraft(ctx context.Context, user models.User, draftID int, payload models.DraftPayload) error {
	draft, err := s.drafts.GetDraft(ctx, draftID, user.ID)
	if err != nil {
		return err
	}

	validated, err := s.validateAndTransform(ctx, user, payload)
	if err != nil {
		return err
	}

	draft.RecipientID = validated.RecipientID
	draft.Topic = validated.Topic
	draft.Content = validated.Content
	draft.LastEditTime = validated.LastEditTime
	if err := s.drafts.UpdateDraft(ctx, draft); err != nil {
		return err
	}

	s.events.SendDraftEvent(user.ID, models.NewDraftUpdatedEvent(draft))
	observability.IncDraftOp(models.DraftOpUpdate)
	return nil
}

// DeleteDraft removes a draft owned by the user and notifies their sessions.
func (s *Service) DeleteDraft(ctx context.Context, user models.User, draftID int) error {
	if err := s.drafts.DeleteDraft(ctx, draftID, user.ID); err != nil {
		return err
	}

	s.events.SendDraftEvent(user.ID, models.NewDraftRemovedEvent(draftID))
	observability.IncDraftOp(models.DraftOpRemove)
	return nil
}

// ListDrafts returns the user's drafts.
func (s *Service) ListDrafts(ctx context.Context, user models.User) ([]models.Draft, error) {
	return s.drafts.ListDrafts(ctx, user.ID)
}

// normalizeBody canonicalizes a message body: trailing whitespace and leading
// newlines are stripped, null bytes are rejected and overlong bodies are
// truncated with a visible marker.
func normalizeBody(body string) (string, error) {
	body = strings.TrimLeft(strings.TrimRight(body, " \t\n\r"), "\n")
	if body == "" {
		return "", ErrEmptyContent
	}
	if strings.ContainsRune(body, 0) {
		return "", ErrContentNullBytes
	}
	return truncate(body, maxContentLength, contentTruncationMarker), nil
}

// truncateTopic caps a topic at the platform maximum, marking the cut.
func truncateTopic(topic string) string {
	return truncate(topic, maxTopicLength, topicTruncationMarker)
}

// truncate caps s at max runes, replacing the tail with the marker. Counting
// runes keeps the result valid UTF-8.
func truncate(s string, max int, marker string) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-len([]rune(marker))]) + marker
}

// dedupeMemberIDs builds the sorted, deduplicated member set of a direct
// recipient. The acting user always belongs to their own conversations.
func dedupeMemberIDs(to []int, actingUserID int) []int {
	seen := map[int]struct{}{actingUserID: {}}
	ids := []int{actingUserID}
	for _, id := range to {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}
