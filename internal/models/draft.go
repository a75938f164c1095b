package models

import (
	"errors"
	"time"
)

// Draft types accepted on the wire. The empty string marks a draft that has
// not been addressed yet.
const (
	DraftTypeUnaddressed = ""
	DraftTypePrivate     = "private"
	DraftTypeStream      = "stream"
)

// Draft is a persisted, not-yet-sent message owned by one user.
type Draft struct {
	ID           int       `db:"id" json:"id"`
	UserID       int       `db:"user_id" json:"-"`
	RecipientID  *int      `db:"recipient_id" json:"recipient_id"`
	Topic        string    `db:"topic" json:"topic"`
	Content      string    `db:"content" json:"content"`
	LastEditTime time.Time `db:"last_edit_time" json:"-"`
}

// DraftResponse is the wire shape used both in HTTP responses and in draft
// events pushed to sessions. Timestamp is Unix seconds with microsecond
// precision.
type DraftResponse struct {
	ID          int     `json:"id"`
	RecipientID *int    `json:"recipient_id"`
	Topic       string  `json:"topic"`
	Content     string  `json:"content"`
	Timestamp   float64 `json:"timestamp"`
}

// Response converts a draft to its wire shape.
func (d Draft) Response() DraftResponse {
	return DraftResponse{
		ID:          d.ID,
		RecipientID: d.RecipientID,
		Topic:       d.Topic,
		Content:     d.Content,
		Timestamp:   float64(d.LastEditTime.UnixMicro()) / 1e6,
	}
}

// DraftPayload is the client-supplied draft dict. To holds a single stream id
// for stream drafts or a list of user ids for private drafts.
type DraftPayload struct {
	Type      string   `json:"type"`
	To        []int    `json:"to"`
	Topic     *string  `json:"topic"`
	Content   string   `json:"content"`
	Timestamp *float64 `json:"timestamp,omitempty"`
}

// Syntax-layer failures, reported before the semantic transformer runs.
var (
	ErrPayloadType    = errors.New("draft type must be one of '', 'private' or 'stream'")
	ErrPayloadTo      = errors.New("draft must include a 'to' list")
	ErrPayloadTopic   = errors.New("draft must include a 'topic' string")
	ErrPayloadContent = errors.New("draft content must be non-empty")
)

// CheckSyntax verifies field presence and enumerated values. JSON decoding
// already guarantees the field types.
func (p DraftPayload) CheckSyntax() error {
	switch p.Type {
	case DraftTypeUnaddressed, DraftTypePrivate, DraftTypeStream:
	default:
		return ErrPayloadType
	}
	if p.To == nil {
		return ErrPayloadTo
	}
	if p.Topic == nil {
		return ErrPayloadTopic
	}
	if p.Content == "" {
		return ErrPayloadContent
	}
	return nil
}

// DraftEvent is pushed over websocket connections to the owning user's
// sessions. Exactly one of Drafts, Draft or DraftID is set depending on Op.
type DraftEvent struct {
	Type    string          `json:"type"`
	Op      string          `json:"op"`
	Drafts  []DraftResponse `json:"drafts,omitempty"`
	Draft   *DraftResponse  `json:"draft,omitempty"`
	DraftID int             `json:"draft_id,omitempty"`
}

const (
	DraftOpAdd    = "add"
	DraftOpUpdate = "update"
	DraftOpRemove = "remove"
)

// NewDraftsAddedEvent builds the event for a bulk create, in creation order.
func NewDraftsAddedEvent(drafts []Draft) DraftEvent {
	responses := make([]DraftResponse, 0, len(drafts))
	for _, d := range drafts {
		responses = append(responses, d.Response())
	}
	return DraftEvent{Type: "drafts", Op: DraftOpAdd, Drafts: responses}
}

// NewDraftUpdatedEvent builds the event for an edit.
func NewDraftUpdatedEvent(draft Draft) DraftEvent {
	resp := draft.Response()
	return DraftEvent{Type: "drafts", Op: DraftOpUpdate, Draft: &resp}
}

// NewDraftRemovedEvent builds the event for a delete, carrying only the id.
func NewDraftRemovedEvent(draftID int) DraftEvent {
	return DraftEvent{Type: "drafts", Op: DraftOpRemove, DraftID: draftID}
}
