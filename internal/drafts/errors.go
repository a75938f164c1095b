package drafts

import "errors"

// Validation failures surfaced to callers as bad requests. Messages are
// user-facing.
var (
	ErrInvalidTimestamp      = errors.New("timestamp must not be negative")
	ErrInvalidTopic          = errors.New("topic must not contain null bytes")
	ErrInvalidRecipientCount = errors.New("must specify exactly 1 stream ID for stream messages")
	ErrEmptyContent          = errors.New("content must not be empty")
	ErrContentNullBytes      = errors.New("content must not contain null bytes")
	ErrSyncDisabled          = errors.New("user has disabled synchronizing drafts")
)

// AddressingError carries a recipient-resolution validation message through
// to the caller verbatim.
type AddressingError struct {
	Message string
}

func (e *AddressingError) Error() string {
	return e.Message
}
