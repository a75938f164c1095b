package models

// Recipient types.
const (
	RecipientTypeStream = "stream"
	RecipientTypeDirect = "direct"
)

// Recipient is the internal reference to a resolved message destination:
// either a stream or a specific set of direct-message participants. Direct
// recipients list their exact member set in recipient_members.
type Recipient struct {
	ID   int    `db:"id" json:"id"`
	Type string `db:"type" json:"type"`
}
