package models

// Stream is a named channel. Every stream has a pre-assigned recipient row
// used when addressing messages or drafts to it.
type Stream struct {
	ID          int    `db:"id" json:"id"`
	RealmID     int    `db:"realm_id" json:"realm_id"`
	Name        string `db:"name" json:"name"`
	RecipientID int    `db:"recipient_id" json:"recipient_id"`
	InviteOnly  bool   `db:"invite_only" json:"invite_only"`
}

// Subscription records a user's membership in a stream recipient.
type Subscription struct {
	UserID      int  `db:"user_id" json:"user_id"`
	RecipientID int  `db:"recipient_id" json:"recipient_id"`
	Active      bool `db:"active" json:"active"`
}
