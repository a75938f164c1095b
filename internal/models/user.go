package models

// User is the acting account profile. Profiles are owned by the wider
// platform; this service reads them to scope lookups and to enforce the
// drafts synchronization flag.
type User struct {
	ID               int    `db:"id" json:"id"`
	RealmID          int    `db:"realm_id" json:"realm_id"`
	Email            string `db:"email" json:"email"`
	FullName         string `db:"full_name" json:"full_name"`
	IsActive         bool   `db:"is_active" json:"is_active"`
	EnableDraftsSync bool   `db:"enable_drafts_sync" json:"enable_drafts_sync"`
}
