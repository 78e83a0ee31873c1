package models

import "time"

// User is a registered account. PasswordHash is nil for accounts that can
// only sign in through a linked identity provider.
type User struct {
	ID           int64   `json:"id"`
	Username     string  `json:"username"`
	Admin        bool    `json:"admin"`
	PasswordHash *string `json:"-"`
}

// OauthLink ties a local user to an identity at an external provider.
// A user holds at most one link per provider.
type OauthLink struct {
	UserID   int64   `json:"uid"`
	Provider string  `json:"type"`
	Subject  *string `json:"oid"`
	Token    *string `json:"-"`
}

// Request is a package request as stored; requester/packager are user ids.
type Request struct {
	ID          int64     `json:"id"`
	Status      string    `json:"status"`
	Type        string    `json:"type"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	RequesterID int64     `json:"requester_id"`
	PackagerID  *int64    `json:"packager_id"`
	PubDate     time.Time `json:"pub_date"`
	Note        *string   `json:"note"`
}

// RequestDetail is a request joined with the usernames behind the ids.
// Requester and Packager stay nil when the corresponding account is gone;
// callers decide how absence is displayed.
type RequestDetail struct {
	ID          int64     `json:"id"`
	Status      string    `json:"status"`
	Type        string    `json:"type"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	PubDate     time.Time `json:"pub_date"`
	Note        *string   `json:"note"`
	Requester   *string   `json:"requester"`
	Packager    *string   `json:"packager"`
}

// Request lifecycle states.
const (
	StatusOpen     = "OPEN"
	StatusDone     = "DONE"
	StatusRejected = "REJECTED"
)
