package models

import "time"

type User struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	PINHash   string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// UserPatch carries profile changes; an empty PIN keeps the current one.
type UserPatch struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	PIN       string `json:"pin,omitempty"`
}
