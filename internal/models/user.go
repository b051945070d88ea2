package models

import (
	"database/sql"
	"time"
)

type User struct {
	ID           int64          `json:"id"`
	FirstName    string         `json:"first_name"`
	LastName     string         `json:"last_name"`
	Username     string         `json:"username"`
	LanguageCode string         `json:"language_code"`
	Surname      sql.NullString `json:"surname"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	LastActiveAt sql.NullTime   `json:"last_active_at"`
}

// HasSurname reports whether the add-task dialog already collected a surname.
func (u *User) HasSurname() bool {
	return u.Surname.Valid && u.Surname.String != ""
}
