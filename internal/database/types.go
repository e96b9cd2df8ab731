package database

import (
	"database/sql"
	"encoding/json"
	"time"
)

// ReportRecord is one persisted assessment report. The full report document
// is stored as JSON alongside a few query columns.
type ReportRecord struct {
	ID              string          `db:"id" json:"id"`
	ReportID        string          `db:"report_id" json:"report_id"`
	UserID          sql.NullString  `db:"user_id" json:"-"`
	OverallSeverity string          `db:"overall_severity" json:"overall_severity"`
	TotalCost       float64         `db:"total_cost" json:"total_cost"`
	Currency        string          `db:"currency" json:"currency"`
	ImageFile       string          `db:"image_file" json:"image_file,omitempty"`
	Document        json.RawMessage `db:"document" json:"document"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// User is a registered account. PasswordHash never leaves the database layer.
type User struct {
	ID           string       `db:"id" json:"id"`
	FirstName    string       `db:"first_name" json:"first_name"`
	LastName     string       `db:"last_name" json:"last_name"`
	Email        string       `db:"email" json:"email"`
	PasswordHash string       `db:"password_hash" json:"-"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	LastLogin    sql.NullTime `db:"last_login" json:"-"`
}

// FullName joins the name parts for display.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
