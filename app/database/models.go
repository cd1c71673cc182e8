package database

import (
	"time"
)

type User struct {
	ID        string // Database UUID
	Username  string
	Email     string
	APIToken  string
	CreatedAt time.Time
}

type BlogPost struct {
	ID         string // Database UUID
	UserID     string
	VideoID    string // YouTube video ID the post was generated from
	VideoURL   string
	VideoTitle string
	Slug       string
	Title      string
	Body       string
	CreatedAt  time.Time
}

// ChatTurn is one recorded prompt/response exchange with the generation
// model. Turns are append-only; the integer primary key preserves
// insertion order per user.
type ChatTurn struct {
	ID        int64
	UserID    string
	Prompt    string
	Response  string
	CreatedAt time.Time
}

type Channel struct {
	ID           string // Database UUID
	Name         string // Configuration identifier derived from filename
	ChannelID    string // YouTube channel ID from configuration
	LastSyncedAt *time.Time
	NextSyncAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
