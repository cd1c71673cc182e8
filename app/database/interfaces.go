package database

import (
	"time"
)

type UserRepository interface {
	CreateUser(username, email string) (*User, error)
	GetUserByToken(token string) (*User, error)
	GetUserByUsername(username string) (*User, error)
	DeleteUser(id string) (bool, error)
	GetUserCount() (int, error)
}

type BlogRepository interface {
	CreateBlogPost(post *BlogPost) error
	GetBlogPost(id string) (*BlogPost, error)
	ListBlogPosts(userID string, limit int) ([]BlogPost, error)
	DeleteBlogPost(id, userID string) (bool, error)
	HasBlogForVideo(userID, videoID string) (bool, error)
	GetBlogPostCount() (int, error)
}

// ChatTurnRepository is the conversation store: an append-only log of
// generation exchanges per user. Failures are propagated to the caller,
// never retried or masked.
type ChatTurnRepository interface {
	AppendTurn(userID, prompt, response string) (*ChatTurn, error)
	GetHistory(userID string, limit int) ([]ChatTurn, error)
	GetTurnCount() (int, error)
}

type ChannelRepository interface {
	UpsertChannel(name, channelID string) (string, error)
	GetChannel(name string) (*Channel, error)
	UpdateChannelSynced(name string, nextSync time.Time) error
	GetChannelCount() (int, error)
}
