package channel

import (
	"time"
)

// Subscription is a configured YouTube channel whose new videos are
// turned into blog posts for the subscribing user.
type Subscription struct {
	Name      string               // Derived from filename (without .yml extension)
	ChannelID string               `yaml:"channel_id"`
	User      string               `yaml:"user"`   // username owning generated posts
	Preset    string               `yaml:"preset"` // optional generation preset
	Settings  SubscriptionSettings `yaml:"settings"`
}

type SubscriptionSettings struct {
	Enabled      bool `yaml:"enabled"`
	SyncInterval int  `yaml:"sync_interval"` // seconds
	MaxVideos    int  `yaml:"max_videos"`    // per sync
}

// VideoEntry is one entry of a channel's RSS feed.
type VideoEntry struct {
	VideoID     string
	Title       string
	URL         string
	PublishedAt *time.Time
}
