package api

import (
	"context"
	"net/http"

	"github.com/lysyi3m/blogsmith/app/blog"
	"github.com/lysyi3m/blogsmith/app/channel"
	"github.com/lysyi3m/blogsmith/app/database"
	"github.com/lysyi3m/blogsmith/app/pipeline"
	"github.com/lysyi3m/blogsmith/app/tasks"
)

type OrchestratorInterface interface {
	Run(ctx context.Context, user *database.User, videoURL string, preset *blog.Preset) (*database.BlogPost, error)
	ActiveRuns() []pipeline.RunStatus
}

var _ OrchestratorInterface = (*pipeline.Orchestrator)(nil)

type Handler struct {
	userRepo      database.UserRepository
	blogRepo      database.BlogRepository
	chatRepo      database.ChatTurnRepository
	channelRepo   database.ChannelRepository
	presets       *blog.PresetCache
	subscriptions *channel.SubscriptionCache
	orchestrator  OrchestratorInterface
	scheduler     tasks.TaskSchedulerInterface
	httpClient    *http.Client
	feedParser    *channel.FeedParser
}

type generateRequest struct {
	VideoURL string `json:"video_url" binding:"required"`
	Preset   string `json:"preset"`
}

type createUserRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email"`
}
