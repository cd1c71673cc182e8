package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/blogsmith/app/blog"
	"github.com/lysyi3m/blogsmith/app/cfg"
	"github.com/lysyi3m/blogsmith/app/channel"
	"github.com/lysyi3m/blogsmith/app/database"
	"github.com/lysyi3m/blogsmith/app/fetcher"
	"github.com/lysyi3m/blogsmith/app/generator"
	"github.com/lysyi3m/blogsmith/app/pipeline"
	"github.com/lysyi3m/blogsmith/app/tasks"
	"github.com/lysyi3m/blogsmith/app/transcriber"
)

func NewHandler(userRepo database.UserRepository, blogRepo database.BlogRepository,
	chatRepo database.ChatTurnRepository, channelRepo database.ChannelRepository,
	presets *blog.PresetCache, subscriptions *channel.SubscriptionCache,
	orchestrator OrchestratorInterface, scheduler tasks.TaskSchedulerInterface,
	httpClient *http.Client, feedParser *channel.FeedParser) *Handler {
	return &Handler{
		userRepo:      userRepo,
		blogRepo:      blogRepo,
		chatRepo:      chatRepo,
		channelRepo:   channelRepo,
		presets:       presets,
		subscriptions: subscriptions,
		orchestrator:  orchestrator,
		scheduler:     scheduler,
		httpClient:    httpClient,
		feedParser:    feedParser,
	}
}

// GenerateBlog runs the full pipeline for one submitted video URL,
// synchronously: the response carries either the generated post or a
// structured stage failure. Closing the connection cancels the run.
func (h *Handler) GenerateBlog(c *gin.Context) {
	user := currentUser(c)

	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "video_url is required"})
		return
	}

	preset, err := h.presets.GetPreset(req.Preset)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown preset", "preset": req.Preset})
		return
	}

	post, err := h.orchestrator.Run(c.Request.Context(), user, req.VideoURL, preset)
	if err != nil {
		status, body := pipelineErrorResponse(err)
		slog.Error("Pipeline run failed", "user", user.Username, "video_url", req.VideoURL, "error", err)
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusCreated, blogPostResponse(post))
}

func (h *Handler) ListBlogs(c *gin.Context) {
	user := currentUser(c)

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	posts, err := h.blogRepo.ListBlogPosts(user.ID, limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_blogs", "user", user.Username, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	results := make([]gin.H, 0, len(posts))
	for i := range posts {
		results = append(results, blogPostResponse(&posts[i]))
	}

	c.JSON(http.StatusOK, gin.H{"blogs": results, "total": len(results)})
}

func (h *Handler) GetBlog(c *gin.Context) {
	user := currentUser(c)
	id := c.Param("id")

	post, err := h.blogRepo.GetBlogPost(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_blog", "blog_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	// Posts of other users are indistinguishable from missing ones.
	if post == nil || post.UserID != user.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Blog post not found"})
		return
	}

	c.JSON(http.StatusOK, blogPostResponse(post))
}

func (h *Handler) DeleteBlog(c *gin.Context) {
	user := currentUser(c)
	id := c.Param("id")

	deleted, err := h.blogRepo.DeleteBlogPost(id, user.ID)
	if err != nil {
		slog.Error("Database error", "operation", "delete_blog", "blog_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Blog post not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) GetHistory(c *gin.Context) {
	user := currentUser(c)

	limit := 0 // full history unless the caller limits it
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	turns, err := h.chatRepo.GetHistory(user.ID, limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_history", "user", user.Username, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	results := make([]gin.H, 0, len(turns))
	for _, turn := range turns {
		results = append(results, gin.H{
			"id":         turn.ID,
			"prompt":     turn.Prompt,
			"response":   turn.Response,
			"created_at": turn.CreatedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, gin.H{"turns": results, "total": len(results)})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if userCount, err := h.userRepo.GetUserCount(); err == nil {
		health["users"] = userCount
	}
	if blogCount, err := h.blogRepo.GetBlogPostCount(); err == nil {
		health["blogs"] = blogCount
	}

	health["loaded_presets"] = h.presets.GetPresetCount()
	health["loaded_subscriptions"] = h.subscriptions.GetSubscriptionCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{}

	if userCount, err := h.userRepo.GetUserCount(); err == nil {
		stats["users"] = userCount
	}
	if blogCount, err := h.blogRepo.GetBlogPostCount(); err == nil {
		stats["blogs"] = blogCount
	}
	if turnCount, err := h.chatRepo.GetTurnCount(); err == nil {
		stats["chat_turns"] = turnCount
	}
	if channelCount, err := h.channelRepo.GetChannelCount(); err == nil {
		stats["channels"] = channelCount
	}

	runs := h.orchestrator.ActiveRuns()
	activeRuns := make([]gin.H, 0, len(runs))
	for _, run := range runs {
		activeRuns = append(activeRuns, gin.H{
			"user":       run.Username,
			"video_url":  run.VideoURL,
			"stage":      string(run.Stage),
			"started_at": run.StartedAt.Format(time.RFC3339),
		})
	}
	stats["active_runs"] = activeRuns

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APICreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
		return
	}

	existing, err := h.userRepo.GetUserByUsername(req.Username)
	if err != nil {
		slog.Error("Database error", "operation", "get_user", "username", req.Username, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Username already exists"})
		return
	}

	user, err := h.userRepo.CreateUser(req.Username, req.Email)
	if err != nil {
		slog.Error("Database error", "operation", "create_user", "username", req.Username, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"email":      user.Email,
		"api_token":  user.APIToken,
		"created_at": user.CreatedAt.Format(time.RFC3339),
	})
}

func (h *Handler) APIDeleteUser(c *gin.Context) {
	id := c.Param("id")

	deleted, err := h.userRepo.DeleteUser(id)
	if err != nil {
		slog.Error("Database error", "operation", "delete_user", "user_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) APIListChannels(c *gin.Context) {
	subs := h.subscriptions.GetSubscriptions()

	channels := make([]map[string]interface{}, 0, len(subs))

	for _, sub := range subs {
		info := map[string]interface{}{
			"name":          sub.Name,
			"channel_id":    sub.ChannelID,
			"user":          sub.User,
			"preset":        sub.Preset,
			"enabled":       sub.Settings.Enabled,
			"max_videos":    sub.Settings.MaxVideos,
			"sync_interval": (time.Duration(sub.Settings.SyncInterval) * time.Second).String(),
		}

		if ch, err := h.channelRepo.GetChannel(sub.Name); err == nil && ch != nil {
			info["last_synced_at"] = ch.LastSyncedAt
			info["next_sync_at"] = ch.NextSyncAt
		}

		channels = append(channels, info)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"channels": channels,
		"total":    len(channels),
	})
}

func (h *Handler) APISyncChannel(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing channel name parameter"})
		return
	}

	sub, err := h.subscriptions.GetSubscription(name)
	if err != nil {
		slog.Error("Channel subscription not found", "channel", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Channel subscription not found"})
		return
	}

	syncTask := tasks.NewSyncChannelTask(sub, h.httpClient, h.feedParser, h.presets,
		h.channelRepo, h.userRepo, h.blogRepo, h.scheduler, h.orchestrator, cfg.Get().UserAgent)
	if err := h.scheduler.EnqueueTask(syncTask); err != nil {
		slog.Error("Error enqueueing sync task", "channel", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue sync task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Sync task enqueued successfully",
		"channel": gin.H{
			"name":       name,
			"channel_id": sub.ChannelID,
		},
		"task": gin.H{
			"id":   syncTask.ID,
			"type": syncTask.Type,
		},
	})
}

func blogPostResponse(post *database.BlogPost) gin.H {
	return gin.H{
		"id":          post.ID,
		"slug":        post.Slug,
		"title":       post.Title,
		"body":        post.Body,
		"video_id":    post.VideoID,
		"video_url":   post.VideoURL,
		"video_title": post.VideoTitle,
		"created_at":  post.CreatedAt.Format(time.RFC3339),
	}
}

// pipelineErrorResponse maps pipeline failures to HTTP responses of the
// shape {stage, error_kind, message}.
func pipelineErrorResponse(err error) (int, gin.H) {
	if errors.Is(err, pipeline.ErrBusy) {
		return http.StatusTooManyRequests, gin.H{
			"stage":      string(pipeline.StagePending),
			"error_kind": "pipeline_busy",
			"message":    "A generation is already running for this account, try again shortly",
		}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable, gin.H{
			"error_kind": "cancelled",
			"message":    "The request was cancelled before the pipeline completed",
		}
	}

	var stageErr *pipeline.StageError
	if !errors.As(err, &stageErr) {
		return http.StatusInternalServerError, gin.H{
			"error_kind": "internal",
			"message":    err.Error(),
		}
	}

	status := http.StatusInternalServerError
	kind := "internal"

	switch {
	case errors.Is(stageErr.Err, fetcher.ErrInvalidSource), errors.Is(stageErr.Err, fetcher.ErrTooLong):
		status, kind = http.StatusUnprocessableEntity, "invalid_source"
	case errors.Is(stageErr.Err, transcriber.ErrTimeout):
		status, kind = http.StatusGatewayTimeout, "transcription_timeout"
	case errors.Is(stageErr.Err, transcriber.ErrService):
		status, kind = http.StatusBadGateway, "transcription_failed"
	case errors.Is(stageErr.Err, generator.ErrGeneration):
		status, kind = http.StatusBadGateway, "generation_failed"
	case stageErr.Stage == pipeline.StagePersisting:
		status, kind = http.StatusInternalServerError, "persistence_failed"
	}

	return status, gin.H{
		"stage":      string(stageErr.Stage),
		"error_kind": kind,
		"message":    stageErr.Err.Error(),
	}
}
