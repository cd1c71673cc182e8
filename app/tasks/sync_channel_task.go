package tasks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/lysyi3m/blogsmith/app/blog"
	"github.com/lysyi3m/blogsmith/app/channel"
	"github.com/lysyi3m/blogsmith/app/database"
)

type SyncChannelTask struct {
	Task
	Subscription *channel.Subscription
	httpClient   *http.Client
	feedParser   *channel.FeedParser
	presets      *blog.PresetCache
	channelRepo  database.ChannelRepository
	userRepo     database.UserRepository
	blogRepo     database.BlogRepository
	enqueuer     TaskEnqueuer
	runner       PipelineRunner
	userAgent    string
}

func NewSyncChannelTask(sub *channel.Subscription, httpClient *http.Client,
	feedParser *channel.FeedParser, presets *blog.PresetCache,
	channelRepo database.ChannelRepository, userRepo database.UserRepository,
	blogRepo database.BlogRepository, enqueuer TaskEnqueuer,
	runner PipelineRunner, userAgent string) *SyncChannelTask {
	return &SyncChannelTask{
		Task:         NewTask(TaskTypeSyncChannel, sub.Name),
		Subscription: sub,
		httpClient:   httpClient,
		feedParser:   feedParser,
		presets:      presets,
		channelRepo:  channelRepo,
		userRepo:     userRepo,
		blogRepo:     blogRepo,
		enqueuer:     enqueuer,
		runner:       runner,
		userAgent:    userAgent,
	}
}

func (t *SyncChannelTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.Subscription.Settings.Enabled {
		slog.Debug("Subscription disabled, skipping", "channel", t.Name)
		return nil
	}

	if _, err := t.channelRepo.UpsertChannel(t.Subscription.Name, t.Subscription.ChannelID); err != nil {
		return fmt.Errorf("failed to register channel: %w", err)
	}

	user, err := t.userRepo.GetUserByUsername(t.Subscription.User)
	if err != nil {
		return fmt.Errorf("failed to look up subscription user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("subscription user %q does not exist", t.Subscription.User)
	}

	data, err := t.fetchFeed(ctx, channel.FeedURL(t.Subscription.ChannelID))
	if err != nil {
		return fmt.Errorf("failed to fetch channel feed: %w", err)
	}

	channelTitle, entries, err := t.feedParser.Run(data)
	if err != nil {
		return fmt.Errorf("failed to parse channel feed: %w", err)
	}

	preset, err := t.presets.GetPreset(t.Subscription.Preset)
	if err != nil {
		slog.Warn("Preset not found, using default", "channel", t.Name, "preset", t.Subscription.Preset)
		preset = blog.DefaultPreset()
	}

	enqueuedCount := 0
	skippedCount := 0

	for _, entry := range entries {
		if enqueuedCount >= t.Subscription.Settings.MaxVideos {
			break
		}

		seen, err := t.blogRepo.HasBlogForVideo(user.ID, entry.VideoID)
		if err != nil {
			return fmt.Errorf("failed to check for existing blog: %w", err)
		}
		if seen {
			skippedCount++
			continue
		}

		generateTask := NewGenerateBlogTask(t.Subscription.Name, user, entry, preset, t.blogRepo, t.runner)
		if err := t.enqueuer.EnqueueTask(generateTask); err != nil {
			slog.Warn("Failed to enqueue GenerateBlogTask", "channel", t.Name, "video_id", entry.VideoID, "error", err)
			continue
		}
		enqueuedCount++
	}

	nextSync := time.Now().UTC().Add(time.Duration(t.Subscription.Settings.SyncInterval) * time.Second)
	if err := t.channelRepo.UpdateChannelSynced(t.Subscription.Name, nextSync); err != nil {
		return fmt.Errorf("failed to update channel sync time: %w", err)
	}

	slog.Info("Task completed",
		"type", "SyncChannel",
		"channel", t.Name,
		"channel_title", channelTitle,
		"duration", t.GetDuration(),
		"total", len(entries),
		"enqueued", enqueuedCount,
		"already_seen", skippedCount)

	return nil
}

func (t *SyncChannelTask) fetchFeed(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
