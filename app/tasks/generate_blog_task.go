package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/blogsmith/app/blog"
	"github.com/lysyi3m/blogsmith/app/channel"
	"github.com/lysyi3m/blogsmith/app/database"
)

type GenerateBlogTask struct {
	Task
	User     *database.User
	Entry    channel.VideoEntry
	Preset   *blog.Preset
	blogRepo database.BlogRepository
	runner   PipelineRunner
}

func NewGenerateBlogTask(channelName string, user *database.User, entry channel.VideoEntry,
	preset *blog.Preset, blogRepo database.BlogRepository, runner PipelineRunner) *GenerateBlogTask {
	return &GenerateBlogTask{
		Task:     NewTask(TaskTypeGenerateBlog, channelName),
		User:     user,
		Entry:    entry,
		Preset:   preset,
		blogRepo: blogRepo,
		runner:   runner,
	}
}

func (t *GenerateBlogTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	// A manual submission may have produced this post between enqueue
	// and execution.
	seen, err := t.blogRepo.HasBlogForVideo(t.User.ID, t.Entry.VideoID)
	if err != nil {
		return fmt.Errorf("failed to check for existing blog: %w", err)
	}
	if seen {
		slog.Debug("Blog already exists for video, skipping", "channel", t.Name, "video_id", t.Entry.VideoID)
		return nil
	}

	post, err := t.runner.Run(ctx, t.User, t.Entry.URL, t.Preset)
	if err != nil {
		// ErrBusy is returned to the scheduler, which retries with delay.
		return fmt.Errorf("pipeline run failed for video %s: %w", t.Entry.VideoID, err)
	}

	slog.Info("Task completed",
		"type", "GenerateBlog",
		"channel", t.Name,
		"video_id", t.Entry.VideoID,
		"blog_id", post.ID,
		"title", post.Title,
		"duration", t.GetDuration())

	return nil
}
