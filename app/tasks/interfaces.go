package tasks

import (
	"context"

	"github.com/lysyi3m/blogsmith/app/blog"
	"github.com/lysyi3m/blogsmith/app/database"
)

// TaskSchedulerInterface defines the interface for task scheduling
// operations. Used by the main application and API handlers to manage
// background channel processing.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// TaskEnqueuer is the subset of the scheduler tasks need to enqueue
// follow-up work.
type TaskEnqueuer interface {
	EnqueueTask(task TaskInterface) error
}

// PipelineRunner runs one video through the blog generation pipeline.
type PipelineRunner interface {
	Run(ctx context.Context, user *database.User, videoURL string, preset *blog.Preset) (*database.BlogPost, error)
}
