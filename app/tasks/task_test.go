package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lysyi3m/blogsmith/app/blog"
	"github.com/lysyi3m/blogsmith/app/channel"
	"github.com/lysyi3m/blogsmith/app/database"
	"github.com/lysyi3m/blogsmith/app/pipeline"
)

func TestNewTask(t *testing.T) {
	task := NewTask(TaskTypeSyncChannel, "gophercon")

	if task.ID == "" {
		t.Error("Expected task ID to be generated")
	}
	if task.Type != TaskTypeSyncChannel {
		t.Errorf("Expected type sync_channel, got %s", task.Type)
	}
	if task.Name != "gophercon" {
		t.Errorf("Expected name 'gophercon', got '%s'", task.Name)
	}
	if task.MaxRetries != DefaultMaxRetries {
		t.Errorf("Expected max retries %d, got %d", DefaultMaxRetries, task.MaxRetries)
	}

	other := NewTask(TaskTypeGenerateBlog, "gophercon")
	if other.ID == task.ID {
		t.Error("Expected unique task IDs")
	}
}

func TestTaskRetryCounting(t *testing.T) {
	task := NewTask(TaskTypeGenerateBlog, "test")

	if !task.CanRetry() {
		t.Error("Expected fresh task to be retryable")
	}

	for i := 0; i < DefaultMaxRetries; i++ {
		task.IncrementRetryCount()
	}

	if task.CanRetry() {
		t.Error("Expected task at max retries to not be retryable")
	}
	if task.GetRetryCount() != DefaultMaxRetries {
		t.Errorf("Expected retry count %d, got %d", DefaultMaxRetries, task.GetRetryCount())
	}
}

func TestTaskDuration(t *testing.T) {
	task := NewTask(TaskTypeSyncChannel, "test")

	if task.GetDuration() != 0 {
		t.Error("Expected zero duration before start")
	}

	task.Start()
	time.Sleep(time.Millisecond)

	if task.GetDuration() <= 0 {
		t.Error("Expected positive duration after start")
	}
}

type stubBlogRepo struct {
	seen map[string]bool
}

func (s *stubBlogRepo) CreateBlogPost(*database.BlogPost) error                  { return nil }
func (s *stubBlogRepo) GetBlogPost(string) (*database.BlogPost, error)           { return nil, nil }
func (s *stubBlogRepo) ListBlogPosts(string, int) ([]database.BlogPost, error)   { return nil, nil }
func (s *stubBlogRepo) DeleteBlogPost(string, string) (bool, error)              { return false, nil }
func (s *stubBlogRepo) GetBlogPostCount() (int, error)                           { return 0, nil }
func (s *stubBlogRepo) HasBlogForVideo(userID, videoID string) (bool, error) {
	return s.seen[videoID], nil
}

type stubRunner struct {
	calls int
	err   error
}

func (s *stubRunner) Run(ctx context.Context, user *database.User, videoURL string, preset *blog.Preset) (*database.BlogPost, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &database.BlogPost{ID: "post-1", Title: "Post"}, nil
}

func TestGenerateBlogTaskExecute(t *testing.T) {
	runner := &stubRunner{}
	task := NewGenerateBlogTask("gophercon", &database.User{ID: "user-1", Username: "alice"},
		channel.VideoEntry{VideoID: "vid1", URL: "https://youtu.be/vid1"},
		blog.DefaultPreset(), &stubBlogRepo{seen: map[string]bool{}}, runner)

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if runner.calls != 1 {
		t.Errorf("Expected 1 pipeline run, got %d", runner.calls)
	}
}

func TestGenerateBlogTaskSkipsExistingPost(t *testing.T) {
	runner := &stubRunner{}
	task := NewGenerateBlogTask("gophercon", &database.User{ID: "user-1"},
		channel.VideoEntry{VideoID: "vid1", URL: "https://youtu.be/vid1"},
		blog.DefaultPreset(), &stubBlogRepo{seen: map[string]bool{"vid1": true}}, runner)

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if runner.calls != 0 {
		t.Errorf("Expected no pipeline run for existing post, got %d", runner.calls)
	}
}

func TestGenerateBlogTaskPropagatesBusy(t *testing.T) {
	runner := &stubRunner{err: pipeline.ErrBusy}
	task := NewGenerateBlogTask("gophercon", &database.User{ID: "user-1"},
		channel.VideoEntry{VideoID: "vid1", URL: "https://youtu.be/vid1"},
		blog.DefaultPreset(), &stubBlogRepo{seen: map[string]bool{}}, runner)

	err := task.Execute(context.Background())
	if err == nil {
		t.Fatal("Expected error when pipeline is busy")
	}
	if !errors.Is(err, pipeline.ErrBusy) {
		t.Errorf("Expected ErrBusy to propagate for scheduler retry, got: %v", err)
	}
}

func TestGenerateBlogTaskCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := &stubRunner{}
	task := NewGenerateBlogTask("gophercon", &database.User{ID: "user-1"},
		channel.VideoEntry{VideoID: "vid1", URL: "https://youtu.be/vid1"},
		blog.DefaultPreset(), &stubBlogRepo{seen: map[string]bool{}}, runner)

	err := task.Execute(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got: %v", err)
	}
	if runner.calls != 0 {
		t.Errorf("Expected no pipeline run for cancelled context, got %d", runner.calls)
	}
}
