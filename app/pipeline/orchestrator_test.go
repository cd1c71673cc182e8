package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lysyi3m/blogsmith/app/database"
	"github.com/lysyi3m/blogsmith/app/fetcher"
	"github.com/lysyi3m/blogsmith/app/generator"
	"github.com/lysyi3m/blogsmith/app/transcriber"
)

type fakeFetcher struct {
	t        *testing.T
	err      error
	block    chan struct{} // when set, Fetch waits until closed
	lastPath string
}

func (f *fakeFetcher) Fetch(ctx context.Context, videoURL string) (*fetcher.Audio, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}

	path := filepath.Join(f.t.TempDir(), "audio.tmp")
	if err := os.WriteFile(path, []byte("audio-bytes"), 0644); err != nil {
		f.t.Fatal(err)
	}
	f.lastPath = path

	return &fetcher.Audio{
		VideoID:     "vid123",
		VideoURL:    videoURL,
		Title:       "Test Video",
		Author:      "Test Author",
		Description: "A description without links",
		FilePath:    path,
	}, nil
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakeGenerator struct {
	draft *generator.Draft
	raw   string
	err   error
}

func (f *fakeGenerator) GenerateDraft(ctx context.Context, prompt string) (*generator.Draft, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return f.draft, f.raw, nil
}

type fakeBlogRepo struct {
	mu    sync.Mutex
	posts []*database.BlogPost
	err   error
}

func (f *fakeBlogRepo) CreateBlogPost(post *database.BlogPost) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	post.ID = fmt.Sprintf("post-%d", len(f.posts)+1)
	f.posts = append(f.posts, post)
	return nil
}

func (f *fakeBlogRepo) GetBlogPost(id string) (*database.BlogPost, error)      { return nil, nil }
func (f *fakeBlogRepo) ListBlogPosts(string, int) ([]database.BlogPost, error) { return nil, nil }
func (f *fakeBlogRepo) DeleteBlogPost(string, string) (bool, error)            { return false, nil }
func (f *fakeBlogRepo) HasBlogForVideo(string, string) (bool, error)           { return false, nil }
func (f *fakeBlogRepo) GetBlogPostCount() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.posts), nil
}

type fakeChatRepo struct {
	mu    sync.Mutex
	turns []database.ChatTurn
	err   error
}

func (f *fakeChatRepo) AppendTurn(userID, prompt, response string) (*database.ChatTurn, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	turn := database.ChatTurn{ID: int64(len(f.turns) + 1), UserID: userID, Prompt: prompt, Response: response}
	f.turns = append(f.turns, turn)
	return &turn, nil
}

func (f *fakeChatRepo) GetHistory(userID string, limit int) ([]database.ChatTurn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]database.ChatTurn(nil), f.turns...), nil
}

func (f *fakeChatRepo) GetTurnCount() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.turns), nil
}

func testUser() *database.User {
	return &database.User{ID: "user-1", Username: "alice"}
}

func testOptions() Options {
	return Options{
		FetchTimeout:    time.Second,
		GenerateTimeout: time.Second,
		HistoryDepth:    6,
	}
}

func TestRunSuccess(t *testing.T) {
	blogRepo := &fakeBlogRepo{}
	chatRepo := &fakeChatRepo{}

	audioFetcher := &fakeFetcher{t: t}
	o := NewOrchestrator(
		audioFetcher,
		&fakeTranscriber{text: "the transcript"},
		&fakeGenerator{draft: &generator.Draft{Title: "A Title", Body: "A body."}, raw: "A Title\n\nA body."},
		nil, blogRepo, chatRepo, testOptions())

	post, err := o.Run(context.Background(), testUser(), "https://youtu.be/vid123", nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if post.Title != "A Title" {
		t.Errorf("Expected title 'A Title', got '%s'", post.Title)
	}
	if post.Slug != "a-title" {
		t.Errorf("Expected slug 'a-title', got '%s'", post.Slug)
	}
	if post.VideoID != "vid123" {
		t.Errorf("Expected video ID 'vid123', got '%s'", post.VideoID)
	}

	if len(blogRepo.posts) != 1 {
		t.Errorf("Expected 1 persisted post, got %d", len(blogRepo.posts))
	}
	if len(chatRepo.turns) != 1 {
		t.Fatalf("Expected exactly 1 recorded chat turn, got %d", len(chatRepo.turns))
	}
	if chatRepo.turns[0].Response != "A Title\n\nA body." {
		t.Errorf("Expected raw model output recorded, got %q", chatRepo.turns[0].Response)
	}

	if len(o.ActiveRuns()) != 0 {
		t.Error("Expected no active runs after completion")
	}
	if _, err := os.Stat(audioFetcher.lastPath); !os.IsNotExist(err) {
		t.Error("Expected downloaded audio file to be removed after the run")
	}
}

func TestRunBusy(t *testing.T) {
	block := make(chan struct{})
	o := NewOrchestrator(
		&fakeFetcher{t: t, block: block},
		&fakeTranscriber{text: "transcript"},
		&fakeGenerator{draft: &generator.Draft{Title: "T", Body: "B"}, raw: "T\n\nB"},
		nil, &fakeBlogRepo{}, &fakeChatRepo{}, testOptions())

	user := testUser()

	done := make(chan error, 1)
	go func() {
		_, err := o.Run(context.Background(), user, "https://youtu.be/vid123", nil)
		done <- err
	}()

	// Wait for the first run to register as active.
	for i := 0; i < 100; i++ {
		if len(o.ActiveRuns()) == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	_, err := o.Run(context.Background(), user, "https://youtu.be/other", nil)
	if !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy for concurrent submission, got: %v", err)
	}

	close(block)
	if err := <-done; err != nil {
		t.Fatalf("Expected first run to complete, got: %v", err)
	}

	// The user can submit again after the run finished, and a different
	// user was never blocked.
	if _, err := o.Run(context.Background(), user, "https://youtu.be/next", nil); err != nil {
		t.Errorf("Expected submission after completion to succeed, got: %v", err)
	}
	other := &database.User{ID: "user-2", Username: "bob"}
	if _, err := o.Run(context.Background(), other, "https://youtu.be/vid123", nil); err != nil {
		t.Errorf("Expected other user's run to proceed, got: %v", err)
	}
}

func TestRunFetchFailure(t *testing.T) {
	blogRepo := &fakeBlogRepo{}
	chatRepo := &fakeChatRepo{}

	o := NewOrchestrator(
		&fakeFetcher{t: t, err: fmt.Errorf("%w: bad url", fetcher.ErrInvalidSource)},
		&fakeTranscriber{},
		&fakeGenerator{},
		nil, blogRepo, chatRepo, testOptions())

	_, err := o.Run(context.Background(), testUser(), "not-a-url", nil)
	if err == nil {
		t.Fatal("Expected error for failing fetch")
	}

	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("Expected StageError, got: %v", err)
	}
	if stageErr.Stage != StageFetching {
		t.Errorf("Expected failure attributed to Fetching, got %s", stageErr.Stage)
	}
	if !errors.Is(err, fetcher.ErrInvalidSource) {
		t.Errorf("Expected underlying ErrInvalidSource, got: %v", err)
	}

	if len(blogRepo.posts) != 0 {
		t.Error("Expected no post persisted on fetch failure")
	}
	if len(chatRepo.turns) != 0 {
		t.Error("Expected no chat turn recorded on fetch failure")
	}
}

func TestRunTranscribeFailure(t *testing.T) {
	audioFetcher := &fakeFetcher{t: t}
	o := NewOrchestrator(
		audioFetcher,
		&fakeTranscriber{err: fmt.Errorf("%w: job failed", transcriber.ErrService)},
		&fakeGenerator{},
		nil, &fakeBlogRepo{}, &fakeChatRepo{}, testOptions())

	_, err := o.Run(context.Background(), testUser(), "https://youtu.be/vid123", nil)

	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("Expected StageError, got: %v", err)
	}
	if stageErr.Stage != StageTranscribing {
		t.Errorf("Expected failure attributed to Transcribing, got %s", stageErr.Stage)
	}
	if !errors.Is(err, transcriber.ErrService) {
		t.Errorf("Expected underlying ErrService, got: %v", err)
	}
	if _, statErr := os.Stat(audioFetcher.lastPath); !os.IsNotExist(statErr) {
		t.Error("Expected audio file cleaned up after transcription failure")
	}
}

func TestRunGenerateFailure(t *testing.T) {
	chatRepo := &fakeChatRepo{}
	o := NewOrchestrator(
		&fakeFetcher{t: t},
		&fakeTranscriber{text: "transcript"},
		&fakeGenerator{err: fmt.Errorf("%w: no candidates", generator.ErrGeneration)},
		nil, &fakeBlogRepo{}, chatRepo, testOptions())

	_, err := o.Run(context.Background(), testUser(), "https://youtu.be/vid123", nil)

	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("Expected StageError, got: %v", err)
	}
	if stageErr.Stage != StageGenerating {
		t.Errorf("Expected failure attributed to Generating, got %s", stageErr.Stage)
	}

	if len(chatRepo.turns) != 0 {
		t.Error("Expected no chat turn recorded on generation failure")
	}
}

func TestRunPersistFailure(t *testing.T) {
	o := NewOrchestrator(
		&fakeFetcher{t: t},
		&fakeTranscriber{text: "transcript"},
		&fakeGenerator{draft: &generator.Draft{Title: "T", Body: "B"}, raw: "T\n\nB"},
		nil,
		&fakeBlogRepo{err: errors.New("disk full")},
		&fakeChatRepo{}, testOptions())

	_, err := o.Run(context.Background(), testUser(), "https://youtu.be/vid123", nil)

	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("Expected StageError, got: %v", err)
	}
	if stageErr.Stage != StagePersisting {
		t.Errorf("Expected failure attributed to Persisting, got %s", stageErr.Stage)
	}
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := NewOrchestrator(
		&fakeFetcher{t: t},
		&fakeTranscriber{text: "transcript"},
		&fakeGenerator{draft: &generator.Draft{Title: "T", Body: "B"}, raw: "T\n\nB"},
		nil, &fakeBlogRepo{}, &fakeChatRepo{}, testOptions())

	_, err := o.Run(ctx, testUser(), "https://youtu.be/vid123", nil)
	if err == nil {
		t.Fatal("Expected error for cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got: %v", err)
	}
}

func TestRunHistoryPassedToPrompt(t *testing.T) {
	chatRepo := &fakeChatRepo{}
	chatRepo.turns = []database.ChatTurn{
		{ID: 1, UserID: "user-1", Prompt: "p", Response: "Earlier Article\n\nbody"},
	}

	var capturedPrompt string
	gen := &promptCapturingGenerator{
		draft: &generator.Draft{Title: "New Post", Body: "Body"},
		raw:   "New Post\n\nBody",
		out:   &capturedPrompt,
	}

	o := NewOrchestrator(
		&fakeFetcher{t: t},
		&fakeTranscriber{text: "transcript"},
		gen, nil, &fakeBlogRepo{}, chatRepo, testOptions())

	if _, err := o.Run(context.Background(), testUser(), "https://youtu.be/vid123", nil); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if capturedPrompt == "" {
		t.Fatal("Expected generator to receive a prompt")
	}
	if !strings.Contains(capturedPrompt, "- Earlier Article\n") {
		t.Errorf("Expected history title in prompt, got:\n%s", capturedPrompt)
	}
}

type promptCapturingGenerator struct {
	draft *generator.Draft
	raw   string
	out   *string
}

func (g *promptCapturingGenerator) GenerateDraft(ctx context.Context, prompt string) (*generator.Draft, string, error) {
	*g.out = prompt
	return g.draft, g.raw, nil
}
