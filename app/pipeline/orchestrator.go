package pipeline

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/blogsmith/app/blog"
	"github.com/lysyi3m/blogsmith/app/database"
	"github.com/lysyi3m/blogsmith/app/fetcher"
	"github.com/lysyi3m/blogsmith/app/generator"
	"github.com/lysyi3m/blogsmith/app/transcriber"
)

type AudioFetcher interface {
	Fetch(ctx context.Context, videoURL string) (*fetcher.Audio, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader) (string, error)
}

type DraftGenerator interface {
	GenerateDraft(ctx context.Context, prompt string) (*generator.Draft, string, error)
}

type Enricher interface {
	Run(ctx context.Context, description string) []string
}

var _ AudioFetcher = (*fetcher.YouTubeFetcher)(nil)
var _ Transcriber = (*transcriber.Client)(nil)
var _ DraftGenerator = (*generator.Client)(nil)
var _ Enricher = (*blog.Enricher)(nil)

// RunStatus is a snapshot of an in-flight pipeline run.
type RunStatus struct {
	Username  string
	VideoURL  string
	Stage     Stage
	StartedAt time.Time
}

type Options struct {
	FetchTimeout    time.Duration
	GenerateTimeout time.Duration
	HistoryDepth    int
}

// Orchestrator sequences Fetch → Transcribe → Generate → Persist for
// one submitted video URL, with at most one run in flight per user.
type Orchestrator struct {
	fetcher     AudioFetcher
	transcriber Transcriber
	generator   DraftGenerator
	enricher    Enricher
	blogRepo    database.BlogRepository
	chatRepo    database.ChatTurnRepository
	opts        Options

	mu     sync.Mutex
	active map[string]*RunStatus // keyed by user ID
}

func NewOrchestrator(audioFetcher AudioFetcher, trans Transcriber, gen DraftGenerator,
	enricher Enricher, blogRepo database.BlogRepository, chatRepo database.ChatTurnRepository,
	opts Options) *Orchestrator {
	return &Orchestrator{
		fetcher:     audioFetcher,
		transcriber: trans,
		generator:   gen,
		enricher:    enricher,
		blogRepo:    blogRepo,
		chatRepo:    chatRepo,
		opts:        opts,
		active:      make(map[string]*RunStatus),
	}
}

// Run executes one pipeline run to completion. Stages run strictly in
// sequence; the first failure ends the run attributed to its stage, and
// acquired resources are released before returning. A second submission
// for the same user while a run is in flight fails with ErrBusy.
func (o *Orchestrator) Run(ctx context.Context, user *database.User, videoURL string, preset *blog.Preset) (*database.BlogPost, error) {
	if err := o.acquire(user, videoURL); err != nil {
		return nil, err
	}
	defer o.release(user.ID)

	if preset == nil {
		preset = blog.DefaultPreset()
	}

	start := time.Now()

	// Fetching
	o.setStage(user.ID, StageFetching)
	fetchCtx, cancel := context.WithTimeout(ctx, o.opts.FetchTimeout)
	audio, err := o.fetcher.Fetch(fetchCtx, videoURL)
	cancel()
	if err != nil {
		return nil, failed(StageFetching, err)
	}
	defer func() {
		if err := audio.Cleanup(); err != nil {
			slog.Warn("Failed to clean up audio file", "video_id", audio.VideoID, "error", err)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Transcribing
	o.setStage(user.ID, StageTranscribing)
	audioFile, err := audio.Open()
	if err != nil {
		return nil, failed(StageTranscribing, err)
	}
	transcript, err := o.transcriber.Transcribe(ctx, audioFile)
	audioFile.Close()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, failed(StageTranscribing, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Generating
	o.setStage(user.ID, StageGenerating)
	history, err := o.chatRepo.GetHistory(user.ID, o.opts.HistoryDepth)
	if err != nil {
		return nil, failed(StageGenerating, err)
	}

	var extracts []string
	if preset.EnrichLinks && o.enricher != nil {
		extracts = o.enricher.Run(ctx, audio.Description)
	}

	prompt := generator.BuildPrompt(generator.PromptInput{
		Transcript: transcript,
		VideoTitle: audio.Title,
		Author:     audio.Author,
		Preset:     preset,
		History:    history,
		Extracts:   extracts,
	})

	genCtx, cancel := context.WithTimeout(ctx, o.opts.GenerateTimeout)
	draft, raw, err := o.generator.GenerateDraft(genCtx, prompt)
	cancel()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, failed(StageGenerating, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Persisting
	o.setStage(user.ID, StagePersisting)
	post := &database.BlogPost{
		UserID:     user.ID,
		VideoID:    audio.VideoID,
		VideoURL:   videoURL,
		VideoTitle: audio.Title,
		Slug:       blog.Slugify(draft.Title),
		Title:      draft.Title,
		Body:       draft.Body,
	}
	if err := o.blogRepo.CreateBlogPost(post); err != nil {
		return nil, failed(StagePersisting, err)
	}
	if _, err := o.chatRepo.AppendTurn(user.ID, prompt, raw); err != nil {
		return nil, failed(StagePersisting, err)
	}

	o.setStage(user.ID, StageDone)
	slog.Info("Pipeline run completed",
		"user", user.Username,
		"video_id", audio.VideoID,
		"title", post.Title,
		"duration", time.Since(start))

	return post, nil
}

// ActiveRuns returns snapshots of all in-flight runs.
func (o *Orchestrator) ActiveRuns() []RunStatus {
	o.mu.Lock()
	defer o.mu.Unlock()

	runs := make([]RunStatus, 0, len(o.active))
	for _, status := range o.active {
		runs = append(runs, *status)
	}
	return runs
}

func (o *Orchestrator) acquire(user *database.User, videoURL string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.active[user.ID]; ok {
		return ErrBusy
	}

	o.active[user.ID] = &RunStatus{
		Username:  user.Username,
		VideoURL:  videoURL,
		Stage:     StagePending,
		StartedAt: time.Now(),
	}
	return nil
}

func (o *Orchestrator) release(userID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.active, userID)
}

func (o *Orchestrator) setStage(userID string, stage Stage) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if status, ok := o.active[userID]; ok {
		status.Stage = stage
	}
}
