package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/lysyi3m/blogsmith/app/blog"
	"github.com/lysyi3m/blogsmith/app/cfg"
	"github.com/lysyi3m/blogsmith/app/channel"
	"github.com/lysyi3m/blogsmith/app/database"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	subscriptions *channel.SubscriptionCache
	presets       *blog.PresetCache
	channelRepo   database.ChannelRepository
	userRepo      database.UserRepository
	blogRepo      database.BlogRepository
	httpClient    *http.Client
	feedParser    *channel.FeedParser
	runner        PipelineRunner
	userAgent     string
	interval      time.Duration
	workerCount   int
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	taskQueue     chan TaskInterface
}

func NewScheduler(subscriptions *channel.SubscriptionCache, presets *blog.PresetCache,
	channelRepo database.ChannelRepository, userRepo database.UserRepository,
	blogRepo database.BlogRepository, httpClient *http.Client,
	feedParser *channel.FeedParser, runner PipelineRunner) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		subscriptions: subscriptions,
		presets:       presets,
		channelRepo:   channelRepo,
		userRepo:      userRepo,
		blogRepo:      blogRepo,
		httpClient:    httpClient,
		feedParser:    feedParser,
		runner:        runner,
		userAgent:     cfg.UserAgent,
		interval:      time.Duration(cfg.SchedulerInterval) * time.Second,
		workerCount:   cfg.WorkerCount,
		ctx:           ctx,
		cancel:        cancel,
		taskQueue:     make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()

}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueStartupTasks() {
	subs := s.subscriptions.GetEnabledSubscriptions()
	if len(subs) == 0 {
		slog.Debug("No enabled channel subscriptions found")
		return
	}

	slog.Debug("Processing channel subscriptions", "count", len(subs))

	for _, sub := range subs {
		syncTask := s.newSyncTask(sub)
		if err := s.EnqueueTask(syncTask); err != nil {
			slog.Warn("Failed to enqueue SyncChannelTask", "channel", sub.Name, "error", err)
		}
	}
}

func (s *Scheduler) enqueueTasks() {
	subs := s.subscriptions.GetEnabledSubscriptions()
	if len(subs) == 0 {
		return
	}

	for _, sub := range subs {
		ch, err := s.channelRepo.GetChannel(sub.Name)
		if err != nil {
			slog.Warn("Failed to get channel from database, skipping", "channel", sub.Name, "error", err)
			continue
		}

		now := time.Now().UTC()
		if ch != nil && ch.NextSyncAt != nil && ch.NextSyncAt.After(now) {
			slog.Debug("Channel not due for sync yet", "channel", sub.Name, "next_sync_at", ch.NextSyncAt)
			continue
		}

		syncTask := s.newSyncTask(sub)
		if err := s.EnqueueTask(syncTask); err != nil {
			slog.Warn("Failed to enqueue SyncChannelTask", "channel", sub.Name, "error", err)
		}
	}
}

func (s *Scheduler) newSyncTask(sub *channel.Subscription) *SyncChannelTask {
	return NewSyncChannelTask(sub, s.httpClient, s.feedParser, s.presets,
		s.channelRepo, s.userRepo, s.blogRepo, s, s.runner, s.userAgent)
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	// Generate tasks can legitimately spend the full transcription
	// deadline waiting on the external service.
	taskCtx, cancel := context.WithTimeout(s.ctx, 30*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "name", task.GetName(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
