package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/lysyi3m/blogsmith/app/api"
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

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting BlogSmith server", "version", cfg.GetVersion())

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "migration_version", version, "dirty", dirty)

	userRepo := database.NewUserRepository(db)
	blogRepo := database.NewBlogRepository(db)
	chatRepo := database.NewChatTurnRepository(db)
	channelRepo := database.NewChannelRepository(db)

	presets := blog.NewPresetCache(appCfg.PresetsDir)
	if err := presets.Run(); err != nil {
		slog.Error("Failed to load generation presets", "dir", appCfg.PresetsDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Generation presets loaded", "count", presets.GetPresetCount())

	subscriptions := channel.NewSubscriptionCache(appCfg.ChannelsDir)
	if err := subscriptions.Run(); err != nil {
		slog.Error("Failed to load channel subscriptions", "dir", appCfg.ChannelsDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Channel subscriptions loaded", "count", subscriptions.GetSubscriptionCount())

	httpClient := &http.Client{Timeout: 60 * time.Second}

	// Each external service gets its own limiter so a slow transcription
	// poll loop cannot starve generation calls.
	perSecond := rate.Limit(float64(appCfg.OutboundRateLimit) / 60.0)
	transcriberLimiter := rate.NewLimiter(perSecond, 1)
	generatorLimiter := rate.NewLimiter(perSecond, 1)

	audioFetcher := fetcher.NewYouTubeFetcher(time.Duration(appCfg.MaxVideoDuration) * time.Minute)

	transcriberClient := transcriber.NewClient(appCfg.AssemblyAIBaseUrl, appCfg.AssemblyAIKey,
		transcriberLimiter, transcriber.PollPolicy{
			Initial:    time.Duration(appCfg.PollInterval) * time.Second,
			Max:        time.Duration(appCfg.PollMaxInterval) * time.Second,
			Multiplier: 1.5,
			Deadline:   time.Duration(appCfg.TranscribeTimeout) * time.Second,
		})

	generatorClient := generator.NewClient(appCfg.GeminiBaseUrl, appCfg.GeminiKey,
		appCfg.GeminiModel, generatorLimiter)

	enricher := blog.NewEnricher(httpClient, appCfg.UserAgent)

	orchestrator := pipeline.NewOrchestrator(audioFetcher, transcriberClient, generatorClient,
		enricher, blogRepo, chatRepo, pipeline.Options{
			FetchTimeout:    time.Duration(appCfg.FetchTimeout) * time.Second,
			GenerateTimeout: time.Duration(appCfg.GenerateTimeout) * time.Second,
			HistoryDepth:    appCfg.HistoryDepth,
		})

	feedParser := channel.NewFeedParser()

	scheduler := tasks.NewScheduler(subscriptions, presets, channelRepo, userRepo,
		blogRepo, httpClient, feedParser, orchestrator)
	scheduler.Start()
	defer scheduler.Stop()
	slog.Info("Background scheduler started", "workers", appCfg.WorkerCount, "interval", appCfg.SchedulerInterval)

	apiHandler := api.NewHandler(userRepo, blogRepo, chatRepo, channelRepo,
		presets, subscriptions, orchestrator, scheduler, httpClient, feedParser)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:    ":" + appCfg.Port,
		Handler: server,
		// Generation is synchronous and can take the full transcription
		// deadline, so the write timeout must exceed it.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: time.Duration(appCfg.TranscribeTimeout+appCfg.FetchTimeout+appCfg.GenerateTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}
