package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"
)

// ErrInvalidSource marks a video URL that is malformed or points to an
// unavailable, private, or region-blocked video. User-correctable.
var ErrInvalidSource = errors.New("invalid video source")

// ErrTooLong marks a video over the configured duration cap.
var ErrTooLong = errors.New("video exceeds maximum duration")

// Audio is a handle to a downloaded audio track. Callers own the
// temporary file and must call Cleanup on every exit path.
type Audio struct {
	VideoID     string
	VideoURL    string
	Title       string
	Author      string
	Description string
	Duration    time.Duration
	MimeType    string
	FilePath    string
	Size        int64
}

func (a *Audio) Cleanup() error {
	if a == nil || a.FilePath == "" {
		return nil
	}
	err := os.Remove(a.FilePath)
	a.FilePath = ""
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove audio file: %w", err)
	}
	return nil
}

func (a *Audio) Open() (*os.File, error) {
	return os.Open(a.FilePath)
}

type YouTubeFetcher struct {
	client      youtube.Client
	maxDuration time.Duration
}

func NewYouTubeFetcher(maxDuration time.Duration) *YouTubeFetcher {
	return &YouTubeFetcher{
		client:      youtube.Client{},
		maxDuration: maxDuration,
	}
}

// Fetch downloads the audio track of the given video URL into a
// temporary file. The smallest audio-capable format is selected to
// bound download size; the result must be released via Audio.Cleanup.
func (f *YouTubeFetcher) Fetch(ctx context.Context, videoURL string) (*Audio, error) {
	videoID, err := youtube.ExtractVideoID(videoURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSource, videoURL)
	}

	video, err := f.client.GetVideoContext(ctx, videoID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}

	if f.maxDuration > 0 && video.Duration > f.maxDuration {
		return nil, fmt.Errorf("%w: %s is %s, cap is %s", ErrTooLong, videoID, video.Duration, f.maxDuration)
	}

	format := selectAudioFormat(video.Formats)
	if format == nil {
		return nil, fmt.Errorf("%w: no audio formats available", ErrInvalidSource)
	}

	stream, size, err := f.client.GetStreamContext(ctx, video, format)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: failed to get stream: %v", ErrInvalidSource, err)
	}
	defer stream.Close()

	tmpFile, err := os.CreateTemp("", "blogsmith-*.audio")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	written, err := io.Copy(tmpFile, stream)
	closeErr := tmpFile.Close()
	if err != nil || closeErr != nil {
		os.Remove(tmpFile.Name())
		if err == nil {
			err = closeErr
		}
		return nil, fmt.Errorf("failed to download audio: %w", err)
	}

	slog.Debug("Audio downloaded",
		"video_id", videoID,
		"mime_type", format.MimeType,
		"bytes", written,
		"expected_bytes", size)

	return &Audio{
		VideoID:     videoID,
		VideoURL:    videoURL,
		Title:       video.Title,
		Author:      video.Author,
		Description: video.Description,
		Duration:    video.Duration,
		MimeType:    format.MimeType,
		FilePath:    tmpFile.Name(),
		Size:        written,
	}, nil
}

// selectAudioFormat prefers audio-only formats; among candidates the
// smallest content length wins.
func selectAudioFormat(formats youtube.FormatList) *youtube.Format {
	candidates := make([]*youtube.Format, 0, len(formats))
	for i := range formats {
		if strings.HasPrefix(formats[i].MimeType, "audio/") {
			candidates = append(candidates, &formats[i])
		}
	}

	if len(candidates) == 0 {
		withAudio := formats.WithAudioChannels()
		for i := range withAudio {
			candidates = append(candidates, &withAudio[i])
		}
	}

	var selected *youtube.Format
	for _, f := range candidates {
		if selected == nil || (f.ContentLength > 0 && f.ContentLength < selected.ContentLength) {
			selected = f
		}
	}

	return selected
}
