package blog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

const (
	enricherMaxLinks    = 3
	enricherMaxBody     = 2 << 20 // 2 MiB per fetched page
	enricherMaxExtract  = 2000    // characters per extracted snippet
	enricherFetchWindow = 10 * time.Second
)

var linkPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

// Enricher fetches links found in a video description and extracts
// readable article text to give the generator extra context.
type Enricher struct {
	httpClient *http.Client
	userAgent  string
}

func NewEnricher(httpClient *http.Client, userAgent string) *Enricher {
	return &Enricher{
		httpClient: httpClient,
		userAgent:  userAgent,
	}
}

// Run extracts up to a handful of article snippets from the links in
// the description. Failures on individual links are skipped; enrichment
// is best-effort and never fails the pipeline.
func (e *Enricher) Run(ctx context.Context, description string) []string {
	links := descriptionLinks(description)
	if len(links) == 0 {
		return nil
	}

	var extracts []string
	for _, link := range links {
		if len(extracts) >= enricherMaxLinks {
			break
		}
		if ctx.Err() != nil {
			break
		}

		text, err := e.extractLink(ctx, link)
		if err != nil {
			slog.Debug("Link enrichment skipped", "url", link, "error", err)
			continue
		}

		extracts = append(extracts, fmt.Sprintf("%s:\n%s", link, text))
	}

	return extracts
}

func (e *Enricher) extractLink(ctx context.Context, link string) (string, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, enricherFetchWindow)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch link: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, enricherMaxBody))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	article, err := readability.FromReader(strings.NewReader(string(data)), nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return "", fmt.Errorf("no content extracted")
	}

	if len(text) > enricherMaxExtract {
		text = text[:enricherMaxExtract] + "..."
	}

	return text, nil
}

// descriptionLinks returns the non-YouTube links of a description,
// deduplicated in order of appearance.
func descriptionLinks(description string) []string {
	seen := make(map[string]bool)
	var links []string

	for _, link := range linkPattern.FindAllString(description, -1) {
		link = strings.TrimRight(link, ".,;)")
		if seen[link] {
			continue
		}
		seen[link] = true

		lower := strings.ToLower(link)
		if strings.Contains(lower, "youtube.com") || strings.Contains(lower, "youtu.be") {
			continue
		}

		links = append(links, link)
	}

	return links
}
