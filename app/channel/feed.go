package channel

import (
	"bytes"
	"fmt"
	"net/url"

	"github.com/mmcdole/gofeed"
)

// FeedURL returns the RSS feed URL YouTube publishes for a channel.
func FeedURL(channelID string) string {
	return "https://www.youtube.com/feeds/videos.xml?channel_id=" + url.QueryEscape(channelID)
}

// FeedParser parses YouTube channel RSS feeds into video entries.
type FeedParser struct {
	gofeedParser *gofeed.Parser
}

func NewFeedParser() *FeedParser {
	return &FeedParser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses feed data and returns the channel title and its video
// entries, newest first as YouTube publishes them.
func (p *FeedParser) Run(data []byte) (string, []VideoEntry, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return "", nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	entries := make([]VideoEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		entry := VideoEntry{
			VideoID: videoID(item),
			Title:   item.Title,
			URL:     item.Link,
		}
		if entry.VideoID == "" {
			continue
		}
		if item.PublishedParsed != nil {
			entry.PublishedAt = item.PublishedParsed
		}
		entries = append(entries, entry)
	}

	return feed.Title, entries, nil
}

// videoID reads the yt:videoId extension, falling back to the link's
// v= query parameter.
func videoID(item *gofeed.Item) string {
	if yt, ok := item.Extensions["yt"]; ok {
		if ids, ok := yt["videoId"]; ok && len(ids) > 0 {
			return ids[0].Value
		}
	}

	parsed, err := url.Parse(item.Link)
	if err != nil {
		return ""
	}
	return parsed.Query().Get("v")
}
