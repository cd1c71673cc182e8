package generator

import (
	"fmt"
	"strings"

	"github.com/lysyi3m/blogsmith/app/blog"
	"github.com/lysyi3m/blogsmith/app/database"
)

// Draft is a parsed generation result.
type Draft struct {
	Title string
	Body  string
}

const formatReminder = "IMPORTANT: Respond with ONLY the blog post. " +
	"The first line must be the title as plain text, followed by a blank line and the article body."

// PromptInput carries everything the composer combines into a prompt.
type PromptInput struct {
	Transcript string
	VideoTitle string
	Author     string
	Preset     *blog.Preset
	History    []database.ChatTurn
	Extracts   []string // readable text from description links
}

// BuildPrompt composes the generation prompt from the transcript, the
// preset, prior conversation turns, and any enrichment extracts.
func BuildPrompt(in PromptInput) string {
	preset := in.Preset
	if preset == nil {
		preset = blog.DefaultPreset()
	}

	var b strings.Builder

	b.WriteString("You are a professional blog writer. Convert the following video transcript into a complete blog article.\n\n")

	fmt.Fprintf(&b, "Video: %q", in.VideoTitle)
	if in.Author != "" {
		fmt.Fprintf(&b, " by %s", in.Author)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Tone: %s. Audience: %s. Language: %s.", preset.Tone, preset.Audience, preset.Language)
	if preset.MaxWords > 0 {
		fmt.Fprintf(&b, " Target length: about %d words.", preset.MaxWords)
	}
	b.WriteString("\n\n")

	b.WriteString("Write the blog title on the first line as plain text, then a blank line, then the article body. ")
	b.WriteString("Do not prefix the title with 'Title:' or markdown heading markers. ")
	b.WriteString("Do not mention that the article is based on a video or a transcript.\n")

	if len(in.History) > 0 {
		b.WriteString("\nEarlier articles written in this conversation, for continuity of voice and to avoid repetition:\n")
		for _, turn := range in.History {
			title := firstLine(turn.Response)
			if title == "" {
				continue
			}
			fmt.Fprintf(&b, "- %s\n", title)
		}
	}

	if len(in.Extracts) > 0 {
		b.WriteString("\nBackground material from links in the video description:\n")
		for _, extract := range in.Extracts {
			fmt.Fprintf(&b, "---\n%s\n", extract)
		}
	}

	b.WriteString("\nTranscript:\n\"\"\"\n")
	b.WriteString(in.Transcript)
	b.WriteString("\n\"\"\"\n")

	return b.String()
}

// ParseDraft enforces the minimal output contract: a non-empty title
// line followed by a non-empty body. Anything else is a generation
// failure, never an empty post.
func ParseDraft(raw string) (*Draft, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: model returned empty output", ErrGeneration)
	}

	title, body, _ := strings.Cut(trimmed, "\n")
	title = cleanTitle(title)
	body = strings.TrimSpace(body)

	if title == "" {
		return nil, fmt.Errorf("%w: output has no title line", ErrGeneration)
	}
	if body == "" {
		return nil, fmt.Errorf("%w: output has no body", ErrGeneration)
	}

	return &Draft{Title: title, Body: body}, nil
}

// cleanTitle strips markdown heading markers, a "Title:" prefix, and
// wrapping emphasis or quotes that models like to add.
func cleanTitle(line string) string {
	title := strings.TrimSpace(line)
	title = strings.TrimLeft(title, "#")
	title = strings.TrimSpace(title)

	for _, prefix := range []string{"Title:", "title:", "TITLE:"} {
		title = strings.TrimSpace(strings.TrimPrefix(title, prefix))
	}

	for {
		stripped := title
		stripped = trimWrapping(stripped, "**")
		stripped = trimWrapping(stripped, "*")
		stripped = trimWrapping(stripped, "\"")
		if stripped == title {
			break
		}
		title = stripped
	}

	return strings.TrimSpace(title)
}

func trimWrapping(s, mark string) string {
	if len(s) > 2*len(mark) && strings.HasPrefix(s, mark) && strings.HasSuffix(s, mark) {
		return strings.TrimSpace(s[len(mark) : len(s)-len(mark)])
	}
	return s
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(line)
}
