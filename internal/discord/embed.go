package discord

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dioftwx-beep/fb-discord-watcher/internal/facebook"
)

const (
	titleLimit       = 80
	titleTruncateAt  = 77
	descriptionLimit = 3500
	defaultTitle     = "New post"
	ellipsis         = "..."
)

// Payload is the JSON body posted to a webhook.
type Payload struct {
	Username string  `json:"username,omitempty"`
	Content  string  `json:"content,omitempty"`
	Embeds   []Embed `json:"embeds"`
}

// Embed is the rich block a chat client renders for one post.
type Embed struct {
	Title       string      `json:"title"`
	URL         string      `json:"url,omitempty"`
	Description string      `json:"description,omitempty"`
	Timestamp   string      `json:"timestamp,omitempty"`
	Image       *EmbedImage `json:"image,omitempty"`
}

type EmbedImage struct {
	URL string `json:"url"`
}

// BuildEmbed converts a feed post into a webhook embed. The title is
// the post message capped at 80 runes (77 plus an ellipsis marker when
// over), the description is the message capped at 3500 runes, and the
// image follows the post's resolution precedence.
func BuildEmbed(post facebook.Post) Embed {
	e := Embed{
		Title:       embedTitle(post.Message),
		URL:         post.PermalinkURL,
		Description: firstNRunes(post.Message, descriptionLimit),
	}
	if !post.CreatedTime.IsZero() {
		e.Timestamp = post.CreatedTime.UTC().Format(time.RFC3339)
	}
	if src := post.ImageURL(); src != "" {
		e.Image = &EmbedImage{URL: src}
	}
	return e
}

func embedTitle(message string) string {
	if strings.TrimSpace(message) == "" {
		return defaultTitle
	}
	if utf8.RuneCountInString(message) > titleLimit {
		return firstNRunes(message, titleTruncateAt) + ellipsis
	}
	return message
}

func firstNRunes(s string, n int) string {
	if n <= 0 || s == "" {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
