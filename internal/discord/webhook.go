// Package discord delivers post notifications to a webhook endpoint.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/dioftwx-beep/fb-discord-watcher/internal/facebook"
)

// Image modes: link embeds the picture by its remote URL; upload
// downloads the picture and attaches it as a binary file part.
const (
	ImageModeLink   = "link"
	ImageModeUpload = "upload"
)

const (
	webhookTimeout = 30 * time.Second

	// Discord allows 30 webhook messages per minute per channel.
	sendRate  = rate.Limit(0.5)
	sendBurst = 1
)

// DeliveryError reports a webhook rejection.
type DeliveryError struct {
	Status int
	Body   string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver notification: status %d: %s", e.Status, e.Body)
}

// Webhook posts notifications to one webhook URL.
type Webhook struct {
	url       string
	username  string
	content   string
	imageMode string
	client    *http.Client
	limiter   *rate.Limiter
	log       *logrus.Logger
}

// NewWebhook creates a webhook client. Username and content are
// optional decorations applied to every notification.
func NewWebhook(webhookURL, username, content, imageMode string, log *logrus.Logger) (*Webhook, error) {
	if strings.TrimSpace(webhookURL) == "" {
		return nil, errors.New("discord: webhook url is required")
	}
	switch imageMode {
	case "":
		imageMode = ImageModeLink
	case ImageModeLink, ImageModeUpload:
		// valid
	default:
		return nil, fmt.Errorf("discord: unknown image mode %q (want link or upload)", imageMode)
	}
	if log == nil {
		return nil, errors.New("discord: logger is required")
	}
	return &Webhook{
		url:       webhookURL,
		username:  username,
		content:   content,
		imageMode: imageMode,
		client:    &http.Client{Timeout: webhookTimeout},
		limiter:   rate.NewLimiter(sendRate, sendBurst),
		log:       log,
	}, nil
}

// Announce relays one post to the webhook. Sends are paced to stay
// under the endpoint's per-minute allowance; a non-success response
// aborts with a *DeliveryError. No retry.
func (w *Webhook) Announce(ctx context.Context, post facebook.Post) error {
	if err := w.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for send slot: %w", err)
	}

	payload := Payload{
		Username: w.username,
		Content:  w.content,
		Embeds:   []Embed{BuildEmbed(post)},
	}

	if w.imageMode == ImageModeUpload && payload.Embeds[0].Image != nil {
		img, err := w.downloadImage(ctx, payload.Embeds[0].Image.URL)
		if err != nil {
			// The picture is decoration; deliver the post with a
			// remote link instead of failing the run.
			w.log.WithError(err).WithField("post_id", post.ID).Warn("image download failed, sending link embed")
		} else {
			payload.Embeds[0].Image = &EmbedImage{URL: "attachment://" + img.name}
			return w.postMultipart(ctx, payload, img)
		}
	}

	return w.postJSON(ctx, payload)
}

func (w *Webhook) postJSON(ctx context.Context, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return w.send(req)
}

func (w *Webhook) postMultipart(ctx context.Context, payload Payload, img imageFile) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("payload_json", string(payloadJSON)); err != nil {
		return fmt.Errorf("write payload field: %w", err)
	}
	part, err := mw.CreateFormFile("files[0]", img.name)
	if err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(img.data); err != nil {
		return fmt.Errorf("write file part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, &buf)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return w.send(req)
}

func (w *Webhook) send(req *http.Request) error {
	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return &DeliveryError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return nil
}

type imageFile struct {
	name string
	data []byte
}

func (w *Webhook) downloadImage(ctx context.Context, src string) (imageFile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return imageFile{}, fmt.Errorf("create image request: %w", err)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return imageFile{}, fmt.Errorf("download image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return imageFile{}, fmt.Errorf("download image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return imageFile{}, fmt.Errorf("read image: %w", err)
	}
	return imageFile{
		name: imageFileName(src, resp.Header.Get("Content-Type")),
		data: data,
	}, nil
}

// imageFileName derives the attachment filename from the source URL,
// falling back to the content type when the URL path has no usable
// base name.
func imageFileName(src, contentType string) string {
	if u, err := url.Parse(src); err == nil {
		base := path.Base(u.Path)
		if base != "." && base != "/" && strings.Contains(base, ".") {
			return base
		}
	}
	switch contentType {
	case "image/png":
		return "image.png"
	case "image/gif":
		return "image.gif"
	case "image/webp":
		return "image.webp"
	default:
		return "image.jpg"
	}
}
