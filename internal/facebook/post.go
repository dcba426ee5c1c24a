package facebook

import (
	"encoding/json"
	"fmt"
	"time"
)

// graphTimeLayout is the timestamp format of the Graph API, e.g.
// "2024-05-01T12:30:00+0000". The zone offset has no colon, which
// time.RFC3339 rejects.
const graphTimeLayout = "2006-01-02T15:04:05-0700"

// Time wraps time.Time for JSON unmarshaling of Graph API timestamps.
type Time struct {
	time.Time
}

func (t *Time) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(graphTimeLayout, s)
	if err != nil {
		if rfc, rfcErr := time.Parse(time.RFC3339, s); rfcErr == nil {
			t.Time = rfc
			return nil
		}
		return fmt.Errorf("parse created_time %q: %w", s, err)
	}
	t.Time = parsed
	return nil
}

// Post is a single entry of a page's feed.
type Post struct {
	ID           string      `json:"id"`
	Message      string      `json:"message"`
	CreatedTime  Time        `json:"created_time"`
	PermalinkURL string      `json:"permalink_url"`
	FullPicture  string      `json:"full_picture"`
	Attachments  Attachments `json:"attachments"`
}

// Attachments mirrors the nested attachment envelope of a feed post.
// Sub-attachments reuse the same shape one level down.
type Attachments struct {
	Data []Attachment `json:"data"`
}

type Attachment struct {
	Media          Media       `json:"media"`
	Subattachments Attachments `json:"subattachments"`
}

type Media struct {
	Image Image `json:"image"`
}

type Image struct {
	Src string `json:"src"`
}

// ImageURL returns the post's picture URL. Precedence: the
// full_picture field, then the first attachment's media image, then
// the first sub-attachment's media image under the first attachment.
// Returns "" when the post carries no image.
func (p Post) ImageURL() string {
	if p.FullPicture != "" {
		return p.FullPicture
	}
	if len(p.Attachments.Data) == 0 {
		return ""
	}

	first := p.Attachments.Data[0]
	if first.Media.Image.Src != "" {
		return first.Media.Image.Src
	}
	if len(first.Subattachments.Data) > 0 {
		return first.Subattachments.Data[0].Media.Image.Src
	}
	return ""
}
