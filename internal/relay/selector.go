package relay

import "github.com/dioftwx-beep/fb-discord-watcher/internal/facebook"

// Selection is the outcome of comparing a fetched feed window against
// the stored watermark.
type Selection struct {
	// Fresh holds the posts to announce, oldest-first.
	Fresh []facebook.Post
	// Watermark is the id of the newest fetched post, which the run
	// persists at the end. Empty when the fetch was empty.
	Watermark string
}

// SelectNew computes the posts published since lastID. The feed window
// arrives newest-first; the scan collects posts until it meets lastID
// (exclusive) or runs out. A missing lastID means first run: nothing
// is announced, the newest id becomes the watermark. When lastID is
// not in the window the whole window counts as new; posts that slid
// past the window are skipped for good, never retried.
func SelectNew(posts []facebook.Post, lastID string) Selection {
	if len(posts) == 0 {
		return Selection{}
	}

	sel := Selection{Watermark: posts[0].ID}
	if lastID == "" {
		return sel
	}

	var fresh []facebook.Post
	for _, p := range posts {
		if p.ID == lastID {
			break
		}
		fresh = append(fresh, p)
	}

	// Deliver in publication order.
	for i, j := 0, len(fresh)-1; i < j; i, j = i+1, j-1 {
		fresh[i], fresh[j] = fresh[j], fresh[i]
	}
	sel.Fresh = fresh
	return sel
}
