// Package relay runs the fetch-select-deliver-persist pass that moves
// new feed posts to the webhook.
package relay

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/dioftwx-beep/fb-discord-watcher/internal/facebook"
	"github.com/dioftwx-beep/fb-discord-watcher/internal/state"
)

// FeedSource provides the page's recent posts, newest-first.
type FeedSource interface {
	RecentPosts(ctx context.Context, limit int) ([]facebook.Post, error)
}

// Announcer relays one post to the notification endpoint.
type Announcer interface {
	Announce(ctx context.Context, post facebook.Post) error
}

// StateStore persists the delivery watermark between runs.
type StateStore interface {
	Load() (state.Watermark, error)
	Save(state.Watermark) error
}

// Archive records delivered posts. Recording is best effort; failures
// are logged, never fatal.
type Archive interface {
	RecordDelivery(ctx context.Context, post facebook.Post) error
}

// runState enumerates the phases of one pass.
type runState int

const (
	stateInit runState = iota
	stateFetch
	stateEarlyExit
	stateInitialize
	stateDeliver
	statePersist
	stateDone
)

// Result classifies a successful run.
type Result int

const (
	// ResultNoPosts: the feed returned nothing; no state was touched.
	ResultNoPosts Result = iota
	// ResultInitialized: first run; the watermark was seeded without
	// announcing the historical window.
	ResultInitialized
	// ResultDelivered: new posts were announced and the watermark
	// advanced.
	ResultDelivered
)

// Outcome summarizes one completed run.
type Outcome struct {
	Result    Result
	Fetched   int
	Fresh     int
	Delivered int
	Watermark string
}

// Runner executes relay passes. One Runner may be reused across
// passes; each pass is strictly sequential.
type Runner struct {
	feed    FeedSource
	hook    Announcer
	states  StateStore
	archive Archive
	limit   int
	log     *logrus.Logger
}

// NewRunner wires a runner from its collaborators. A nil archive
// disables delivery recording.
func NewRunner(feed FeedSource, hook Announcer, states StateStore, archive Archive, limit int, log *logrus.Logger) (*Runner, error) {
	if feed == nil {
		return nil, errors.New("relay: feed source is required")
	}
	if hook == nil {
		return nil, errors.New("relay: announcer is required")
	}
	if states == nil {
		return nil, errors.New("relay: state store is required")
	}
	if log == nil {
		return nil, errors.New("relay: logger is required")
	}
	return &Runner{
		feed:    feed,
		hook:    hook,
		states:  states,
		archive: archive,
		limit:   limit,
		log:     log,
	}, nil
}

// Run executes one pass: load watermark, fetch the feed window, select
// posts newer than the watermark, announce them oldest-first, persist
// the advanced watermark. The watermark is written after every
// successful announcement, so a failure mid-batch re-sends at most the
// one post whose write was lost. Any error aborts the pass; the
// returned Outcome still reports whatever was delivered before the
// abort.
func (r *Runner) Run(ctx context.Context) (Outcome, error) {
	var (
		out   Outcome
		last  state.Watermark
		posts []facebook.Post
		sel   Selection
	)

	current := stateInit
	for {
		switch current {
		case stateInit:
			loaded, err := r.states.Load()
			if err != nil {
				// Losing the watermark costs one duplicate window at
				// worst; refusing to run would cost every post.
				r.log.WithError(err).Warn("state unreadable, treating as first run")
				loaded = state.Watermark{}
			}
			last = loaded
			current = stateFetch

		case stateFetch:
			fetched, err := r.feed.RecentPosts(ctx, r.limit)
			if err != nil {
				return out, err
			}
			posts = fetched
			out.Fetched = len(posts)

			sel = SelectNew(posts, last.LastPostID)
			out.Fresh = len(sel.Fresh)
			out.Watermark = sel.Watermark

			switch {
			case len(posts) == 0:
				current = stateEarlyExit
			case last.LastPostID == "":
				current = stateInitialize
			default:
				current = stateDeliver
			}

		case stateEarlyExit:
			r.log.Info("feed returned no posts")
			out.Result = ResultNoPosts
			out.Watermark = last.LastPostID
			current = stateDone

		case stateInitialize:
			r.log.WithField("watermark", sel.Watermark).Info("first run, seeding watermark")
			out.Result = ResultInitialized
			current = statePersist

		case stateDeliver:
			r.log.WithFields(logrus.Fields{
				"fetched": out.Fetched,
				"fresh":   out.Fresh,
			}).Debug("announcing new posts")
			for _, p := range sel.Fresh {
				if err := r.hook.Announce(ctx, p); err != nil {
					return out, err
				}
				out.Delivered++
				if err := r.states.Save(state.Watermark{LastPostID: p.ID}); err != nil {
					return out, fmt.Errorf("persist watermark: %w", err)
				}
				r.record(ctx, p)
			}
			out.Result = ResultDelivered
			current = statePersist

		case statePersist:
			if err := r.states.Save(state.Watermark{LastPostID: sel.Watermark}); err != nil {
				return out, fmt.Errorf("persist watermark: %w", err)
			}
			current = stateDone

		case stateDone:
			return out, nil
		}
	}
}

func (r *Runner) record(ctx context.Context, p facebook.Post) {
	if r.archive == nil {
		return
	}
	if err := r.archive.RecordDelivery(ctx, p); err != nil {
		r.log.WithError(err).WithField("post_id", p.ID).Warn("record delivery")
	}
}
