package relay

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/dioftwx-beep/fb-discord-watcher/internal/facebook"
	"github.com/dioftwx-beep/fb-discord-watcher/internal/state"
)

type fakeFeed struct {
	posts []facebook.Post
	err   error
	limit int
}

func (f *fakeFeed) RecentPosts(_ context.Context, limit int) ([]facebook.Post, error) {
	f.limit = limit
	return f.posts, f.err
}

type fakeHook struct {
	announced []string
	failOn    string
	err       error
}

func (h *fakeHook) Announce(_ context.Context, post facebook.Post) error {
	if post.ID == h.failOn {
		return h.err
	}
	h.announced = append(h.announced, post.ID)
	return nil
}

type fakeStates struct {
	current state.Watermark
	loadErr error
	saveErr error
	saves   []string
}

func (s *fakeStates) Load() (state.Watermark, error) {
	if s.loadErr != nil {
		return state.Watermark{}, s.loadErr
	}
	return s.current, nil
}

func (s *fakeStates) Save(wm state.Watermark) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.current = wm
	s.saves = append(s.saves, wm.LastPostID)
	return nil
}

type fakeArchive struct {
	recorded []string
	err      error
}

func (a *fakeArchive) RecordDelivery(_ context.Context, post facebook.Post) error {
	if a.err != nil {
		return a.err
	}
	a.recorded = append(a.recorded, post.ID)
	return nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestRunner(t *testing.T, feed *fakeFeed, hook *fakeHook, states *fakeStates, archive Archive) *Runner {
	t.Helper()
	r, err := NewRunner(feed, hook, states, archive, 5, quietLogger())
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	return r
}

func TestNewRunner_Validation(t *testing.T) {
	feed := &fakeFeed{}
	hook := &fakeHook{}
	states := &fakeStates{}
	log := quietLogger()

	if _, err := NewRunner(nil, hook, states, nil, 5, log); err == nil {
		t.Error("expected error for nil feed")
	}
	if _, err := NewRunner(feed, nil, states, nil, 5, log); err == nil {
		t.Error("expected error for nil announcer")
	}
	if _, err := NewRunner(feed, hook, nil, nil, 5, log); err == nil {
		t.Error("expected error for nil state store")
	}
	if _, err := NewRunner(feed, hook, states, nil, 5, nil); err == nil {
		t.Error("expected error for nil logger")
	}
}

func TestRun_FirstRunSeedsWatermark(t *testing.T) {
	feed := &fakeFeed{posts: []facebook.Post{{ID: "C"}, {ID: "B"}, {ID: "A"}}}
	hook := &fakeHook{}
	states := &fakeStates{}
	r := newTestRunner(t, feed, hook, states, nil)

	out, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if out.Result != ResultInitialized {
		t.Errorf("result = %v, want ResultInitialized", out.Result)
	}
	if len(hook.announced) != 0 {
		t.Errorf("announced = %v, want none on first run", hook.announced)
	}
	if states.current.LastPostID != "C" {
		t.Errorf("watermark = %q, want newest id C", states.current.LastPostID)
	}
	if out.Watermark != "C" || out.Fetched != 3 || out.Delivered != 0 {
		t.Errorf("outcome = %+v", out)
	}
}

func TestRun_DeliversOldestFirst(t *testing.T) {
	feed := &fakeFeed{posts: []facebook.Post{{ID: "A"}, {ID: "B"}, {ID: "X"}, {ID: "C"}}}
	hook := &fakeHook{}
	states := &fakeStates{current: state.Watermark{LastPostID: "X"}}
	r := newTestRunner(t, feed, hook, states, nil)

	out, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if out.Result != ResultDelivered {
		t.Errorf("result = %v, want ResultDelivered", out.Result)
	}
	if len(hook.announced) != 2 || hook.announced[0] != "B" || hook.announced[1] != "A" {
		t.Errorf("announced = %v, want [B A]", hook.announced)
	}
	if states.current.LastPostID != "A" {
		t.Errorf("watermark = %q, want A", states.current.LastPostID)
	}
	if out.Delivered != 2 || out.Fresh != 2 || out.Fetched != 4 {
		t.Errorf("outcome = %+v", out)
	}
}

func TestRun_PersistsAfterEachDelivery(t *testing.T) {
	feed := &fakeFeed{posts: []facebook.Post{{ID: "A"}, {ID: "B"}, {ID: "X"}}}
	hook := &fakeHook{}
	states := &fakeStates{current: state.Watermark{LastPostID: "X"}}
	r := newTestRunner(t, feed, hook, states, nil)

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	// One write per delivered post plus the terminal write.
	want := []string{"B", "A", "A"}
	if len(states.saves) != len(want) {
		t.Fatalf("saves = %v, want %v", states.saves, want)
	}
	for i := range want {
		if states.saves[i] != want[i] {
			t.Fatalf("saves = %v, want %v", states.saves, want)
		}
	}
}

func TestRun_DeliveryFailureKeepsDeliveredWatermark(t *testing.T) {
	feed := &fakeFeed{posts: []facebook.Post{{ID: "A"}, {ID: "B"}, {ID: "X"}}}
	failure := errors.New("status 500")
	hook := &fakeHook{failOn: "A", err: failure}
	states := &fakeStates{current: state.Watermark{LastPostID: "X"}}
	r := newTestRunner(t, feed, hook, states, nil)

	out, err := r.Run(context.Background())
	if !errors.Is(err, failure) {
		t.Fatalf("err = %v, want announce failure", err)
	}

	// B went out and was acknowledged; A was not, so the next run
	// picks it up again.
	if states.current.LastPostID != "B" {
		t.Errorf("watermark = %q, want B", states.current.LastPostID)
	}
	if out.Delivered != 1 {
		t.Errorf("delivered = %d, want 1", out.Delivered)
	}
}

func TestRun_FetchFailureLeavesStateUntouched(t *testing.T) {
	failure := errors.New("status 400")
	feed := &fakeFeed{err: failure}
	states := &fakeStates{current: state.Watermark{LastPostID: "X"}}
	r := newTestRunner(t, feed, &fakeHook{}, states, nil)

	_, err := r.Run(context.Background())
	if !errors.Is(err, failure) {
		t.Fatalf("err = %v, want fetch failure", err)
	}
	if len(states.saves) != 0 {
		t.Errorf("saves = %v, want none", states.saves)
	}
	if states.current.LastPostID != "X" {
		t.Errorf("watermark = %q, want X unchanged", states.current.LastPostID)
	}
}

func TestRun_EmptyFeedIsNoOp(t *testing.T) {
	feed := &fakeFeed{}
	hook := &fakeHook{}
	states := &fakeStates{current: state.Watermark{LastPostID: "X"}}
	r := newTestRunner(t, feed, hook, states, nil)

	out, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if out.Result != ResultNoPosts {
		t.Errorf("result = %v, want ResultNoPosts", out.Result)
	}
	if len(states.saves) != 0 {
		t.Errorf("saves = %v, want no state mutation", states.saves)
	}
	if len(hook.announced) != 0 {
		t.Errorf("announced = %v, want none", hook.announced)
	}
	if out.Watermark != "X" {
		t.Errorf("watermark = %q, want previous value reported", out.Watermark)
	}
}

func TestRun_UnreadableStateFallsBackToFirstRun(t *testing.T) {
	feed := &fakeFeed{posts: []facebook.Post{{ID: "B"}, {ID: "A"}}}
	hook := &fakeHook{}
	states := &fakeStates{loadErr: &state.StateError{Path: "state.json", Err: errors.New("bad json")}}
	r := newTestRunner(t, feed, hook, states, nil)

	out, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if out.Result != ResultInitialized {
		t.Errorf("result = %v, want ResultInitialized", out.Result)
	}
	if len(hook.announced) != 0 {
		t.Errorf("announced = %v, want none", hook.announced)
	}
}

func TestRun_WatermarkOutsideWindowDeliversAll(t *testing.T) {
	feed := &fakeFeed{posts: []facebook.Post{{ID: "C"}, {ID: "B"}, {ID: "A"}}}
	hook := &fakeHook{}
	states := &fakeStates{current: state.Watermark{LastPostID: "gone"}}
	r := newTestRunner(t, feed, hook, states, nil)

	out, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(hook.announced) != 3 || hook.announced[0] != "A" || hook.announced[2] != "C" {
		t.Errorf("announced = %v, want [A B C]", hook.announced)
	}
	if out.Watermark != "C" {
		t.Errorf("watermark = %q, want C", out.Watermark)
	}
}

func TestRun_ArchivesDeliveredPosts(t *testing.T) {
	feed := &fakeFeed{posts: []facebook.Post{{ID: "A"}, {ID: "X"}}}
	hook := &fakeHook{}
	states := &fakeStates{current: state.Watermark{LastPostID: "X"}}
	archive := &fakeArchive{}
	r := newTestRunner(t, feed, hook, states, archive)

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(archive.recorded) != 1 || archive.recorded[0] != "A" {
		t.Errorf("recorded = %v, want [A]", archive.recorded)
	}
}

func TestRun_ArchiveFailureDoesNotAbort(t *testing.T) {
	feed := &fakeFeed{posts: []facebook.Post{{ID: "A"}, {ID: "X"}}}
	hook := &fakeHook{}
	states := &fakeStates{current: state.Watermark{LastPostID: "X"}}
	archive := &fakeArchive{err: errors.New("disk full")}
	r := newTestRunner(t, feed, hook, states, archive)

	out, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Delivered != 1 {
		t.Errorf("delivered = %d, want 1 despite archive failure", out.Delivered)
	}
}

func TestRun_PersistFailureAborts(t *testing.T) {
	feed := &fakeFeed{posts: []facebook.Post{{ID: "A"}, {ID: "X"}}}
	hook := &fakeHook{}
	states := &fakeStates{current: state.Watermark{LastPostID: "X"}, saveErr: errors.New("read-only fs")}
	r := newTestRunner(t, feed, hook, states, nil)

	out, err := r.Run(context.Background())
	if err == nil {
		t.Fatal("expected persist failure")
	}
	// The announcement itself went out before the write failed.
	if out.Delivered != 1 {
		t.Errorf("delivered = %d, want 1", out.Delivered)
	}
}

func TestRun_PassesLimitToFeed(t *testing.T) {
	feed := &fakeFeed{}
	r, err := NewRunner(feed, &fakeHook{}, &fakeStates{}, nil, 25, quietLogger())
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if feed.limit != 25 {
		t.Errorf("limit = %d, want 25", feed.limit)
	}
}
