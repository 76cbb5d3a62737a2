package webhook

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"loyaltykit/core"
)

func TestSink_OnEventPostsToEndpoints(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if got := r.Header.Get("X-Loyalty-Event"); got != string(core.EventPointsAwarded) {
			t.Errorf("event header = %q", got)
		}
		_, _ = io.ReadAll(r.Body)
		_ = r.Body.Close()
	}))
	defer srv.Close()

	sink := New([]string{srv.URL})
	sink.OnEvent(core.NewPointsAwarded("u1", core.ActionArticleRead, "a1", 5, 5))

	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", hits)
	}
}

func TestSink_EventTypeFilter(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	sink := New([]string{srv.URL}, WithEventTypes(core.EventLevelUp, core.EventMilestoneUnlocked))
	sink.OnEvent(core.NewPointsAwarded("u1", core.ActionArticleRead, "a1", 5, 5))
	sink.OnEvent(core.NewLevelUp("u1", "Active", 105))

	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected only the level-up to be delivered, got %d hits", hits)
	}
}
