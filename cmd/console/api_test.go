package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/narrative-engine/pkg/effect"
	"github.com/jwebster45206/narrative-engine/pkg/engine"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *apiClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &apiClient{client: srv.Client(), baseURL: srv.URL, playerID: "p1"}
}

func TestGetProgress_NewPlayer(t *testing.T) {
	api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/players/p1/progress", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"code":"not_found","message":"no progress for player"}`))
	})

	res, err := api.getProgress()
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Nil(t, res.Progress)
}

func TestChoose_ErrorCarriesMessage(t *testing.T) {
	api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"code":"invalid_choice_index","message":"choice index 7 out of range"}`))
	})

	_, err := api.choose(7)
	require.Error(t, err)
	assert.Equal(t, "choice index 7 out of range", err.Error())
}

func TestDo_PlainErrorResponse(t *testing.T) {
	api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Chapter not found"}`))
	})

	_, err := api.getChapter("missing")
	assert.EqualError(t, err, "Chapter not found")
}

func TestAvailableChapters(t *testing.T) {
	api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"dialogue_index":0,"chapters":["harbor","intro"]}`))
	})

	ids, err := api.availableChapters()
	require.NoError(t, err)
	assert.Equal(t, []string{"harbor", "intro"}, ids)
}

func TestReadSSE(t *testing.T) {
	stream := strings.Join([]string{
		"event: connected",
		`data: {"player_id":"p1","message":"Connected to event stream"}`,
		"",
		": keepalive",
		"",
		"event: chapter.started",
		`data: {"type":"chapter.started","player_id":"p1","chapter_id":"intro","at":"2025-12-25T10:00:00Z"}`,
		"",
	}, "\n")

	out := make(chan engine.Notification, 4)
	require.NoError(t, readSSE(context.Background(), strings.NewReader(stream), out))
	close(out)

	var got []engine.Notification
	for n := range out {
		got = append(got, n)
	}
	require.Len(t, got, 1)
	assert.Equal(t, engine.NotifyChapterStarted, got[0].Type)
	assert.Equal(t, "intro", got[0].ChapterID)
}

func TestReadSSE_FramesSplitByBlankLines(t *testing.T) {
	stream := "event: chapter.started\n" +
		`data: {"type":"chapter.started","player_id":"p1","chapter_id":"intro"}` + "\n\n" +
		"event: chapter.completed\n" +
		`data: {"type":"chapter.completed","player_id":"p1","chapter_id":"intro"}` + "\n\n"

	out := make(chan engine.Notification, 4)
	require.NoError(t, readSSE(context.Background(), strings.NewReader(stream), out))
	close(out)

	var types []engine.NotificationType
	for n := range out {
		types = append(types, n.Type)
	}
	assert.Equal(t, []engine.NotificationType{engine.NotifyChapterStarted, engine.NotifyChapterCompleted}, types)
}

func TestDescribeResult(t *testing.T) {
	res := &engine.Result{
		Success:     true,
		NextChapter: "harbor",
		Rewards:     []effect.Effect{{Kind: effect.KindExperience, Delta: 50}},
	}
	assert.Equal(t, "complete intro: ok, next chapter harbor, rewards experience:+50", describeResult("complete intro", res))
}
