package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"chess-explorer/internal/api"
	"chess-explorer/internal/chesscom"
	"chess-explorer/internal/database"
	"chess-explorer/internal/repository"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// fakeFetcher serves canned JSON bodies; unknown endpoints are 404s.
type fakeFetcher struct {
	mu     sync.Mutex
	bodies map[string]string
	status map[string]int
	calls  map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		bodies: make(map[string]string),
		status: make(map[string]int),
		calls:  make(map[string]int),
	}
}

func (f *fakeFetcher) Fetch(_ context.Context, endpoint string) (api.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[endpoint]++

	if status, ok := f.status[endpoint]; ok {
		return nil, &api.FetchError{Endpoint: endpoint, StatusCode: status}
	}
	body, ok := f.bodies[endpoint]
	if !ok {
		return nil, &api.FetchError{Endpoint: endpoint, StatusCode: 404}
	}
	var d api.Document
	if err := json.Unmarshal([]byte(body), &d); err != nil {
		return nil, &api.FetchError{Endpoint: endpoint, Err: err}
	}
	return d, nil
}

func (f *fakeFetcher) count(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[endpoint]
}

func profile(username, name, avatar, status string, joined int64) string {
	doc := map[string]any{
		"@id":         "https://api.chess.com/pub/player/" + username,
		"url":         "https://www.chess.com/member/" + username,
		"username":    username,
		"player_id":   1,
		"followers":   0,
		"country":     "https://api.chess.com/pub/country/BR",
		"last_online": joined,
		"joined":      joined,
		"status":      status,
		"is_streamer": false,
	}
	if name != "" {
		doc["name"] = name
	}
	if avatar != "" {
		doc["avatar"] = avatar
	}
	b, err := json.Marshal(doc)
	if err != nil {
		panic(fmt.Sprintf("marshal profile: %v", err))
	}
	return string(b)
}

func newTestInviteRepository(t *testing.T) *repository.InviteRepository {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "invites.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return repository.NewInviteRepository(db, zerolog.Nop())
}

func newTestCache(f *fakeFetcher) *chesscom.Cache {
	return chesscom.New(f, zerolog.Nop())
}
