package chesscom

import (
	"context"
	"sync"
	"testing"
	"time"

	"chess-explorer/internal/api"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// fakeGateway serves canned documents and counts calls per endpoint.
type fakeGateway struct {
	mu      sync.Mutex
	docs    map[string]api.Document
	errs    map[string]error
	calls   map[string]int
	block   chan struct{} // when set, every Fetch waits for it to close
	entered chan string   // when set, receives the endpoint of every Fetch
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		docs:  make(map[string]api.Document),
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
}

func (g *fakeGateway) serve(t *testing.T, endpoint, body string) {
	t.Helper()
	var d api.Document
	require.NoError(t, json.Unmarshal([]byte(body), &d))

	g.mu.Lock()
	defer g.mu.Unlock()
	g.docs[endpoint] = d
}

func (g *fakeGateway) fail(endpoint string, status int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.errs[endpoint] = &api.FetchError{Endpoint: endpoint, StatusCode: status}
}

func (g *fakeGateway) Fetch(_ context.Context, endpoint string) (api.Document, error) {
	g.mu.Lock()
	g.calls[endpoint]++
	block, entered := g.block, g.entered
	g.mu.Unlock()

	if entered != nil {
		entered <- endpoint
	}
	if block != nil {
		<-block
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if err, ok := g.errs[endpoint]; ok {
		return nil, err
	}
	if d, ok := g.docs[endpoint]; ok {
		return d, nil
	}
	return nil, &api.FetchError{Endpoint: endpoint, StatusCode: 404}
}

func (g *fakeGateway) count(endpoint string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[endpoint]
}

func (g *fakeGateway) total() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		n += c
	}
	return n
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCache(gw *fakeGateway, clock *fakeClock, opts ...Option) *Cache {
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return New(gw, zerolog.Nop(), opts...)
}

const hikaruProfile = `{
	"avatar": "https://images.chesscomfiles.com/uploads/v1/user/15448422.jpg",
	"player_id": 15448422,
	"@id": "https://api.chess.com/pub/player/hikaru",
	"url": "https://www.chess.com/member/Hikaru",
	"name": "Hikaru Nakamura",
	"username": "hikaru",
	"title": "GM",
	"followers": 1225535,
	"country": "https://api.chess.com/pub/country/US",
	"location": "Florida",
	"last_online": 1709290000,
	"joined": 1389043258,
	"status": "premium",
	"is_streamer": true,
	"twitch_url": "https://twitch.tv/gmhikaru",
	"verified": false,
	"league": "Legend"
}`

const hikaruStats = `{
	"chess_daily": {
		"last": {"rating": 2300, "date": 1707000000, "rd": 120},
		"best": {"rating": 2400, "date": 1600000000, "game": "https://www.chess.com/game/daily/1"},
		"record": {"win": 40, "loss": 2, "draw": 5, "time_per_move": 3000, "timeout_percent": 0}
	},
	"chess_blitz": {
		"last": {"rating": 3250, "date": 1709200000, "rd": 25},
		"record": {"win": 20000, "loss": 4000, "draw": 3000}
	},
	"fide": 2789,
	"tactics": {"highest": {"rating": 3500, "date": 1600000000}},
	"puzzle_rush": {"best": {"total_attempts": 50, "score": 49}}
}`
