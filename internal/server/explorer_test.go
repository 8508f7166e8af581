package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"chess-explorer/internal/api"
	"chess-explorer/internal/chesscom"
	"chess-explorer/internal/middleware"
	"chess-explorer/internal/service"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockFetcher struct {
	mu     sync.Mutex
	bodies map[string]string
	status map[string]int
	calls  int
}

func (m *mockFetcher) Fetch(_ context.Context, endpoint string) (api.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if status, ok := m.status[endpoint]; ok {
		return nil, &api.FetchError{Endpoint: endpoint, StatusCode: status}
	}
	body, ok := m.bodies[endpoint]
	if !ok {
		return nil, &api.FetchError{Endpoint: endpoint, StatusCode: http.StatusNotFound}
	}
	var d api.Document
	if err := json.Unmarshal([]byte(body), &d); err != nil {
		return nil, &api.FetchError{Endpoint: endpoint, Err: err}
	}
	return d, nil
}

func newTestServer(t *testing.T, bodies map[string]string, status map[string]int) (*httptest.Server, *mockFetcher) {
	t.Helper()
	f := &mockFetcher{bodies: bodies, status: status}
	cache := chesscom.New(f, zerolog.Nop())
	s := NewExplorerServer(cache, service.NewRatingService(cache, zerolog.Nop()), zerolog.Nop())

	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)
	return ts, f
}

func getJSON(t *testing.T, ts *httptest.Server, path string, out any) int {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

const profileBody = `{
	"url": "https://www.chess.com/member/Hikaru",
	"username": "hikaru",
	"player_id": 15448422,
	"title": "GM",
	"status": "premium",
	"name": "Hikaru Nakamura",
	"country": "https://api.chess.com/pub/country/US",
	"joined": 1389043258,
	"last_online": 1709290000,
	"followers": 1225535,
	"is_streamer": true,
	"twitch_url": "https://twitch.tv/gmhikaru"
}`

func TestExplorerServer_GetPlayer(t *testing.T) {
	ts, f := newTestServer(t, map[string]string{"player/Hikaru": profileBody}, nil)

	var got PlayerResponse
	status := getJSON(t, ts, "/players/Hikaru", &got)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "hikaru", got.Username)
	assert.Equal(t, "Hikaru", got.CanonicalUsername)
	assert.Equal(t, int64(15448422), got.ID)
	require.NotNil(t, got.Title)
	assert.Equal(t, "GM", *got.Title)
	assert.Equal(t, "US", got.Country)
	assert.Nil(t, got.Avatar)
	assert.Equal(t, 1225535, got.Followers)
	assert.Equal(t, 1, f.calls)
}

func TestExplorerServer_PlayerNotFound(t *testing.T) {
	ts, _ := newTestServer(t, map[string]string{}, nil)

	var got map[string]string
	status := getJSON(t, ts, "/players/nobody", &got)

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not found", got["error"])
}

func TestExplorerServer_UpstreamFailure(t *testing.T) {
	ts, _ := newTestServer(t, nil, map[string]int{"player/hikaru/is-online": http.StatusInternalServerError})

	var got map[string]string
	status := getJSON(t, ts, "/players/hikaru/online", &got)

	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "upstream request failed", got["error"])
}

func TestExplorerServer_DataUnavailable(t *testing.T) {
	ts, _ := newTestServer(t, map[string]string{"player/partial": `{"username": "partial"}`}, nil)

	var got map[string]string
	status := getJSON(t, ts, "/players/partial", &got)

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "data unavailable", got["error"])
}

func TestExplorerServer_Rating(t *testing.T) {
	ts, f := newTestServer(t, map[string]string{
		"player/hikaru/stats": `{"chess_blitz": {"last": {"rating": 3250, "date": 1709200000, "rd": 25}, "record": {"win": 2, "loss": 1, "draw": 1}}}`,
	}, nil)

	var got RatingResponse
	status := getJSON(t, ts, "/players/hikaru/ratings/chess_blitz", &got)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3250, got.Rating)
	assert.Equal(t, 4, got.Games)
	assert.Nil(t, got.BestDate)

	var miss map[string]string
	status = getJSON(t, ts, "/players/hikaru/ratings/chess_bullet", &miss)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "no rating", miss["error"])

	assert.Equal(t, 1, f.calls)
}

func TestExplorerServer_Stats(t *testing.T) {
	ts, _ := newTestServer(t, map[string]string{
		"player/hikaru/stats": `{
			"chess_rapid": {"last": {"rating": 2900, "date": 1, "rd": 30}},
			"chess_blitz": {"last": {"rating": 3250, "date": 1, "rd": 25}},
			"fide": 2789
		}`,
	}, nil)

	var got struct {
		Username string           `json:"username"`
		Stats    []RatingResponse `json:"stats"`
	}
	status := getJSON(t, ts, "/players/hikaru/stats", &got)

	assert.Equal(t, http.StatusOK, status)
	require.Len(t, got.Stats, 2)
	assert.Equal(t, "chess_blitz", got.Stats[0].Category)
	assert.Equal(t, "chess_rapid", got.Stats[1].Category)
}

func TestExplorerServer_PlayerClubs(t *testing.T) {
	ts, _ := newTestServer(t, map[string]string{
		"player/erik/clubs": `{"clubs": [{"@id": "https://api.chess.com/pub/club/chess-com-developer-community", "joined": 1500000000, "last_activity": 1700000000}]}`,
	}, nil)

	var list struct {
		Clubs []ClubMembership `json:"clubs"`
	}
	status := getJSON(t, ts, "/players/erik/clubs", &list)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, list.Clubs, 1)
	assert.Equal(t, "chess-com-developer-community", list.Clubs[0].Club)
	require.NotNil(t, list.Clubs[0].Joined)
	assert.Equal(t, int64(1500000000), list.Clubs[0].Joined.Unix())

	var activity ClubMembership
	status = getJSON(t, ts, "/players/erik/clubs/Chess-Com-Developer-Community", &activity)
	assert.Equal(t, http.StatusOK, status)
	require.NotNil(t, activity.LastActivity)

	var miss map[string]string
	status = getJSON(t, ts, "/players/erik/clubs/other", &miss)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not a member", miss["error"])
}

func TestExplorerServer_PlayerClubWithoutTimestamps(t *testing.T) {
	ts, _ := newTestServer(t, map[string]string{
		"player/erik/clubs": `{"clubs": [{"@id": "https://api.chess.com/pub/club/c1"}]}`,
	}, nil)

	var activity ClubMembership
	status := getJSON(t, ts, "/players/erik/clubs/c1", &activity)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "c1", activity.Club)
	assert.Nil(t, activity.Joined)
	assert.Nil(t, activity.LastActivity)
}

func TestExplorerServer_Club(t *testing.T) {
	ts, _ := newTestServer(t, map[string]string{
		"club/devs": `{
			"name": "Developers", "club_id": 57796, "country": "https://api.chess.com/pub/country/US",
			"created": 1482418012, "last_activity": 1709100000, "visibility": "private",
			"join_request": "https://www.chess.com/club/join/devs",
			"admin": ["https://api.chess.com/pub/player/erik"]
		}`,
		"club/devs/members": `{"weekly": [{"username": "erik"}], "monthly": [], "all_time": [{"username": "danny"}]}`,
	}, nil)

	var club ClubResponse
	status := getJSON(t, ts, "/clubs/devs", &club)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Developers", club.Name)
	assert.False(t, club.Public)
	assert.Equal(t, []string{"erik"}, club.Admins)
	assert.Nil(t, club.Description)

	var members struct {
		Members []string `json:"members"`
	}
	status = getJSON(t, ts, "/clubs/devs/members", &members)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"danny", "erik"}, members.Members)
}

func TestExplorerServer_ClubRatings(t *testing.T) {
	ts, _ := newTestServer(t, map[string]string{
		"club/devs":         `{"name": "Developers"}`,
		"club/devs/members": `{"all_time": [{"username": "erik"}]}`,
		"player/erik/stats": `{"chess_blitz": {"last": {"rating": 1800, "date": 1, "rd": 40}}}`,
	}, nil)

	var got service.ClubRatings
	status := getJSON(t, ts, "/clubs/devs/ratings", &got)

	assert.Equal(t, http.StatusOK, status)
	require.Len(t, got.Members, 1)
	assert.Equal(t, 1800, got.Members[0].Ratings["chess_blitz"])
	assert.Equal(t, 1, got.Categories["chess_blitz"].Players)
}

func TestExplorerServer_Country(t *testing.T) {
	ts, _ := newTestServer(t, map[string]string{
		"country/BR":         `{"name": "Brazil", "code": "BR"}`,
		"country/BR/players": `{"players": ["magnuscarlsen"]}`,
		"country/BR/clubs":   `{"clubs": ["https://api.chess.com/pub/club/xadrez-brasil"]}`,
	}, nil)

	var country map[string]string
	status := getJSON(t, ts, "/countries/br", &country)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]string{"code": "BR", "name": "Brazil"}, country)

	var players struct {
		Players []string `json:"players"`
	}
	status = getJSON(t, ts, "/countries/BR/players", &players)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"magnuscarlsen"}, players.Players)

	var clubs struct {
		Clubs []string `json:"clubs"`
	}
	status = getJSON(t, ts, "/countries/br/clubs", &clubs)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"xadrez-brasil"}, clubs.Clubs)
}

func TestExplorerServer_Titled(t *testing.T) {
	ts, _ := newTestServer(t, map[string]string{"titled/WGM": `{"players": ["judit", "hou_yifan"]}`}, nil)

	var got struct {
		Title   string   `json:"title"`
		Players []string `json:"players"`
	}
	status := getJSON(t, ts, "/titled/wgm", &got)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "WGM", got.Title)
	assert.Equal(t, []string{"judit", "hou_yifan"}, got.Players)

	var bad map[string]string
	status = getJSON(t, ts, "/titled/king", &bad)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, bad["error"], "unknown title")
}

func TestExplorerServer_Health(t *testing.T) {
	ts, f := newTestServer(t, map[string]string{"player/a": `{}`}, nil)

	var got struct {
		Status string        `json:"status"`
		Cache  chesscom.Size `json:"cache"`
	}
	status := getJSON(t, ts, "/health", &got)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", got.Status)
	assert.Equal(t, chesscom.Size{}, got.Cache)
	assert.Equal(t, 0, f.calls)
}

func TestExplorerServer_ErrorCarriesRequestID(t *testing.T) {
	f := &mockFetcher{}
	cache := chesscom.New(f, zerolog.Nop())
	s := NewExplorerServer(cache, service.NewRatingService(cache, zerolog.Nop()), zerolog.Nop())
	ts := httptest.NewServer(middleware.RequestID(zerolog.Nop())(s.Routes()))
	t.Cleanup(ts.Close)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/players/nobody", nil)
	require.NoError(t, err)
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var got map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "req-42", resp.Header.Get(middleware.RequestIDHeader))
	assert.Equal(t, "not found", got["error"])
	assert.Equal(t, "req-42", got["request_id"])
}

func TestExplorerServer_ErrorWithoutRequestID(t *testing.T) {
	ts, _ := newTestServer(t, nil, nil)

	var got map[string]string
	status := getJSON(t, ts, "/players/nobody", &got)

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not found", got["error"])
	assert.NotContains(t, got, "request_id")
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", &api.FetchError{StatusCode: 404}, http.StatusNotFound},
		{"upstream", &api.FetchError{StatusCode: 503}, http.StatusBadGateway},
		{"unavailable", &chesscom.DataUnavailableError{Entity: "player x", Field: "name"}, http.StatusNotFound},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"other", assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := errorStatus(tt.err)
			assert.Equal(t, tt.status, status)
		})
	}
}
