package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"chess-explorer/internal/api"
	"chess-explorer/internal/chesscom"
	"chess-explorer/internal/domain"
	"chess-explorer/internal/middleware"
	"chess-explorer/internal/service"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

type ExplorerServer struct {
	cache   *chesscom.Cache
	ratings *service.RatingService
	logger  zerolog.Logger
}

func NewExplorerServer(cache *chesscom.Cache, ratings *service.RatingService, logger zerolog.Logger) *ExplorerServer {
	return &ExplorerServer{cache: cache, ratings: ratings, logger: logger}
}

// Routes registers every endpoint on a new ServeMux.
func (s *ExplorerServer) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /players/{username}", s.getPlayer)
	mux.HandleFunc("GET /players/{username}/clubs", s.getPlayerClubs)
	mux.HandleFunc("GET /players/{username}/clubs/{club}", s.getPlayerClubActivity)
	mux.HandleFunc("GET /players/{username}/stats", s.getPlayerStats)
	mux.HandleFunc("GET /players/{username}/ratings/{category}", s.getPlayerRating)
	mux.HandleFunc("GET /players/{username}/online", s.getPlayerOnline)

	mux.HandleFunc("GET /clubs/{slug}", s.getClub)
	mux.HandleFunc("GET /clubs/{slug}/members", s.getClubMembers)
	mux.HandleFunc("GET /clubs/{slug}/ratings", s.getClubRatings)

	mux.HandleFunc("GET /countries/{code}", s.getCountry)
	mux.HandleFunc("GET /countries/{code}/players", s.getCountryPlayers)
	mux.HandleFunc("GET /countries/{code}/clubs", s.getCountryClubs)

	mux.HandleFunc("GET /titled/{title}", s.getTitled)

	mux.HandleFunc("GET /health", s.health)
	return mux
}

// --- players ---

type PlayerResponse struct {
	Username          string    `json:"username"`
	CanonicalUsername string    `json:"canonical_username"`
	URL               string    `json:"url"`
	ID                int64     `json:"player_id"`
	Title             *string   `json:"title,omitempty"`
	Status            string    `json:"status"`
	Name              *string   `json:"name,omitempty"`
	Avatar            *string   `json:"avatar,omitempty"`
	Location          *string   `json:"location,omitempty"`
	Country           string    `json:"country"`
	Joined            time.Time `json:"joined"`
	LastOnline        time.Time `json:"last_online"`
	Followers         int       `json:"followers"`
	IsStreamer        bool      `json:"is_streamer"`
	TwitchURL         *string   `json:"twitch_url,omitempty"`
}

func (s *ExplorerServer) getPlayer(w http.ResponseWriter, r *http.Request) {
	p := s.cache.Player(r.PathValue("username"))
	f := &fieldReader{ctx: r.Context()}

	resp := PlayerResponse{
		Username:          read(f, p.Username),
		CanonicalUsername: read(f, p.CanonicalUsername),
		URL:               read(f, p.URL),
		ID:                read(f, p.ID),
		Status:            string(read(f, p.Status)),
		Name:              read(f, p.Name),
		Avatar:            read(f, p.Avatar),
		Location:          read(f, p.Location),
		Country:           countryKey(read(f, p.Country)),
		Joined:            read(f, p.Joined),
		LastOnline:        read(f, p.LastOnline),
		Followers:         read(f, p.Followers),
		IsStreamer:        read(f, p.IsStreamer),
		TwitchURL:         read(f, p.TwitchURL),
	}
	if title := read(f, p.Title); title != nil {
		t := string(*title)
		resp.Title = &t
	}
	if f.err != nil {
		s.writeError(w, r, f.err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type ClubMembership struct {
	Club         string     `json:"club"`
	Joined       *time.Time `json:"joined,omitempty"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
}

func (s *ExplorerServer) getPlayerClubs(w http.ResponseWriter, r *http.Request) {
	p := s.cache.Player(r.PathValue("username"))
	clubs, err := p.Clubs(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	memberships := make([]ClubMembership, 0, len(clubs))
	for _, c := range clubs {
		m, _, err := s.membership(r.Context(), p, c.Key())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		memberships = append(memberships, m)
	}
	writeJSON(w, http.StatusOK, map[string]any{"username": p.Key(), "clubs": memberships})
}

func (s *ExplorerServer) getPlayerClubActivity(w http.ResponseWriter, r *http.Request) {
	p := s.cache.Player(r.PathValue("username"))
	m, ok, err := s.membership(r.Context(), p, r.PathValue("club"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		writeMessage(w, http.StatusNotFound, "not a member")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *ExplorerServer) membership(ctx context.Context, p *chesscom.Player, slug string) (ClubMembership, bool, error) {
	m := ClubMembership{Club: slug}
	member, err := p.IsMemberOf(ctx, slug)
	if err != nil || !member {
		return m, false, err
	}
	joined, hasJoined, err := p.JoinedClub(ctx, slug)
	if err != nil {
		return m, false, err
	}
	last, hasLast, err := p.LastActiveInClub(ctx, slug)
	if err != nil {
		return m, false, err
	}
	if hasJoined {
		m.Joined = &joined
	}
	if hasLast {
		m.LastActivity = &last
	}
	return m, true, nil
}

type RatingResponse struct {
	Category   string     `json:"category"`
	Rating     int        `json:"rating"`
	RD         int        `json:"rd"`
	Date       time.Time  `json:"date"`
	BestRating int        `json:"best_rating,omitempty"`
	BestDate   *time.Time `json:"best_date,omitempty"`
	Wins       int        `json:"wins"`
	Losses     int        `json:"losses"`
	Draws      int        `json:"draws"`
	Games      int        `json:"games"`
}

func ratingResponse(st domain.RatingStats) RatingResponse {
	resp := RatingResponse{
		Category:   st.Category,
		Rating:     st.Rating,
		RD:         st.RD,
		Date:       st.Date,
		BestRating: st.BestRating,
		Wins:       st.Wins,
		Losses:     st.Losses,
		Draws:      st.Draws,
		Games:      st.Games(),
	}
	if !st.BestDate.IsZero() {
		resp.BestDate = &st.BestDate
	}
	return resp
}

func (s *ExplorerServer) getPlayerStats(w http.ResponseWriter, r *http.Request) {
	p := s.cache.Player(r.PathValue("username"))
	categories, err := p.Categories(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	stats := make([]RatingResponse, 0, len(categories))
	for _, category := range categories {
		st, ok, err := p.RatingStats(r.Context(), category)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if ok {
			stats = append(stats, ratingResponse(st))
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"username": p.Key(), "stats": stats})
}

func (s *ExplorerServer) getPlayerRating(w http.ResponseWriter, r *http.Request) {
	p := s.cache.Player(r.PathValue("username"))
	st, ok, err := p.RatingStats(r.Context(), r.PathValue("category"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		writeMessage(w, http.StatusNotFound, "no rating")
		return
	}
	writeJSON(w, http.StatusOK, ratingResponse(st))
}

func (s *ExplorerServer) getPlayerOnline(w http.ResponseWriter, r *http.Request) {
	p := s.cache.Player(r.PathValue("username"))
	online, err := p.IsOnline(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"username": p.Key(), "online": online})
}

// --- clubs ---

type ClubResponse struct {
	Slug         string    `json:"slug"`
	Name         string    `json:"name"`
	ID           int64     `json:"club_id"`
	Icon         *string   `json:"icon,omitempty"`
	Country      string    `json:"country"`
	Created      time.Time `json:"created"`
	LastActivity time.Time `json:"last_activity"`
	Public       bool      `json:"public"`
	JoinRequest  string    `json:"join_request"`
	Admins       []string  `json:"admins"`
	Description  *string   `json:"description,omitempty"`
}

func (s *ExplorerServer) getClub(w http.ResponseWriter, r *http.Request) {
	c := s.cache.Club(r.PathValue("slug"))
	f := &fieldReader{ctx: r.Context()}

	resp := ClubResponse{
		Slug:         c.Key(),
		Name:         read(f, c.Name),
		ID:           read(f, c.ID),
		Icon:         read(f, c.Icon),
		Country:      countryKey(read(f, c.Country)),
		Created:      read(f, c.Created),
		LastActivity: read(f, c.LastActivity),
		Public:       read(f, c.IsPublic),
		JoinRequest:  read(f, c.JoinRequest),
		Admins:       playerKeys(read(f, c.Admins)),
		Description:  read(f, c.Description),
	}
	if f.err != nil {
		s.writeError(w, r, f.err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *ExplorerServer) getClubMembers(w http.ResponseWriter, r *http.Request) {
	c := s.cache.Club(r.PathValue("slug"))
	members, err := c.Members(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"club": c.Key(), "members": playerKeys(members)})
}

func (s *ExplorerServer) getClubRatings(w http.ResponseWriter, r *http.Request) {
	ratings, err := s.ratings.ClubRatings(r.Context(), r.PathValue("slug"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ratings)
}

// --- countries ---

func (s *ExplorerServer) getCountry(w http.ResponseWriter, r *http.Request) {
	c := s.cache.Country(r.PathValue("code"))
	f := &fieldReader{ctx: r.Context()}

	resp := map[string]string{
		"code": read(f, c.Code),
		"name": read(f, c.Name),
	}
	if f.err != nil {
		s.writeError(w, r, f.err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *ExplorerServer) getCountryPlayers(w http.ResponseWriter, r *http.Request) {
	c := s.cache.Country(r.PathValue("code"))
	players, err := c.Players(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"country": c.Key(), "players": playerKeys(players)})
}

func (s *ExplorerServer) getCountryClubs(w http.ResponseWriter, r *http.Request) {
	c := s.cache.Country(r.PathValue("code"))
	clubs, err := c.Clubs(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	slugs := make([]string, 0, len(clubs))
	for _, club := range clubs {
		slugs = append(slugs, club.Key())
	}
	writeJSON(w, http.StatusOK, map[string]any{"country": c.Key(), "clubs": slugs})
}

// --- titled ---

func (s *ExplorerServer) getTitled(w http.ResponseWriter, r *http.Request) {
	title, err := domain.ParseTitle(r.PathValue("title"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	seq, err := s.cache.TitledPlayers(r.Context(), title)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	usernames := []string{}
	for p := range seq {
		usernames = append(usernames, p.Key())
	}
	writeJSON(w, http.StatusOK, map[string]any{"title": title, "players": usernames})
}

func (s *ExplorerServer) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "cache": s.cache.Size()})
}

// --- helpers ---

// fieldReader reads accessors until the first error, which it keeps.
type fieldReader struct {
	ctx context.Context
	err error
}

func read[T any](f *fieldReader, get func(context.Context) (T, error)) T {
	var zero T
	if f.err != nil {
		return zero
	}
	v, err := get(f.ctx)
	if err != nil {
		f.err = err
		return zero
	}
	return v
}

func countryKey(c *chesscom.Country) string {
	if c == nil {
		return ""
	}
	return c.Key()
}

func playerKeys(players []*chesscom.Player) []string {
	keys := make([]string, 0, len(players))
	for _, p := range players {
		keys = append(keys, p.Key())
	}
	return keys
}

func (s *ExplorerServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := errorStatus(err)
	requestID := middleware.GetRequestID(r.Context())

	logger := zerolog.Ctx(r.Context())
	if logger.GetLevel() == zerolog.Disabled {
		logger = &s.logger
	}
	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request failed")

	body := map[string]string{"error": msg}
	if requestID != "" {
		body["request_id"] = requestID
	}
	writeJSON(w, status, body)
}

func errorStatus(err error) (int, string) {
	var fe *api.FetchError
	switch {
	case errors.Is(err, chesscom.ErrDataUnavailable):
		return http.StatusNotFound, "data unavailable"
	case api.IsNotFound(err):
		return http.StatusNotFound, "not found"
	case errors.As(err, &fe):
		return http.StatusBadGateway, "upstream request failed"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timed out"
	case errors.Is(err, context.Canceled):
		return 499, "request canceled"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
