// Package chesscom mirrors the chess.com player, club and country graph as
// lazily fetched, TTL-cached entities.
//
// Looking up an entity never performs I/O. The first read of an attribute
// fetches the attribute's whole group with one API call; later reads reuse the
// result until it expires. Entities reference each other through the Cache, so
// two references to the same remote entity always share one instance.
//
// The Cache never evicts entities. Memory grows with the number of distinct
// players, clubs and countries observed, which matters when a Cache is kept
// alive by a long-running server.
package chesscom

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync/atomic"
	"time"

	"chess-explorer/internal/api"
	"chess-explorer/internal/constants"
	"chess-explorer/internal/domain"
	"chess-explorer/internal/metrics"

	"github.com/rs/zerolog"
)

// Fetcher retrieves one API endpoint as a decoded JSON object. Failures should
// be reported as *api.FetchError.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string) (api.Document, error)
}

type Metrics interface {
	CellHit(group string)
	CellMiss(group string)
	EntityCreated(kind string)
}

type Cache struct {
	gateway   Fetcher
	logger    zerolog.Logger
	metrics   Metrics
	now       func() time.Time
	ttl       time.Duration
	onlineTTL time.Duration

	players   *Registry[Player]
	clubs     *Registry[Club]
	countries *Registry[Country]
}

type Option func(*Cache)

// WithTTL sets the lifetime of every group except the online status.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

func WithOnlineTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.onlineTTL = ttl }
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func WithMetrics(m Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

func New(gateway Fetcher, logger zerolog.Logger, opts ...Option) *Cache {
	c := &Cache{
		gateway:   gateway,
		logger:    logger,
		metrics:   metrics.Noop(),
		now:       time.Now,
		ttl:       constants.DefaultCacheTTL,
		onlineTTL: constants.OnlineCacheTTL,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.players = NewRegistry(func(key string) *Player { return newPlayer(c, key) }, c.entityCreated("player"))
	c.clubs = NewRegistry(func(key string) *Club { return newClub(c, key) }, c.entityCreated("club"))
	c.countries = NewRegistry(func(key string) *Country { return newCountry(c, key) }, c.entityCreated("country"))
	return c
}

// Player returns the player with the given username, matched case-insensitively.
func (c *Cache) Player(username string) *Player {
	return c.players.GetOrCreate(username)
}

// Club returns the club with the given URL slug, matched case-insensitively.
func (c *Cache) Club(slug string) *Club {
	return c.clubs.GetOrCreate(slug)
}

// Country returns the country with the given ISO 3166-1 alpha-2 code, matched
// case-insensitively.
func (c *Cache) Country(code string) *Country {
	return c.countries.GetOrCreate(code)
}

// TitledPlayers fetches the players holding title. The returned sequence
// resolves each player as it is consumed and can only be ranged over once.
func (c *Cache) TitledPlayers(ctx context.Context, title domain.Title) (iter.Seq[*Player], error) {
	if !title.Valid() {
		return nil, fmt.Errorf("unknown title %q", title)
	}

	d, err := c.fetch(ctx, endpoint("titled", string(title), ""))
	if err != nil {
		return nil, err
	}
	usernames, ok := stringList(d, "players")
	if !ok {
		return nil, &DataUnavailableError{Entity: "titled " + string(title), Field: "players"}
	}

	var consumed atomic.Bool
	return func(yield func(*Player) bool) {
		if consumed.Swap(true) {
			return
		}
		for _, username := range usernames {
			if username == "" {
				continue
			}
			if !yield(c.Player(username)) {
				return
			}
		}
	}, nil
}

type Size struct {
	Players   int `json:"players"`
	Clubs     int `json:"clubs"`
	Countries int `json:"countries"`
}

// Size reports how many entities of each kind the cache holds.
func (c *Cache) Size() Size {
	return Size{
		Players:   c.players.Len(),
		Clubs:     c.clubs.Len(),
		Countries: c.countries.Len(),
	}
}

func (c *Cache) ttlFor(g Group) time.Duration {
	if g == PlayerOnline {
		return c.onlineTTL
	}
	return c.ttl
}

func (c *Cache) fetch(ctx context.Context, endpoint string) (api.Document, error) {
	c.logger.Debug().Str("endpoint", endpoint).Msg("fetching")

	d, err := c.gateway.Fetch(ctx, endpoint)
	if err != nil {
		var fe *api.FetchError
		if !errors.As(err, &fe) {
			err = &api.FetchError{Endpoint: endpoint, Err: err}
		}
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("fetch failed")
		return nil, err
	}
	return d, nil
}

func (c *Cache) entityCreated(kind string) func(key string) {
	return func(key string) {
		c.metrics.EntityCreated(kind)
		c.logger.Debug().Str("kind", kind).Str("key", key).Msg("entity created")
	}
}

func (c *Cache) reportMissing(entity string, g Group, pl *payload) {
	if len(pl.missing) == 0 {
		return
	}
	c.logger.Warn().
		Str("entity", entity).
		Stringer("group", g).
		Strs("missing", pl.missing).
		Msg("response lacks required fields")
}

// countryRef resolves a country URL field to its entity.
func (c *Cache) countryRef(d api.Document, key string) (*Country, bool) {
	u, ok := stringField(d, key)
	if !ok {
		return nil, false
	}
	code := KeyFromURL(u)
	if code == "" {
		return nil, false
	}
	return c.Country(code), true
}

// playerRefs resolves usernames or profile URLs, skipping blank entries.
func (c *Cache) playerRefs(urls []string) []*Player {
	players := make([]*Player, 0, len(urls))
	for _, u := range urls {
		if key := KeyFromURL(u); key != "" {
			players = append(players, c.Player(key))
		}
	}
	return players
}

func (c *Cache) clubRefs(urls []string) []*Club {
	clubs := make([]*Club, 0, len(urls))
	for _, u := range urls {
		if key := KeyFromURL(u); key != "" {
			clubs = append(clubs, c.Club(key))
		}
	}
	return clubs
}
