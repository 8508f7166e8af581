package chesscom

import (
	"context"
	"slices"
	"time"

	"chess-explorer/internal/api"
	"chess-explorer/internal/domain"
)

// clubActivity holds the timestamps chess.com reported for one membership.
// A zero time means the field was absent.
type clubActivity struct {
	joined       time.Time
	lastActivity time.Time
}

type Player struct {
	key    string
	cache  *Cache
	loader *loader[Player]

	url               *Cell[string]
	username          *Cell[string]
	canonicalUsername *Cell[string]
	id                *Cell[int64]
	title             *Cell[*domain.Title]
	status            *Cell[domain.Status]
	name              *Cell[*string]
	avatar            *Cell[*string]
	location          *Cell[*string]
	country           *Cell[*Country]
	joined            *Cell[time.Time]
	lastOnline        *Cell[time.Time]
	followers         *Cell[int]
	isStreamer        *Cell[bool]
	twitchURL         *Cell[*string]

	clubs    *Cell[[]*Club]
	activity *Cell[map[string]clubActivity]

	stats *Cell[map[string]domain.RatingStats]

	online *Cell[bool]
}

var playerGroups = map[Group]func(*Player, context.Context) error{
	PlayerProfile: (*Player).fetchProfile,
	PlayerClubs:   (*Player).fetchClubs,
	PlayerStats:   (*Player).fetchStats,
	PlayerOnline:  (*Player).fetchOnline,
}

func newPlayer(c *Cache, key string) *Player {
	p := &Player{key: key, cache: c}
	l := newLoader(c, p, "player "+key, playerGroups)
	p.loader = l

	p.url = newCell[string](l, PlayerProfile, "url")
	p.username = newCell[string](l, PlayerProfile, "username")
	p.canonicalUsername = newCell[string](l, PlayerProfile, "canonical username")
	p.id = newCell[int64](l, PlayerProfile, "player_id")
	p.title = newCell[*domain.Title](l, PlayerProfile, "title")
	p.status = newCell[domain.Status](l, PlayerProfile, "status")
	p.name = newCell[*string](l, PlayerProfile, "name")
	p.avatar = newCell[*string](l, PlayerProfile, "avatar")
	p.location = newCell[*string](l, PlayerProfile, "location")
	p.country = newCell[*Country](l, PlayerProfile, "country")
	p.joined = newCell[time.Time](l, PlayerProfile, "joined")
	p.lastOnline = newCell[time.Time](l, PlayerProfile, "last_online")
	p.followers = newCell[int](l, PlayerProfile, "followers")
	p.isStreamer = newCell[bool](l, PlayerProfile, "is_streamer")
	p.twitchURL = newCell[*string](l, PlayerProfile, "twitch_url")

	p.clubs = newCell[[]*Club](l, PlayerClubs, "clubs")
	p.activity = newCell[map[string]clubActivity](l, PlayerClubs, "clubs")

	p.stats = newCell[map[string]domain.RatingStats](l, PlayerStats, "stats")

	p.online = newCell[bool](l, PlayerOnline, "online")
	return p
}

// Key is the username the player was looked up with, in its original casing.
func (p *Player) Key() string { return p.key }

// URL of the player's profile page.
func (p *Player) URL(ctx context.Context) (string, error) { return p.url.Get(ctx) }

// Username as reported by the profile, which is lower case.
func (p *Player) Username(ctx context.Context) (string, error) { return p.username.Get(ctx) }

// CanonicalUsername is the username with its capitalization preserved.
func (p *Player) CanonicalUsername(ctx context.Context) (string, error) {
	return p.canonicalUsername.Get(ctx)
}

// ID is the non-changing chess.com user id.
func (p *Player) ID(ctx context.Context) (int64, error) { return p.id.Get(ctx) }

// Title is nil for untitled players.
func (p *Player) Title(ctx context.Context) (*domain.Title, error) { return p.title.Get(ctx) }

func (p *Player) Status(ctx context.Context) (domain.Status, error) { return p.status.Get(ctx) }

func (p *Player) Name(ctx context.Context) (*string, error) { return p.name.Get(ctx) }

// Avatar is the URL of a 200x200 image, if the player set one.
func (p *Player) Avatar(ctx context.Context) (*string, error) { return p.avatar.Get(ctx) }

func (p *Player) Location(ctx context.Context) (*string, error) { return p.location.Get(ctx) }

func (p *Player) Country(ctx context.Context) (*Country, error) { return p.country.Get(ctx) }

// Joined is the time of registration on chess.com.
func (p *Player) Joined(ctx context.Context) (time.Time, error) { return p.joined.Get(ctx) }

// LastOnline is the time of the most recent login.
func (p *Player) LastOnline(ctx context.Context) (time.Time, error) { return p.lastOnline.Get(ctx) }

// Followers is the number of players tracking this player's activity.
func (p *Player) Followers(ctx context.Context) (int, error) { return p.followers.Get(ctx) }

func (p *Player) IsStreamer(ctx context.Context) (bool, error) { return p.isStreamer.Get(ctx) }

func (p *Player) TwitchURL(ctx context.Context) (*string, error) { return p.twitchURL.Get(ctx) }

// Clubs the player is a member of.
func (p *Player) Clubs(ctx context.Context) ([]*Club, error) { return p.clubs.Get(ctx) }

// IsMemberOf reports whether the club with the given slug is among the
// player's clubs.
func (p *Player) IsMemberOf(ctx context.Context, slug string) (bool, error) {
	_, ok, err := p.clubActivity(ctx, slug)
	return ok, err
}

// JoinedClub returns when the player joined the club with the given slug.
// ok is false when the player is not a member or chess.com did not report
// the date.
func (p *Player) JoinedClub(ctx context.Context, slug string) (time.Time, bool, error) {
	a, ok, err := p.clubActivity(ctx, slug)
	if err != nil || !ok || a.joined.IsZero() {
		return time.Time{}, false, err
	}
	return a.joined, true, nil
}

// LastActiveInClub returns the player's most recent activity in the club with
// the given slug. ok is false when the player is not a member or chess.com
// did not report the date.
func (p *Player) LastActiveInClub(ctx context.Context, slug string) (time.Time, bool, error) {
	a, ok, err := p.clubActivity(ctx, slug)
	if err != nil || !ok || a.lastActivity.IsZero() {
		return time.Time{}, false, err
	}
	return a.lastActivity, true, nil
}

func (p *Player) clubActivity(ctx context.Context, slug string) (clubActivity, bool, error) {
	activity, err := p.activity.Get(ctx)
	if err != nil {
		return clubActivity{}, false, err
	}
	a, ok := activity[normalizeKey(slug)]
	return a, ok, nil
}

// Rating returns the current rating in category, e.g. "chess_blitz". ok is
// false when the player has no games in that category.
func (p *Player) Rating(ctx context.Context, category string) (int, bool, error) {
	s, ok, err := p.RatingStats(ctx, category)
	return s.Rating, ok, err
}

func (p *Player) RatingStats(ctx context.Context, category string) (domain.RatingStats, bool, error) {
	stats, err := p.stats.Get(ctx)
	if err != nil {
		return domain.RatingStats{}, false, err
	}
	s, ok := stats[category]
	return s, ok, nil
}

// Categories lists the rating categories the player has games in.
func (p *Player) Categories(ctx context.Context) ([]string, error) {
	stats, err := p.stats.Get(ctx)
	if err != nil {
		return nil, err
	}
	categories := make([]string, 0, len(stats))
	for category := range stats {
		categories = append(categories, category)
	}
	slices.Sort(categories)
	return categories, nil
}

// IsOnline reports whether the player was online in the last five minutes.
func (p *Player) IsOnline(ctx context.Context) (bool, error) { return p.online.Get(ctx) }

func (p *Player) fetchProfile(ctx context.Context) error {
	d, err := p.cache.fetch(ctx, endpoint("player", p.key, ""))
	if err != nil {
		return err
	}

	pl := &payload{doc: d}
	put(pl, p.url, "url", stringField)
	put(pl, p.username, "username", stringField)
	if u, ok := stringField(d, "url"); ok && KeyFromURL(u) != "" {
		p.canonicalUsername.receive(KeyFromURL(u))
	}
	put(pl, p.id, "player_id", int64Field)
	putOptional(pl, p.title, "title", titleField)
	put(pl, p.status, "status", statusField)
	putOptional(pl, p.name, "name", stringField)
	putOptional(pl, p.avatar, "avatar", stringField)
	putOptional(pl, p.location, "location", stringField)
	put(pl, p.country, "country", p.cache.countryRef)
	put(pl, p.joined, "joined", timeField)
	put(pl, p.lastOnline, "last_online", timeField)
	put(pl, p.followers, "followers", intField)
	put(pl, p.isStreamer, "is_streamer", boolField)
	putOptional(pl, p.twitchURL, "twitch_url", stringField)

	p.cache.reportMissing(p.loader.name, PlayerProfile, pl)
	return nil
}

func (p *Player) fetchClubs(ctx context.Context) error {
	d, err := p.cache.fetch(ctx, endpoint("player", p.key, "clubs"))
	if err != nil {
		return err
	}

	entries, ok := listField(d, "clubs")
	if !ok {
		p.cache.reportMissing(p.loader.name, PlayerClubs, &payload{missing: []string{"clubs"}})
		return nil
	}

	clubs := make([]*Club, 0, len(entries))
	activity := make(map[string]clubActivity, len(entries))
	for _, entry := range entries {
		e, ok := asDocument(entry)
		if !ok {
			continue
		}
		ref, ok := stringField(e, "@id")
		if !ok {
			if ref, ok = stringField(e, "url"); !ok {
				continue
			}
		}
		slug := KeyFromURL(ref)
		if slug == "" {
			continue
		}
		clubs = append(clubs, p.cache.Club(slug))

		var a clubActivity
		a.joined, _ = timeField(e, "joined")
		a.lastActivity, _ = timeField(e, "last_activity")
		activity[normalizeKey(slug)] = a
	}

	p.activity.receive(activity)
	p.clubs.receive(clubs)
	return nil
}

func (p *Player) fetchStats(ctx context.Context) error {
	d, err := p.cache.fetch(ctx, endpoint("player", p.key, "stats"))
	if err != nil {
		return err
	}

	stats := make(map[string]domain.RatingStats, len(d))
	for category, v := range d {
		if s, ok := ratingStats(category, v); ok {
			stats[category] = s
		}
	}
	p.stats.receive(stats)
	return nil
}

// ratingStats decodes one category of the stats payload. Entries without a
// current rating, such as "fide" or "tactics", are not rating categories.
func ratingStats(category string, v any) (domain.RatingStats, bool) {
	d, ok := asDocument(v)
	if !ok {
		return domain.RatingStats{}, false
	}
	last, ok := objectField(d, "last")
	if !ok {
		return domain.RatingStats{}, false
	}
	rating, ok := intField(last, "rating")
	if !ok {
		return domain.RatingStats{}, false
	}

	s := domain.RatingStats{Category: category, Rating: rating}
	s.Date, _ = timeField(last, "date")
	s.RD, _ = intField(last, "rd")
	if best, ok := objectField(d, "best"); ok {
		s.BestRating, _ = intField(best, "rating")
		s.BestDate, _ = timeField(best, "date")
	}
	if record, ok := objectField(d, "record"); ok {
		s.Wins, _ = intField(record, "win")
		s.Losses, _ = intField(record, "loss")
		s.Draws, _ = intField(record, "draw")
	}
	return s, true
}

func (p *Player) fetchOnline(ctx context.Context) error {
	d, err := p.cache.fetch(ctx, endpoint("player", p.key, "is-online"))
	if err != nil {
		return err
	}

	pl := &payload{doc: d}
	put(pl, p.online, "online", boolField)
	p.cache.reportMissing(p.loader.name, PlayerOnline, pl)
	return nil
}

func titleField(d api.Document, key string) (domain.Title, bool) {
	s, ok := stringField(d, key)
	if !ok || s == "" {
		return "", false
	}
	return domain.Title(s), true
}

func statusField(d api.Document, key string) (domain.Status, bool) {
	s, ok := stringField(d, key)
	return domain.Status(s), ok
}
