package chesscom

import (
	"context"
	"slices"
	"time"

	"chess-explorer/internal/api"
)

type Club struct {
	key    string
	cache  *Cache
	loader *loader[Club]

	name         *Cell[string]
	id           *Cell[int64]
	icon         *Cell[*string]
	country      *Cell[*Country]
	created      *Cell[time.Time]
	lastActivity *Cell[time.Time]
	public       *Cell[bool]
	joinRequest  *Cell[string]
	admins       *Cell[[]*Player]
	description  *Cell[*string]

	members *Cell[[]*Player]
}

var clubGroups = map[Group]func(*Club, context.Context) error{
	ClubProfile: (*Club).fetchProfile,
	ClubMembers: (*Club).fetchMembers,
}

func newClub(c *Cache, key string) *Club {
	club := &Club{key: key, cache: c}
	l := newLoader(c, club, "club "+key, clubGroups)
	club.loader = l

	club.name = newCell[string](l, ClubProfile, "name")
	club.id = newCell[int64](l, ClubProfile, "club_id")
	club.icon = newCell[*string](l, ClubProfile, "icon")
	club.country = newCell[*Country](l, ClubProfile, "country")
	club.created = newCell[time.Time](l, ClubProfile, "created")
	club.lastActivity = newCell[time.Time](l, ClubProfile, "last_activity")
	club.public = newCell[bool](l, ClubProfile, "visibility")
	club.joinRequest = newCell[string](l, ClubProfile, "join_request")
	club.admins = newCell[[]*Player](l, ClubProfile, "admin")
	club.description = newCell[*string](l, ClubProfile, "description")

	club.members = newCell[[]*Player](l, ClubMembers, "members")
	return club
}

// Key is the club's URL slug in the casing it was looked up with.
func (c *Club) Key() string { return c.key }

func (c *Club) Name(ctx context.Context) (string, error) { return c.name.Get(ctx) }

// ID is the non-changing chess.com club id.
func (c *Club) ID(ctx context.Context) (int64, error) { return c.id.Get(ctx) }

// Icon is the URL of a 200x200 image, if the club has one.
func (c *Club) Icon(ctx context.Context) (*string, error) { return c.icon.Get(ctx) }

func (c *Club) Country(ctx context.Context) (*Country, error) { return c.country.Get(ctx) }

func (c *Club) Created(ctx context.Context) (time.Time, error) { return c.created.Get(ctx) }

// LastActivity is the time of the most recent post, match or similar event.
func (c *Club) LastActivity(ctx context.Context) (time.Time, error) { return c.lastActivity.Get(ctx) }

// IsPublic reports the club's visibility.
func (c *Club) IsPublic(ctx context.Context) (bool, error) { return c.public.Get(ctx) }

// JoinRequest is the URL where a request to join the club is submitted.
func (c *Club) JoinRequest(ctx context.Context) (string, error) { return c.joinRequest.Get(ctx) }

func (c *Club) Admins(ctx context.Context) ([]*Player, error) { return c.admins.Get(ctx) }

func (c *Club) Description(ctx context.Context) (*string, error) { return c.description.Get(ctx) }

// Members lists every member regardless of how recently they were active.
func (c *Club) Members(ctx context.Context) ([]*Player, error) { return c.members.Get(ctx) }

func (c *Club) fetchProfile(ctx context.Context) error {
	d, err := c.cache.fetch(ctx, endpoint("club", c.key, ""))
	if err != nil {
		return err
	}

	pl := &payload{doc: d}
	put(pl, c.name, "name", stringField)
	put(pl, c.id, "club_id", int64Field)
	putOptional(pl, c.icon, "icon", stringField)
	put(pl, c.country, "country", c.cache.countryRef)
	put(pl, c.created, "created", timeField)
	put(pl, c.lastActivity, "last_activity", timeField)
	put(pl, c.public, "visibility", visibilityField)
	put(pl, c.joinRequest, "join_request", stringField)
	if admins, ok := stringList(d, "admin"); ok {
		c.admins.receive(c.cache.playerRefs(admins))
	} else {
		pl.missing = append(pl.missing, "admin")
	}
	putOptional(pl, c.description, "description", stringField)

	c.cache.reportMissing(c.loader.name, ClubProfile, pl)
	return nil
}

// fetchMembers flattens the weekly, monthly and all_time activity buckets.
func (c *Club) fetchMembers(ctx context.Context) error {
	d, err := c.cache.fetch(ctx, endpoint("club", c.key, "members"))
	if err != nil {
		return err
	}

	buckets := make([]string, 0, len(d))
	for bucket := range d {
		buckets = append(buckets, bucket)
	}
	slices.Sort(buckets)

	seen := make(map[string]bool)
	var members []*Player
	for _, bucket := range buckets {
		entries, ok := listField(d, bucket)
		if !ok {
			continue
		}
		for _, entry := range entries {
			e, ok := asDocument(entry)
			if !ok {
				continue
			}
			username, ok := stringField(e, "username")
			if !ok || username == "" || seen[normalizeKey(username)] {
				continue
			}
			seen[normalizeKey(username)] = true
			members = append(members, c.cache.Player(username))
		}
	}

	c.members.receive(members)
	return nil
}

// visibilityField accepts both the documented "public"/"private" string and a
// plain boolean.
func visibilityField(d api.Document, key string) (bool, bool) {
	switch v := d[key].(type) {
	case string:
		return v == "public", v == "public" || v == "private"
	case bool:
		return v, true
	default:
		return false, false
	}
}
