package chesscom

import (
	"context"
	"fmt"

	"chess-explorer/internal/constants"

	"golang.org/x/sync/singleflight"
)

// Group identifies the set of cells populated together by one API call.
type Group uint8

const (
	PlayerProfile Group = iota
	PlayerClubs
	PlayerStats
	PlayerOnline
	ClubProfile
	ClubMembers
	CountryInfo
	CountryPlayers
	CountryClubs
)

var groupNames = [...]string{
	PlayerProfile:  "player.profile",
	PlayerClubs:    "player.clubs",
	PlayerStats:    "player.stats",
	PlayerOnline:   "player.online",
	ClubProfile:    "club.profile",
	ClubMembers:    "club.members",
	CountryInfo:    "country.info",
	CountryPlayers: "country.players",
	CountryClubs:   "country.clubs",
}

func (g Group) String() string {
	if int(g) < len(groupNames) {
		return groupNames[g]
	}
	return fmt.Sprintf("group(%d)", g)
}

// loader runs the refresh registered for a group on behalf of one entity.
// Concurrent refreshes of the same group share a single call.
type loader[E any] struct {
	entity  *E
	name    string
	groups  map[Group]func(*E, context.Context) error
	flights singleflight.Group
	cache   *Cache
}

func newLoader[E any](c *Cache, entity *E, name string, groups map[Group]func(*E, context.Context) error) *loader[E] {
	return &loader[E]{
		entity: entity,
		name:   name,
		groups: groups,
		cache:  c,
	}
}

func (l *loader[E]) describe() string {
	return l.name
}

// refresh waits for the group's refresh. A caller whose ctx ends stops
// waiting; the refresh itself keeps going for the remaining waiters.
func (l *loader[E]) refresh(ctx context.Context, g Group, target freshness) error {
	fetch, ok := l.groups[g]
	if !ok {
		return fmt.Errorf("%s: no refresh registered for %s", l.name, g)
	}

	ch := l.flights.DoChan(g.String(), func() (any, error) {
		// a flight that finished just before this one may already have filled target
		if target.fresh() {
			return nil, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.ExternalAPITimeout)
		defer cancel()
		return nil, fetch(l.entity, fetchCtx)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}
