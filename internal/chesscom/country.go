package chesscom

import (
	"context"
	"strings"
)

type Country struct {
	key    string
	cache  *Cache
	loader *loader[Country]

	name *Cell[string]
	code *Cell[string]

	players *Cell[[]*Player]
	clubs   *Cell[[]*Club]
}

var countryGroups = map[Group]func(*Country, context.Context) error{
	CountryInfo:    (*Country).fetchInfo,
	CountryPlayers: (*Country).fetchPlayers,
	CountryClubs:   (*Country).fetchClubs,
}

func newCountry(c *Cache, key string) *Country {
	country := &Country{key: key, cache: c}
	l := newLoader(c, country, "country "+key, countryGroups)
	country.loader = l

	country.name = newCell[string](l, CountryInfo, "name")
	country.code = newCell[string](l, CountryInfo, "code")
	country.players = newCell[[]*Player](l, CountryPlayers, "players")
	country.clubs = newCell[[]*Club](l, CountryClubs, "clubs")
	return country
}

// Key is the country code in the casing it was looked up with.
func (c *Country) Key() string { return c.key }

// Name is the human readable name of the country.
func (c *Country) Name(ctx context.Context) (string, error) { return c.name.Get(ctx) }

// Code is the ISO 3166-1 alpha-2 code as reported by the API.
func (c *Country) Code(ctx context.Context) (string, error) { return c.code.Get(ctx) }

// Players lists the active players registered in the country.
func (c *Country) Players(ctx context.Context) ([]*Player, error) { return c.players.Get(ctx) }

func (c *Country) Clubs(ctx context.Context) ([]*Club, error) { return c.clubs.Get(ctx) }

// the API only accepts upper case codes
func (c *Country) endpoint(suffix string) string {
	return endpoint("country", strings.ToUpper(c.key), suffix)
}

func (c *Country) fetchInfo(ctx context.Context) error {
	d, err := c.cache.fetch(ctx, c.endpoint(""))
	if err != nil {
		return err
	}

	pl := &payload{doc: d}
	put(pl, c.name, "name", stringField)
	put(pl, c.code, "code", stringField)
	c.cache.reportMissing(c.loader.name, CountryInfo, pl)
	return nil
}

func (c *Country) fetchPlayers(ctx context.Context) error {
	d, err := c.cache.fetch(ctx, c.endpoint("players"))
	if err != nil {
		return err
	}

	pl := &payload{doc: d}
	if usernames, ok := stringList(d, "players"); ok {
		c.players.receive(c.cache.playerRefs(usernames))
	} else {
		pl.missing = append(pl.missing, "players")
	}
	c.cache.reportMissing(c.loader.name, CountryPlayers, pl)
	return nil
}

func (c *Country) fetchClubs(ctx context.Context) error {
	d, err := c.cache.fetch(ctx, c.endpoint("clubs"))
	if err != nil {
		return err
	}

	pl := &payload{doc: d}
	if urls, ok := stringList(d, "clubs"); ok {
		c.clubs.receive(c.cache.clubRefs(urls))
	} else {
		pl.missing = append(pl.missing, "clubs")
	}
	c.cache.reportMissing(c.loader.name, CountryClubs, pl)
	return nil
}
