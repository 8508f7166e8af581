package domain

import (
	"fmt"
	"strings"
	"time"
)

type Title string

const (
	TitleGM  Title = "GM"
	TitleWGM Title = "WGM"
	TitleIM  Title = "IM"
	TitleWIM Title = "WIM"
	TitleFM  Title = "FM"
	TitleWFM Title = "WFM"
	TitleNM  Title = "NM"
	TitleWNM Title = "WNM"
	TitleCM  Title = "CM"
	TitleWCM Title = "WCM"
)

var Titles = []Title{TitleGM, TitleWGM, TitleIM, TitleWIM, TitleFM, TitleWFM, TitleNM, TitleWNM, TitleCM, TitleWCM}

func (t Title) Valid() bool {
	for _, known := range Titles {
		if t == known {
			return true
		}
	}
	return false
}

// ParseTitle accepts a title abbreviation in any case.
func ParseTitle(s string) (Title, error) {
	t := Title(strings.ToUpper(s))
	if !t.Valid() {
		return "", fmt.Errorf("unknown title %q", s)
	}
	return t, nil
}

type Status string

const (
	StatusClosed         Status = "closed"
	StatusClosedFairPlay Status = "closed:fair_play_violations"
	StatusBasic          Status = "basic"
	StatusPremium        Status = "premium"
	StatusMod            Status = "mod"
	StatusStaff          Status = "staff"
)

// Premium reports whether the account has paid-member privileges.
func (s Status) Premium() bool {
	return s == StatusPremium || s == StatusMod || s == StatusStaff
}

type RatingStats struct {
	Category   string
	Date       time.Time
	Rating     int
	RD         int
	BestRating int
	BestDate   time.Time // zero when the API has no best game for the category
	Wins       int
	Losses     int
	Draws      int
}

func (r RatingStats) Games() int {
	return r.Wins + r.Losses + r.Draws
}

// Invitation records a player who was sent a club invite.
type Invitation struct {
	ID         string
	Username   string
	Country    string
	ProfileURL string
	InvitedAt  time.Time
}
