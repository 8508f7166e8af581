package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"chess-explorer/internal/api"
	"chess-explorer/internal/chesscom"
	"chess-explorer/internal/constants"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// MemberRatings holds the current ratings of one club member, keyed by
// category. Categories the member has no games in are absent.
type MemberRatings struct {
	Username string         `json:"username"`
	Ratings  map[string]int `json:"ratings"`
}

type CategorySummary struct {
	Players int     `json:"players"`
	Min     int     `json:"min"`
	Max     int     `json:"max"`
	Mean    float64 `json:"mean"`
}

type ClubRatings struct {
	Club       string                     `json:"club"`
	Name       string                     `json:"name"`
	Members    []MemberRatings            `json:"members"`
	Categories map[string]CategorySummary `json:"categories"`
	Skipped    int                        `json:"skipped"`
}

type RatingService struct {
	cache  *chesscom.Cache
	logger zerolog.Logger
}

func NewRatingService(cache *chesscom.Cache, logger zerolog.Logger) *RatingService {
	return &RatingService{cache: cache, logger: logger}
}

// ClubRatings collects the bullet, blitz and rapid ratings of every member of
// the club. Members whose stats cannot be fetched are counted as skipped.
func (s *RatingService) ClubRatings(ctx context.Context, slug string) (*ClubRatings, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	club := s.cache.Club(slug)
	name, err := club.Name(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get club %s: %w", slug, err)
	}
	members, err := club.Members(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get members of %s: %w", slug, err)
	}

	s.logger.Info().Str("club", slug).Int("members", len(members)).Msg("collecting member ratings")

	results := make([]*MemberRatings, len(members))
	var mu sync.Mutex
	skipped := 0

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(constants.RatingConcurrency)
	for i, member := range members {
		g.Go(func() error {
			ratings, err := s.memberRatings(gCtx, member)
			var fe *api.FetchError
			switch {
			case errors.As(err, &fe), errors.Is(err, chesscom.ErrDataUnavailable):
				s.logger.Warn().Err(err).Str("player", member.Key()).Msg("skipping member")
				mu.Lock()
				skipped++
				mu.Unlock()
				return nil
			case err != nil:
				return err
			}
			results[i] = ratings
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to collect ratings: %w", err)
	}

	out := &ClubRatings{
		Club:       slug,
		Name:       name,
		Members:    make([]MemberRatings, 0, len(members)),
		Categories: make(map[string]CategorySummary),
		Skipped:    skipped,
	}
	for _, r := range results {
		if r != nil {
			out.Members = append(out.Members, *r)
		}
	}
	for _, category := range constants.RatingCategories {
		if summary, ok := summarize(out.Members, category); ok {
			out.Categories[category] = summary
		}
	}

	s.logger.Info().
		Str("club", slug).
		Int("rated", len(out.Members)).
		Int("skipped", skipped).
		Msg("member ratings collected")
	return out, nil
}

func (s *RatingService) memberRatings(ctx context.Context, p *chesscom.Player) (*MemberRatings, error) {
	r := &MemberRatings{Username: p.Key(), Ratings: make(map[string]int)}
	for _, category := range constants.RatingCategories {
		rating, ok, err := p.Rating(ctx, category)
		if err != nil {
			return nil, err
		}
		if ok {
			r.Ratings[category] = rating
		}
	}
	return r, nil
}

func summarize(members []MemberRatings, category string) (CategorySummary, bool) {
	var s CategorySummary
	total := 0
	for _, m := range members {
		rating, ok := m.Ratings[category]
		if !ok {
			continue
		}
		if s.Players == 0 || rating < s.Min {
			s.Min = rating
		}
		if rating > s.Max {
			s.Max = rating
		}
		total += rating
		s.Players++
	}
	if s.Players == 0 {
		return CategorySummary{}, false
	}
	s.Mean = float64(total) / float64(s.Players)
	return s, true
}
