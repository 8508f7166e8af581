package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chess-explorer/internal/api"
	"chess-explorer/internal/chesscom"
	"chess-explorer/internal/constants"
	"chess-explorer/internal/domain"
	"chess-explorer/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type InviteService struct {
	cache  *chesscom.Cache
	repo   *repository.InviteRepository
	logger zerolog.Logger
	now    func() time.Time
}

func NewInviteService(cache *chesscom.Cache, repo *repository.InviteRepository, logger zerolog.Logger) *InviteService {
	return &InviteService{cache: cache, repo: repo, logger: logger, now: time.Now}
}

// Invite scans the players of country, stores every potential invite that was
// not invited before and returns the new invitations in roster order.
func (s *InviteService) Invite(ctx context.Context, country string) ([]domain.Invitation, error) {
	invited, err := s.repo.Invited(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load invited players: %w", err)
	}

	players, err := s.cache.Country(country).Players(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get players of %s: %w", country, err)
	}
	s.logger.Info().
		Str("country", country).
		Int("players", len(players)).
		Int("already_invited", len(invited)).
		Msg("scanning players")

	candidates := make([]*domain.Invitation, len(players))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(constants.InviteConcurrency)
	for i, p := range players {
		if invited[strings.ToLower(p.Key())] {
			s.logger.Debug().Str("player", p.Key()).Msg("already invited")
			continue
		}
		g.Go(func() error {
			inv, err := s.candidate(gCtx, p, country)
			var fe *api.FetchError
			switch {
			case errors.As(err, &fe), errors.Is(err, chesscom.ErrDataUnavailable):
				s.logger.Warn().Err(err).Str("player", p.Key()).Msg("skipping player")
				return nil
			case err != nil:
				return err
			}
			candidates[i] = inv
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to check players: %w", err)
	}

	var invites []domain.Invitation
	for _, c := range candidates {
		if c != nil {
			invites = append(invites, *c)
		}
	}

	if _, err := s.repo.AddBatch(ctx, invites); err != nil {
		return nil, fmt.Errorf("failed to store invitations: %w", err)
	}

	s.logger.Info().Str("country", country).Int("invites", len(invites)).Msg("invite scan completed")
	return invites, nil
}

// IsPotentialInvite reports whether the player's account is older than 30
// days, shows at least a first and last name, and has an avatar or a premium
// membership.
func (s *InviteService) IsPotentialInvite(ctx context.Context, p *chesscom.Player) (bool, error) {
	joined, err := p.Joined(ctx)
	if err != nil {
		return false, err
	}
	if s.now().Sub(joined) < constants.InviteMinAccountAge {
		s.logger.Debug().Str("player", p.Key()).Time("joined", joined).Msg("account is too young")
		return false, nil
	}

	name, err := p.Name(ctx)
	if err != nil {
		return false, err
	}
	if name == nil || len(strings.Fields(*name)) < 2 {
		s.logger.Debug().Str("player", p.Key()).Msg("no full name")
		return false, nil
	}

	avatar, err := p.Avatar(ctx)
	if err != nil {
		return false, err
	}
	status, err := p.Status(ctx)
	if err != nil {
		return false, err
	}
	if avatar == nil && !status.Premium() {
		s.logger.Debug().Str("player", p.Key()).Msg("no avatar and not premium")
		return false, nil
	}

	s.logger.Debug().Str("player", p.Key()).Msg("potential invite")
	return true, nil
}

// candidate returns nil when the player is not a potential invite.
func (s *InviteService) candidate(ctx context.Context, p *chesscom.Player, country string) (*domain.Invitation, error) {
	ok, err := s.IsPotentialInvite(ctx, p)
	if err != nil || !ok {
		return nil, err
	}

	username, err := p.Username(ctx)
	if err != nil {
		return nil, err
	}
	url, err := p.URL(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.Invitation{
		Username:   username,
		Country:    strings.ToUpper(country),
		ProfileURL: url,
		InvitedAt:  s.now(),
	}, nil
}
