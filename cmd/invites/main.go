// Command invites lists players of a country who qualify for a club invite
// and records them so later runs skip them. With -list it prints the
// invitations already recorded for the country instead of scanning.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"chess-explorer/internal/config"
	fxmodules "chess-explorer/internal/fx"
	"chess-explorer/internal/repository"
	"chess-explorer/internal/service"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	country := flag.String("country", "", "ISO 3166-1 alpha-2 country code; defaults to INVITE_COUNTRY")
	listOnly := flag.Bool("list", false, "print recorded invitations instead of scanning for new ones")
	flag.Parse()

	fx.New(
		fxmodules.InviteModule,
		fx.NopLogger,
		fx.Invoke(func(lc fx.Lifecycle, sd fx.Shutdowner, svc *service.InviteService, repo *repository.InviteRepository, cfg *config.Config, logger zerolog.Logger) {
			code := countryOr(*country, cfg.InviteCountry)
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					if *listOnly {
						go list(repo, sd, logger, code)
					} else {
						go run(svc, sd, logger, code)
					}
					return nil
				},
			})
		}),
	).Run()
}

func run(svc *service.InviteService, sd fx.Shutdowner, logger zerolog.Logger, country string) {
	invites, err := svc.Invite(context.Background(), country)
	if err != nil {
		logger.Error().Err(err).Str("country", country).Msg("invite scan failed")
		_ = sd.Shutdown(fx.ExitCode(1))
		return
	}

	for _, inv := range invites {
		fmt.Fprintln(os.Stdout, inv.ProfileURL)
	}
	_ = sd.Shutdown()
}

func list(repo *repository.InviteRepository, sd fx.Shutdowner, logger zerolog.Logger, country string) {
	if err := printInvitations(context.Background(), os.Stdout, repo, country); err != nil {
		logger.Error().Err(err).Str("country", country).Msg("listing invitations failed")
		_ = sd.Shutdown(fx.ExitCode(1))
		return
	}
	_ = sd.Shutdown()
}

// printInvitations writes one tab-separated line per recorded invitation:
// invite date, username and profile URL.
func printInvitations(ctx context.Context, w io.Writer, repo *repository.InviteRepository, country string) error {
	invites, err := repo.ListByCountry(ctx, country)
	if err != nil {
		return err
	}
	for _, inv := range invites {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", inv.InvitedAt.UTC().Format(time.DateOnly), inv.Username, inv.ProfileURL); err != nil {
			return err
		}
	}
	return nil
}

func countryOr(flagValue, fallback string) string {
	if flagValue != "" {
		return strings.ToUpper(flagValue)
	}
	return strings.ToUpper(fallback)
}
