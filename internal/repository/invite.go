package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"chess-explorer/internal/constants"
	"chess-explorer/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type InviteRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewInviteRepository(db *sql.DB, logger zerolog.Logger) *InviteRepository {
	return &InviteRepository{db: db, logger: logger}
}

// Invited returns the lower-cased usernames of every player invited so far.
func (r *InviteRepository) Invited(ctx context.Context) (map[string]bool, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `SELECT username FROM invitations`)
	if err != nil {
		return nil, fmt.Errorf("failed to query invitations: %w", err)
	}
	defer rows.Close()

	invited := make(map[string]bool)
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invited[strings.ToLower(username)] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read invitations: %w", err)
	}

	r.logger.Debug().Int("count", len(invited)).Msg("loaded invited players")
	return invited, nil
}

// AddBatch stores invitations, ignoring usernames that were already invited.
// It returns the number of rows inserted.
func (r *InviteRepository) AddBatch(ctx context.Context, invites []domain.Invitation) (int, error) {
	if len(invites) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO invitations (id, username, country, profile_url, invited_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(username) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for i := 0; i < len(invites); i += constants.DBBatchSize {
		end := min(i+constants.DBBatchSize, len(invites))

		for _, invite := range invites[i:end] {
			id := invite.ID
			if id == "" {
				id, err = gonanoid.New()
				if err != nil {
					return 0, fmt.Errorf("failed to generate nanoid: %w", err)
				}
			}
			invitedAt := invite.InvitedAt
			if invitedAt.IsZero() {
				invitedAt = time.Now()
			}

			res, err := stmt.ExecContext(ctx, id, strings.ToLower(invite.Username), strings.ToUpper(invite.Country), invite.ProfileURL, invitedAt.UTC())
			if err != nil {
				return 0, fmt.Errorf("failed to insert invitation for %s: %w", invite.Username, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				inserted += int(n)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit invitations: %w", err)
	}

	r.logger.Info().Int("requested", len(invites)).Int("inserted", inserted).Msg("invitations stored")
	return inserted, nil
}

// ListByCountry returns the invitations sent for country, oldest first.
func (r *InviteRepository) ListByCountry(ctx context.Context, country string) ([]domain.Invitation, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, username, country, profile_url, invited_at
		FROM invitations
		WHERE country = ?
		ORDER BY invited_at, username`, strings.ToUpper(country))
	if err != nil {
		return nil, fmt.Errorf("failed to query invitations: %w", err)
	}
	defer rows.Close()

	var result []domain.Invitation
	for rows.Next() {
		var inv domain.Invitation
		if err := rows.Scan(&inv.ID, &inv.Username, &inv.Country, &inv.ProfileURL, &inv.InvitedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		result = append(result, inv)
	}
	return result, rows.Err()
}
