package constants

import "time"

const (
	DefaultCacheTTL = 7200 * time.Second
	OnlineCacheTTL  = 300 * time.Second
)

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
)

const (
	DBMaxOpenConns    = 10
	DBMaxIdleConns    = 2
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
	DBBatchSize       = 100
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	// chess.com answers 429 when too many requests run in parallel
	RatingConcurrency = 4
	InviteConcurrency = 4

	InviteMinAccountAge = 30 * 24 * time.Hour
)

var RatingCategories = []string{"chess_bullet", "chess_blitz", "chess_rapid"}
