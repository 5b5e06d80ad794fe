package repository

import (
	"context"
	"errors"
	"time"

	"github.com/vancomm/minesweeper/internal/mines"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrUsernameTaken = errors.New("username taken")
)

type Player struct {
	PlayerID     int64     `db:"player_id"`
	Username     string    `db:"username"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

type GameSession struct {
	GameSessionID string
	PlayerID      *int64
	Game          mines.Game
	StartedAt     time.Time
	EndedAt       *time.Time
}

// Repository persists players and game sessions. Game snapshots are stored
// gob-encoded next to the columns that records are queried by.
type Repository interface {
	CreatePlayer(ctx context.Context, username string, passwordHash []byte) (*Player, error)
	FetchPlayer(ctx context.Context, username string) (*Player, error)

	CreateGameSession(ctx context.Context, session *GameSession) error
	FetchGameSession(ctx context.Context, gameSessionID string) (*GameSession, error)
	UpdateGameSession(ctx context.Context, session *GameSession) error

	Records(ctx context.Context, options ...RecordsOption) ([]Record, error)

	Close() error
}
