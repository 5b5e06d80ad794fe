package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/vancomm/minesweeper/internal/mines"
)

// SQLite is the single-file backend used in development and tests. Times
// are stored as unix milliseconds.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func (s *SQLite) CreatePlayer(
	ctx context.Context, username string, passwordHash []byte,
) (*Player, error) {
	createdAt := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO player (username, password_hash, created_at)
		VALUES (?, ?, ?);`,
		username, passwordHash, toMillis(createdAt),
	)
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) &&
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, err
	}
	playerID, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Player{
		PlayerID:     playerID,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    fromMillis(toMillis(createdAt)),
	}, nil
}

func (s *SQLite) FetchPlayer(ctx context.Context, username string) (*Player, error) {
	var (
		player    Player
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT player_id, username, password_hash, created_at
		FROM player
		WHERE username = ?;`,
		username,
	).Scan(&player.PlayerID, &player.Username, &player.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	player.CreatedAt = fromMillis(createdAt)
	return &player, nil
}

func (s *SQLite) CreateGameSession(ctx context.Context, session *GameSession) error {
	state, err := session.Game.Bytes()
	if err != nil {
		return err
	}
	var endedAt *int64
	if session.EndedAt != nil {
		e := toMillis(*session.EndedAt)
		endedAt = &e
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO game_session (
			game_session_id, player_id, size, mine_count, state, game, started_at, ended_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?);`,
		session.GameSessionID,
		session.PlayerID,
		session.Game.Size,
		session.Game.MineCount,
		string(session.Game.State),
		state,
		toMillis(session.StartedAt),
		endedAt,
	)
	return err
}

func (s *SQLite) FetchGameSession(
	ctx context.Context, gameSessionID string,
) (*GameSession, error) {
	var (
		playerID  sql.NullInt64
		state     []byte
		startedAt int64
		endedAt   sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT player_id, game, started_at, ended_at
		FROM game_session
		WHERE game_session_id = ?;`,
		gameSessionID,
	).Scan(&playerID, &state, &startedAt, &endedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	game, err := mines.DecodeGame(state)
	if err != nil {
		return nil, err
	}
	session := &GameSession{
		GameSessionID: gameSessionID,
		Game:          game,
		StartedAt:     fromMillis(startedAt),
	}
	if playerID.Valid {
		session.PlayerID = &playerID.Int64
	}
	if endedAt.Valid {
		e := fromMillis(endedAt.Int64)
		session.EndedAt = &e
	}
	return session, nil
}

func (s *SQLite) UpdateGameSession(ctx context.Context, session *GameSession) error {
	state, err := session.Game.Bytes()
	if err != nil {
		return err
	}
	var endedAt *int64
	if session.EndedAt != nil {
		e := toMillis(*session.EndedAt)
		endedAt = &e
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE game_session
		SET state = ?
			, game = ?
			, ended_at = ?
		WHERE game_session_id = ?;`,
		string(session.Game.State), state, endedAt, session.GameSessionID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) Records(
	ctx context.Context, options ...RecordsOption,
) ([]Record, error) {
	query := `
	SELECT
		game_session_id
		, username
		, size
		, mine_count
		, CAST(ended_at - started_at AS REAL) playtime_ms
	FROM game_session
		LEFT OUTER JOIN player USING (player_id)
	WHERE
		state = 'won'
		AND ended_at IS NOT NULL`

	filter := NewRecordFilter(options...)
	whereClause, named := filter.WhereClause()
	if whereClause != "" {
		query += " AND " + whereClause
	}
	query += " ORDER BY playtime_ms, game_session_id LIMIT @limit;"

	args := make([]any, 0, len(named)+1)
	for name, value := range named {
		args = append(args, sql.Named(name, value))
	}
	args = append(args, sql.Named("limit", filter.Limit()))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var (
			rec      Record
			username sql.NullString
		)
		if err := rows.Scan(
			&rec.GameSessionID, &username, &rec.Size, &rec.MineCount, &rec.PlaytimeMs,
		); err != nil {
			return nil, err
		}
		if username.Valid {
			rec.Username = &username.String
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
