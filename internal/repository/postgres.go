package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vancomm/minesweeper/internal/mines"
)

type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

func (pg *Postgres) Close() error {
	pg.db.Close()
	return nil
}

func (pg *Postgres) CreatePlayer(
	ctx context.Context, username string, passwordHash []byte,
) (*Player, error) {
	rows, _ := pg.db.Query(ctx, `
		INSERT INTO player (
			username, password_hash
		)
		VALUES (
			@username, @password_hash
		)
		RETURNING player_id, username, password_hash, created_at;`,
		pgx.NamedArgs{
			"username":      username,
			"password_hash": passwordHash,
		},
	)
	player, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[Player])
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return nil, ErrUsernameTaken
	}
	return player, err
}

func (pg *Postgres) FetchPlayer(ctx context.Context, username string) (*Player, error) {
	rows, _ := pg.db.Query(ctx, `
		SELECT player_id, username, password_hash, created_at
		FROM player
		WHERE username = $1;`,
		username,
	)
	player, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[Player])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return player, err
}

func (pg *Postgres) CreateGameSession(ctx context.Context, session *GameSession) error {
	state, err := session.Game.Bytes()
	if err != nil {
		return err
	}
	_, err = pg.db.Exec(ctx, `
		INSERT INTO game_session (
			game_session_id, player_id, size, mine_count, state, game, started_at, ended_at
		)
		VALUES (
			@game_session_id, @player_id, @size, @mine_count, @state, @game, @started_at, @ended_at
		);`,
		pgx.NamedArgs{
			"game_session_id": session.GameSessionID,
			"player_id":       session.PlayerID,
			"size":            session.Game.Size,
			"mine_count":      session.Game.MineCount,
			"state":           string(session.Game.State),
			"game":            state,
			"started_at":      session.StartedAt,
			"ended_at":        session.EndedAt,
		},
	)
	return err
}

func (pg *Postgres) FetchGameSession(
	ctx context.Context, gameSessionID string,
) (*GameSession, error) {
	var (
		playerID  *int64
		state     []byte
		startedAt time.Time
		endedAt   *time.Time
	)
	err := pg.db.QueryRow(ctx, `
		SELECT player_id, game, started_at, ended_at
		FROM game_session
		WHERE game_session_id = $1;`,
		gameSessionID,
	).Scan(&playerID, &state, &startedAt, &endedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	game, err := mines.DecodeGame(state)
	if err != nil {
		return nil, err
	}
	return &GameSession{
		GameSessionID: gameSessionID,
		PlayerID:      playerID,
		Game:          game,
		StartedAt:     startedAt,
		EndedAt:       endedAt,
	}, nil
}

func (pg *Postgres) UpdateGameSession(ctx context.Context, session *GameSession) error {
	state, err := session.Game.Bytes()
	if err != nil {
		return err
	}
	tag, err := pg.db.Exec(ctx, `
		UPDATE game_session
		SET state = @state
			, game = @game
			, ended_at = @ended_at
		WHERE game_session_id = @game_session_id;`,
		pgx.NamedArgs{
			"game_session_id": session.GameSessionID,
			"state":           string(session.Game.State),
			"game":            state,
			"ended_at":        session.EndedAt,
		},
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (pg *Postgres) Records(
	ctx context.Context, options ...RecordsOption,
) ([]Record, error) {
	sql := `
	SELECT
		game_session_id
		, username
		, size
		, mine_count
		, (
			extract('epoch' from ended_at) - extract('epoch' from started_at)
		)::float8 * 1000 playtime_ms
	FROM game_session
		LEFT OUTER JOIN player USING (player_id)
	WHERE
		state = 'won'
		AND ended_at IS NOT NULL`

	filter := NewRecordFilter(options...)
	whereClause, args := filter.WhereClause()
	if whereClause != "" {
		sql += " AND " + whereClause
	}
	sql += " ORDER BY playtime_ms, game_session_id LIMIT @limit;"
	args["limit"] = filter.Limit()

	rows, err := pg.db.Query(ctx, sql, pgx.NamedArgs(args))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[Record])
}
