package handlers

import (
	"errors"
	"net/url"

	"github.com/gorilla/schema"

	"github.com/vancomm/minesweeper/internal/mines"
	"github.com/vancomm/minesweeper/internal/sessions"
)

var decoder = func() *schema.Decoder {
	dec := schema.NewDecoder()
	dec.IgnoreUnknownKeys(true)
	return dec
}()

type NewGameDTO struct {
	Size      int `schema:"size,required"`
	MineCount int `schema:"mine_count,required"`
}

func ParseNewGameDTO(src url.Values) (NewGameDTO, error) {
	var dto NewGameDTO
	err := decoder.Decode(&dto, src)
	return dto, err
}

type CellDTO struct {
	Cell *int `schema:"cell"`
	X    *int `schema:"x"`
	Y    *int `schema:"y"`
}

var ErrNoCell = errors.New("either cell or both x and y are required")

// ParseCellCommand builds a command for action from ?cell= or ?x=&y=.
func ParseCellCommand(src url.Values, action sessions.Action) (sessions.Command, error) {
	var dto CellDTO
	if err := decoder.Decode(&dto, src); err != nil {
		return sessions.Command{}, err
	}
	switch {
	case dto.Cell != nil:
		return sessions.Command{Action: action, Cell: mines.CellID(*dto.Cell)}, nil
	case dto.X != nil && dto.Y != nil:
		return sessions.Command{Action: action, X: *dto.X, Y: *dto.Y, ByPosition: true}, nil
	}
	return sessions.Command{}, ErrNoCell
}

type RecordsDTO struct {
	Size      *int `schema:"size"`
	MineCount *int `schema:"mine_count"`
}

var ErrBadRecordsParams = errors.New("size and mine_count must be given together")

func ParseRecordsDTO(src url.Values) (RecordsDTO, error) {
	var dto RecordsDTO
	if err := decoder.Decode(&dto, src); err != nil {
		return dto, err
	}
	if (dto.Size == nil) != (dto.MineCount == nil) {
		return dto, ErrBadRecordsParams
	}
	return dto, nil
}

// CellView hides everything but the flag on cells the player has not
// revealed yet.
type CellView struct {
	ID                int   `json:"id"`
	Flagged           bool  `json:"flagged"`
	Revealed          bool  `json:"revealed,omitempty"`
	Mined             *bool `json:"mined,omitempty"`
	AdjacentMineCount *int  `json:"adjacent_mine_count,omitempty"`
}

func NewCellView(c mines.Cell) CellView {
	view := CellView{ID: int(c.ID), Flagged: c.Flagged}
	if c.Revealed {
		mined, count := c.Mined, c.AdjacentMineCount
		view.Revealed = true
		view.Mined = &mined
		view.AdjacentMineCount = &count
	}
	return view
}

type GameSessionDTO struct {
	GameSessionID string      `json:"game_session_id"`
	State         mines.State `json:"state"`
	Size          int         `json:"size"`
	MineCount     int         `json:"mine_count"`
	FlagCount     int         `json:"flag_count"`
	Cells         []CellView  `json:"cells"`
	StartedAt     int64       `json:"started_at"`
	EndedAt       *int64      `json:"ended_at,omitempty"`
}

func NewGameSessionDTO(s *sessions.GameSession) *GameSessionDTO {
	cells := make([]CellView, len(s.Game.Cells))
	for i, c := range s.Game.Cells {
		cells[i] = NewCellView(c)
	}
	var endedAt *int64
	if s.EndedAt != nil {
		e := s.EndedAt.UnixMilli()
		endedAt = &e
	}
	return &GameSessionDTO{
		GameSessionID: s.GameSessionID,
		State:         s.Game.State,
		Size:          s.Game.Size,
		MineCount:     s.Game.MineCount,
		FlagCount:     s.Game.FlagCount(),
		Cells:         cells,
		StartedAt:     s.StartedAt.UnixMilli(),
		EndedAt:       endedAt,
	}
}
