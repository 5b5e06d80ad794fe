package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/vancomm/minesweeper/internal/config"
	"github.com/vancomm/minesweeper/internal/middleware"
	"github.com/vancomm/minesweeper/internal/sessions"
)

const maxBatchBytes = 64 << 10

type GameHandler struct {
	log      logrus.FieldLogger
	sessions *sessions.Service
	ws       *config.WebSocket
}

func NewGameHandler(
	log logrus.FieldLogger,
	sessions *sessions.Service,
	ws *config.WebSocket,
) *GameHandler {
	return &GameHandler{
		log:      log,
		sessions: sessions,
		ws:       ws,
	}
}

func (g GameHandler) NewGame(w http.ResponseWriter, r *http.Request) {
	dto, err := ParseNewGameDTO(r.URL.Query())
	if err != nil {
		sendJSONOrLog(w, g.log, http.StatusBadRequest, wrapError(err))
		return
	}

	var playerID *int64
	if claims, ok := middleware.PlayerClaims(r.Context()); ok {
		playerID = &claims.PlayerID
	}

	session, err := g.sessions.Create(r.Context(), playerID, dto.Size, dto.MineCount)
	if err != nil {
		sendError(w, g.log, err)
		return
	}

	sendJSONOrLog(w, g.log, http.StatusCreated, NewGameSessionDTO(session))
}

func (g GameHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	session, err := g.sessions.Fetch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		sendError(w, g.log, err)
		return
	}
	sendJSONOrLog(w, g.log, http.StatusOK, NewGameSessionDTO(session))
}

func (g GameHandler) apply(w http.ResponseWriter, r *http.Request, cmds ...sessions.Command) {
	session, err := g.sessions.Apply(r.Context(), chi.URLParam(r, "id"), cmds...)
	if err != nil {
		sendError(w, g.log, err)
		return
	}
	sendJSONOrLog(w, g.log, http.StatusOK, NewGameSessionDTO(session))
}

func (g GameHandler) cellMove(action sessions.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cmd, err := ParseCellCommand(r.URL.Query(), action)
		if err != nil {
			sendJSONOrLog(w, g.log, http.StatusBadRequest, wrapError(err))
			return
		}
		g.apply(w, r, cmd)
	}
}

func (g GameHandler) Reveal(w http.ResponseWriter, r *http.Request) {
	g.cellMove(sessions.Reveal)(w, r)
}

func (g GameHandler) Flag(w http.ResponseWriter, r *http.Request) {
	g.cellMove(sessions.Flag)(w, r)
}

func (g GameHandler) Forfeit(w http.ResponseWriter, r *http.Request) {
	g.apply(w, r, sessions.Command{Action: sessions.Forfeit})
}

func (g GameHandler) Batch(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBatchBytes))
	if err != nil {
		sendJSONOrLog(w, g.log, http.StatusBadRequest, wrapError(err))
		return
	}
	cmds, err := sessions.ParseBatch(string(body))
	if err != nil {
		sendError(w, g.log, err)
		return
	}
	g.apply(w, r, cmds...)
}

// Connect streams the session over a websocket. Every text message is a
// batch of commands; resulting states reach this and every other
// connection through the session subscription. The subscription is taken
// before the snapshot is read, so no move falls between the two.
func (g GameHandler) Connect(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, unsub := g.sessions.Subscribe(ctx, id)
	defer unsub()

	session, err := g.sessions.Fetch(r.Context(), id)
	if err != nil {
		sendError(w, g.log, err)
		return
	}

	conn, err := g.ws.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.WithError(err).Warn("unable to upgrade connection")
		return
	}
	defer conn.Close()

	log := g.log.WithField("session", id)
	log.Debug("websocket connected")

	if err := conn.WriteJSON(NewGameSessionDTO(session)); err != nil {
		log.WithError(err).Warn("unable to write to websocket")
		return
	}

	replies := make(chan any, 1)
	go g.readCommands(ctx, cancel, conn, id, replies)

	for {
		var msg any
		select {
		case <-ctx.Done():
			return
		case s, ok := <-updates:
			if !ok {
				log.Warn("websocket subscriber fell behind")
				return
			}
			msg = NewGameSessionDTO(s)
		case msg = <-replies:
		}
		if err := conn.WriteJSON(msg); err != nil {
			log.WithError(err).Warn("unable to write to websocket")
			return
		}
	}
}

func (g GameHandler) readCommands(
	ctx context.Context,
	cancel context.CancelFunc,
	conn *websocket.Conn,
	id string,
	replies chan<- any,
) {
	defer cancel()
	reply := func(v any) bool {
		select {
		case replies <- v:
			return true
		case <-ctx.Done():
			return false
		}
	}
	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
				!errors.Is(err, context.Canceled) {
				g.log.WithError(err).Debug("websocket read ended")
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		cmds, err := sessions.ParseBatch(string(message))
		if err != nil {
			if !reply(wrapError(err)) {
				return
			}
			continue
		}
		session, err := g.sessions.Apply(ctx, id, cmds...)
		if err != nil {
			if statusOf(err) == http.StatusInternalServerError {
				g.log.WithError(err).Error("unable to apply commands")
			}
			if !reply(wrapError(err)) {
				return
			}
			continue
		}
		if len(cmds) == 0 && !reply(NewGameSessionDTO(session)) {
			return
		}
	}
}
