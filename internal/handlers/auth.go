package handlers

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/vancomm/minesweeper/internal/config"
	"github.com/vancomm/minesweeper/internal/middleware"
	"github.com/vancomm/minesweeper/internal/repository"
)

const maxPasswordBytes = 72

type Auth struct {
	log     logrus.FieldLogger
	repo    repository.Repository
	cookies *config.Cookies
	cost    int
}

func NewAuth(
	log logrus.FieldLogger,
	repo repository.Repository,
	cookies *config.Cookies,
) *Auth {
	return &Auth{
		log:     log,
		repo:    repo,
		cookies: cookies,
		cost:    bcrypt.DefaultCost,
	}
}

type PlayerInfo struct {
	PlayerID int64  `json:"player_id"`
	Username string `json:"username"`
}

type Status struct {
	LoggedIn bool        `json:"logged_in"`
	Player   *PlayerInfo `json:"player,omitempty"`
}

var (
	ErrBadAuthBody        = errors.New("request body must contain url-encoded username and password")
	ErrPasswordTooLong    = errors.New("password too long")
	ErrUsernameTaken      = errors.New("username taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNotLoggedIn        = errors.New("not logged in")
)

func (a Auth) Status(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.PlayerClaims(r.Context())
	if !ok {
		a.cookies.Clear(w)
		sendJSONOrLog(w, a.log, http.StatusOK, Status{LoggedIn: false})
		return
	}
	if err := a.cookies.Refresh(w, claims.PlayerID, claims.Username); err != nil {
		a.log.WithError(err).Error("unable to refresh cookies")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	sendJSONOrLog(w, a.log, http.StatusOK, Status{
		LoggedIn: true,
		Player:   &PlayerInfo{claims.PlayerID, claims.Username},
	})
}

func (a Auth) credentials(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	if err := r.ParseForm(); err != nil {
		sendJSONOrLog(w, a.log, http.StatusBadRequest, wrapError(ErrBadAuthBody))
		return "", nil, false
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		sendJSONOrLog(w, a.log, http.StatusBadRequest, wrapError(ErrBadAuthBody))
		return "", nil, false
	}
	if len(password) > maxPasswordBytes {
		sendJSONOrLog(w, a.log, http.StatusBadRequest, wrapError(ErrPasswordTooLong))
		return "", nil, false
	}
	return username, []byte(password), true
}

func (a Auth) login(w http.ResponseWriter, status int, player *repository.Player) {
	if err := a.cookies.Refresh(w, player.PlayerID, player.Username); err != nil {
		a.log.WithError(err).Error("unable to set auth cookies")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	sendJSONOrLog(w, a.log, status, Status{
		LoggedIn: true,
		Player:   &PlayerInfo{player.PlayerID, player.Username},
	})
}

func (a Auth) Register(w http.ResponseWriter, r *http.Request) {
	username, password, ok := a.credentials(w, r)
	if !ok {
		return
	}

	hash, err := bcrypt.GenerateFromPassword(password, a.cost)
	if err != nil {
		a.log.WithError(err).Error("unable to hash password")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	player, err := a.repo.CreatePlayer(r.Context(), username, hash)
	if errors.Is(err, repository.ErrUsernameTaken) {
		sendJSONOrLog(w, a.log, http.StatusConflict, wrapError(ErrUsernameTaken))
		return
	}
	if err != nil {
		a.log.WithError(err).Error("unable to insert player")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	a.log.WithField("username", username).Info("player registered")
	a.login(w, http.StatusCreated, player)
}

func (a Auth) Login(w http.ResponseWriter, r *http.Request) {
	username, password, ok := a.credentials(w, r)
	if !ok {
		return
	}

	player, err := a.repo.FetchPlayer(r.Context(), username)
	if errors.Is(err, repository.ErrNotFound) {
		sendJSONOrLog(w, a.log, http.StatusUnauthorized, wrapError(ErrInvalidCredentials))
		return
	}
	if err != nil {
		a.log.WithError(err).Error("unable to fetch player")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if err := bcrypt.CompareHashAndPassword(player.PasswordHash, password); err != nil {
		sendJSONOrLog(w, a.log, http.StatusUnauthorized, wrapError(ErrInvalidCredentials))
		return
	}

	a.login(w, http.StatusOK, player)
}

func (a Auth) Logout(w http.ResponseWriter, r *http.Request) {
	a.cookies.Clear(w)
	sendJSONOrLog(w, a.log, http.StatusOK, Status{LoggedIn: false})
}
