package app

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vancomm/minesweeper/internal/config"
	"github.com/vancomm/minesweeper/internal/repository"
	"github.com/vancomm/minesweeper/internal/sessions"
)

const shutdownTimeout = 30 * time.Second

type App struct {
	config   *config.Config
	log      logrus.FieldLogger
	router   chi.Router
	repo     repository.Repository
	cookies  *config.Cookies
	ws       *config.WebSocket
	sessions *sessions.Service
}

func New(
	c *config.Config,
	log logrus.FieldLogger,
	repo repository.Repository,
	jwt *config.JWT,
	rnd *rand.Rand,
) *App {
	if rnd == nil {
		rnd = createRand()
	}
	app := &App{
		config:  c,
		log:     log,
		router:  chi.NewRouter(),
		repo:    repo,
		cookies: config.NewCookies(c, jwt),
		ws:      config.NewWebSocket(c),
		sessions: sessions.NewService(
			log.WithField("component", "sessions"),
			repo,
			sessions.Limits{MaxSize: c.Game.MaxSize, MaxMineRatio: c.Game.MaxMineRatio},
			rnd,
		),
	}
	app.loadRoutes()
	return app
}

func (a *App) Handler() http.Handler {
	return a.router
}

// Run serves until ctx is done, then shuts the server down gracefully.
func (a *App) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              a.config.Addr,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.WithField("addr", a.config.Addr).Info("server listening")
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		a.log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
