package app

import (
	"hash/maphash"
	"math/rand/v2"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/vancomm/minesweeper/internal/handlers"
	"github.com/vancomm/minesweeper/internal/middleware"
)

func createRand() *rand.Rand {
	return rand.New(rand.NewPCG(
		new(maphash.Hash).Sum64(), new(maphash.Hash).Sum64(),
	))
}

func (a *App) loadRoutes() {
	a.router.Use(
		chimiddleware.RequestID,
		chimiddleware.RealIP,
		middleware.Logging(a.log),
		chimiddleware.Recoverer,
		middleware.Cors(a.config),
		middleware.Auth(a.cookies),
	)

	auth := handlers.NewAuth(a.log, a.repo, a.cookies)
	game := handlers.NewGameHandler(a.log, a.sessions, a.ws)
	records := handlers.NewRecordsHandler(a.log, a.repo)

	a.router.Route("/v1", func(r chi.Router) {
		r.Get("/status", auth.Status)
		r.Post("/register", auth.Register)
		r.Post("/login", auth.Login)
		r.Post("/logout", auth.Logout)

		r.Post("/game", game.NewGame)
		r.Route("/game/{id}", func(r chi.Router) {
			r.Get("/", game.Fetch)
			r.Post("/reveal", game.Reveal)
			r.Post("/flag", game.Flag)
			r.Post("/forfeit", game.Forfeit)
			r.Post("/batch", game.Batch)
			r.Get("/connect", game.Connect)
		})

		r.Get("/records", records.Records)
		r.Get("/myrecords", records.MyRecords)
	})
}
