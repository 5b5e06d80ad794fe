package middleware

import (
	"net/http"

	"github.com/rs/cors"

	"github.com/vancomm/minesweeper/internal/config"
)

func Cors(c *config.Config) Middleware {
	options := cors.Options{
		AllowOriginFunc: func(origin string) bool {
			return c.Development() || config.SameDomain(origin, c.Domain)
		},
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}
	return cors.New(options).Handler
}
