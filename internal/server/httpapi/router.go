package httpapi

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Router builds the API route tree.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", s.Login)
		r.Get("/ping", s.Ping)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/submissions", s.CreateSubmission)
			r.Get("/submissions/check/{formID}/{localID}", s.CheckSubmission)
		})
	})

	return r
}
