package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new router with all routes configured
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(CORSMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Route("/auth", func(r chi.Router) {
			r.Get("/status", h.AuthStatus)
			r.Post("/verify", h.AuthVerify)
			r.Post("/set", h.AuthSet)
		})

		// Routes used by the original single-page client.
		r.Route("/behaviors", func(r chi.Router) {
			r.Get("/", h.LatestWorkshop)
			r.Get("/all", h.ListWorkshops)
			r.Post("/create", h.CreateWorkshop)
			r.Post("/save/{id}", h.SaveWorkshop)
			r.Get("/{id}", h.GetWorkshop)
			r.Delete("/{id}", h.DeleteWorkshop)

			r.Post("/generate", h.Generate)
			r.Post("/validate", h.Validate)
			r.Post("/coach/next", h.CoachNext)
			r.Post("/coach/next/stream", h.CoachNextStream)
			r.Post("/coach/final", h.CoachFinal)
			r.Post("/sop", h.SOP)
		})

		r.Route("/workshops", func(r chi.Router) {
			r.Get("/", h.ListWorkshops)
			r.Post("/", h.CreateWorkshop)
			r.Get("/latest", h.LatestWorkshop)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetWorkshop)
				r.Put("/", h.SaveWorkshop)
				r.Delete("/", h.DeleteWorkshop)
				r.Put("/vision", h.SetVision)
				r.Post("/clear", h.ClearWorkshop)
				r.Post("/sop", h.GenerateWorkshopSOP)

				r.Post("/behaviors", h.AddBehavior)
				r.Post("/behaviors/generate", h.GenerateBehaviors)
				r.Route("/behaviors/{behaviorID}", func(r chi.Router) {
					r.Delete("/", h.DeleteBehavior)
					r.Put("/position", h.MoveBehavior)
					r.Put("/text", h.EditBehaviorText)

					r.Route("/evaluation", func(r chi.Router) {
						r.Get("/", h.EvaluationView)
						r.Post("/check", h.EvaluationCheck)
						r.Post("/start", h.EvaluationStart)
						r.Post("/reply", h.EvaluationReply)
						r.Post("/accept", h.EvaluationAccept)
						r.Post("/confirm", h.EvaluationConfirm)
						r.Post("/regenerate", h.EvaluationRegenerate)
					})
				})
			})
		})
	})

	return r
}
