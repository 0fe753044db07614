package routes

import (
	"net/http"

	"github.com/Dosada05/chess-tournament/handlers"
	"github.com/Dosada05/chess-tournament/middleware"
	"github.com/Dosada05/chess-tournament/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	JWTSecret          string
	CORSAllowedOrigins []string
}

func SetupRoutes(
	router chi.Router,
	opts Options,
	authHandler *handlers.AuthHandler,
	tournamentHandler *handlers.TournamentHandler,
	matchHandler *handlers.MatchHandler,
	playerHandler *handlers.PlayerHandler,
	systemHandler *handlers.SystemHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(opts.JWTSecret)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	router.Get("/healthz", systemHandler.HealthHandler)
	router.Get("/swagger/doc.json", systemHandler.OpenAPIHandler)
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	router.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandler.Login)
		r.Post("/player-login", authHandler.PlayerLogin)
	})

	router.Route("/tournaments", func(r chi.Router) {
		// Публичные маршруты для просмотра турниров
		r.Get("/", tournamentHandler.ListHandler)
		r.Get("/{tournamentID}", tournamentHandler.GetByIDHandler)
		r.Get("/{tournamentID}/bracket", tournamentHandler.BracketHandler)

		r.Group(func(r chi.Router) {
			r.Use(authenticate, adminOnly)

			r.Post("/", tournamentHandler.CreateHandler)
			r.Put("/{tournamentID}", tournamentHandler.UpdateHandler)
			r.Delete("/{tournamentID}", tournamentHandler.DeleteHandler)
			r.Get("/{tournamentID}/matches", tournamentHandler.ListMatchesHandler)

			r.Get("/{tournamentID}/players", tournamentHandler.ListParticipantsHandler)
			r.Post("/{tournamentID}/players", tournamentHandler.EnrollHandler)
			r.Delete("/{tournamentID}/players/{playerID}", tournamentHandler.RemovePlayerHandler)

			r.Post("/{tournamentID}/groups", tournamentHandler.PartitionGroupsHandler)
			r.Post("/{tournamentID}/matches/group", tournamentHandler.GenerateGroupMatchesHandler)
			r.Post("/{tournamentID}/standings/recompute", tournamentHandler.RecomputeStandingsHandler)
			r.Post("/{tournamentID}/knockout/qualifiers", tournamentHandler.SelectQualifiersHandler)
			r.Post("/{tournamentID}/knockout/bracket", tournamentHandler.GenerateBracketHandler)
			r.Post("/{tournamentID}/knockout/recover", tournamentHandler.RecoverAdvancementsHandler)
			r.Post("/{tournamentID}/complete", tournamentHandler.CompleteHandler)
		})
	})

	router.Route("/players", func(r chi.Router) {
		r.Use(authenticate, adminOnly)
		r.Get("/", playerHandler.ListHandler)
		r.Post("/", playerHandler.CreateHandler)
		r.Get("/{playerID}", playerHandler.GetByIDHandler)
		r.Put("/{playerID}", playerHandler.UpdateHandler)
		r.Delete("/{playerID}", playerHandler.DeleteHandler)
	})

	router.Route("/matches/{matchID}", func(r chi.Router) {
		r.Use(authenticate, adminOnly)
		r.Get("/", matchHandler.GetHandler)
		r.Post("/start", matchHandler.StartHandler)
		r.Post("/cancel", matchHandler.CancelHandler)
		r.Post("/result", matchHandler.SubmitResultHandler)
		r.Put("/result", matchHandler.CorrectResultHandler)
		r.Post("/advance", matchHandler.AdvanceHandler)
	})

	router.Group(func(r chi.Router) {
		r.Use(authenticate, middleware.RequireRole(models.RolePlayer, models.RoleAdmin))
		r.Get("/me/matches", matchHandler.MyMatchesHandler)
		r.Get("/me/stats", matchHandler.MyStatsHandler)
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "the requested resource could not be found"}` + "\n"))
	})
}
