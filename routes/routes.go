package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/smashpoint/tournament-api/handlers"
	"github.com/smashpoint/tournament-api/middleware"
	"github.com/smashpoint/tournament-api/models"
)

// SetupRoutes настраивает все маршруты API.
// authenticate — middleware проверки JWT, собранный в main с секретом и репозиторием.
func SetupRoutes(
	router *chi.Mux,
	authenticate func(http.Handler) http.Handler,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	tournamentHandler *handlers.TournamentHandler,
	registrationHandler *handlers.RegistrationHandler,
	matchHandler *handlers.MatchHandler,
	characterHandler *handlers.CharacterHandler,
	rankingHandler *handlers.RankingHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	organizerOrAdmin := middleware.Authorize(models.RoleOrganizer, models.RoleAdmin)
	adminOnly := middleware.Authorize(models.RoleAdmin)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Get("/confirm-email", authHandler.ConfirmEmail)
		r.Post("/forgot-password", authHandler.ForgotPassword)
		r.Post("/reset-password", authHandler.ResetPassword)
	})

	router.Route("/users", func(r chi.Router) {
		r.Get("/", userHandler.List)
		r.Get("/{userID}", userHandler.GetByID)
		r.Get("/{userID}/rankings", rankingHandler.GetUserRankings)
		r.Get("/{userID}/stats", userHandler.GetStats)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Put("/{userID}", userHandler.UpdateProfile)
			r.Post("/{userID}/avatar", userHandler.UploadAvatar)
		})
	})

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", tournamentHandler.List)
		r.Get("/{tournamentID}", tournamentHandler.GetByID)
		r.Get("/{tournamentID}/ranking", rankingHandler.GetTournamentRanking)
		r.Get("/{tournamentID}/matches", tournamentHandler.ListMatches)
		r.Get("/{tournamentID}/registrations", registrationHandler.ListByTournament)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/{tournamentID}/registrations", registrationHandler.Register)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(organizerOrAdmin)

			r.Post("/", tournamentHandler.Create)
			r.Put("/{tournamentID}", tournamentHandler.Update)
			r.Delete("/{tournamentID}", tournamentHandler.Delete)
			r.Put("/{tournamentID}/status", tournamentHandler.ChangeStatus)
			r.Post("/{tournamentID}/matches", matchHandler.Create)
			r.Post("/{tournamentID}/ranking/recalculate", rankingHandler.RecalculateTournamentRanking)
		})
	})

	router.Route("/registrations", func(r chi.Router) {
		r.Use(authenticate)
		r.Put("/{registrationID}/confirm", registrationHandler.Confirm)
		r.Put("/{registrationID}/character", registrationHandler.SetCharacter)
		r.Delete("/{registrationID}", registrationHandler.Cancel)
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", matchHandler.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(organizerOrAdmin)
			r.Put("/{matchID}/result", matchHandler.ReportResult)
			r.Put("/{matchID}/cancel", matchHandler.Cancel)
			r.Delete("/{matchID}", matchHandler.Delete)
		})
	})

	router.Route("/characters", func(r chi.Router) {
		r.Get("/", characterHandler.List)
		r.Get("/{characterID}", characterHandler.GetByID)
		r.Get("/{characterID}/usage", characterHandler.GetUsage)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(adminOnly)
			r.Post("/", characterHandler.Create)
			r.Put("/{characterID}", characterHandler.Update)
			r.Delete("/{characterID}", characterHandler.Delete)
			r.Post("/{characterID}/image", characterHandler.UploadImage)
		})
	})

	router.Route("/rankings", func(r chi.Router) {
		r.Get("/global", rankingHandler.GetGlobalRanking)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(adminOnly)
			r.Post("/global/recalculate", rankingHandler.RecalculateGlobalRanking)
		})
	})

	router.Route("/ws", func(r chi.Router) {
		r.Get("/tournaments/{tournamentID}", webSocketHandler.ServeTournament)
		r.Get("/global", webSocketHandler.ServeGlobal)
	})
}
