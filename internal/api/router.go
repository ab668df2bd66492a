package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/bandhub/bandhub/internal/admin"
	"github.com/bandhub/bandhub/internal/api/handler"
	"github.com/bandhub/bandhub/internal/api/middleware"
	"github.com/bandhub/bandhub/internal/auth"
	"github.com/bandhub/bandhub/internal/band"
	"github.com/bandhub/bandhub/internal/collectible"
	"github.com/bandhub/bandhub/internal/course"
	"github.com/bandhub/bandhub/internal/matchmaking"
	"github.com/bandhub/bandhub/internal/metrics"
	"github.com/bandhub/bandhub/internal/support"
	"github.com/bandhub/bandhub/internal/vault"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	DBPinger    handler.Pinger
	CachePinger handler.Pinger
	Version     string
	OpenAPISpec []byte

	AuthService   *auth.Service
	UserRepo      auth.UserRepository
	SessionCookie handler.CookieConfig
	AuthRateLimit float64
	AuthRateBurst int

	BandRepo       band.Repository
	ProfileRepo    matchmaking.ProfileRepository
	InvitationRepo matchmaking.InvitationRepository
	MessageRepo    matchmaking.MessageRepository

	CollectibleService *collectible.Service
	CollectibleRepo    collectible.Repository
	CourseService      *course.Service
	CourseRepo         course.Repository
	SupportService     *support.Service
	VaultService       *vault.Service
	StatsRepo          admin.StatsRepository
}

// NewRouter creates and configures a Chi router with all middleware and routes.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(metrics.Instrument)
	r.Use(chimiddleware.Logger)

	healthHandler := handler.NewHealthHandler(deps.DBPinger, deps.CachePinger, deps.Version)
	r.Get("/health", healthHandler.ServeHTTP)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	if len(deps.OpenAPISpec) > 0 {
		openapiHandler := handler.NewOpenAPIHandler(deps.OpenAPISpec)
		r.Get("/openapi.json", openapiHandler.ServeHTTP)
	}

	authHandler := handler.NewAuthHandler(deps.AuthService, deps.UserRepo, deps.SessionCookie)
	bandHandler := handler.NewBandHandler(deps.BandRepo)
	profileHandler := handler.NewProfileHandler(deps.ProfileRepo)
	invitationHandler := handler.NewInvitationHandler(deps.InvitationRepo, deps.ProfileRepo, deps.BandRepo)
	messageHandler := handler.NewMessageHandler(deps.MessageRepo)
	collectibleHandler := handler.NewCollectibleHandler(deps.CollectibleService, deps.CollectibleRepo, deps.BandRepo)
	courseHandler := handler.NewCourseHandler(deps.CourseService, deps.CourseRepo)
	supportHandler := handler.NewSupportHandler(deps.SupportService)
	vaultHandler := handler.NewVaultHandler(deps.VaultService, deps.UserRepo)
	adminHandler := handler.NewAdminHandler(deps.StatsRepo, deps.VaultService, deps.UserRepo)

	authenticate := middleware.Auth(deps.AuthService, deps.SessionCookie.Name)
	limiter := middleware.NewRateLimiter(deps.AuthRateLimit, deps.AuthRateBurst)

	r.Get("/epk/{slug}", bandHandler.EPK)

	r.Route("/auth", func(r chi.Router) {
		r.With(limiter.Handler).Post("/register", authHandler.Register)
		r.With(limiter.Handler).Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.With(authenticate).Get("/me", authHandler.Me)
		r.With(authenticate).Patch("/me", authHandler.UpdateMe)
	})

	r.Group(func(r chi.Router) {
		r.Use(authenticate)

		r.Route("/bands", func(r chi.Router) {
			r.With(middleware.RequireRole(auth.RoleArtist, auth.RoleAdmin)).Post("/", bandHandler.Create)
			r.Get("/", bandHandler.List)
			r.Get("/{id}", bandHandler.GetByID)
			r.Patch("/{id}", bandHandler.Update)
			r.Delete("/{id}", bandHandler.Delete)
			r.Post("/{id}/members", bandHandler.AddMember)
			r.Delete("/{id}/members/{memberId}", bandHandler.RemoveMember)
			r.Get("/{id}/analytics", bandHandler.Analytics)
			r.Post("/{id}/invitations", invitationHandler.Create)
			r.Get("/{id}/invitations", invitationHandler.ListForBand)
		})

		r.Route("/profiles", func(r chi.Router) {
			r.Post("/", profileHandler.Create)
			r.Get("/me", profileHandler.Mine)
			r.Patch("/me", profileHandler.UpdateMine)
		})

		r.Route("/musicians", func(r chi.Router) {
			r.Get("/", profileHandler.Search)
			r.Get("/{id}", profileHandler.GetByID)
		})

		r.Route("/invitations", func(r chi.Router) {
			r.Get("/", invitationHandler.ListMine)
			r.Post("/{id}/accept", invitationHandler.Accept)
			r.Post("/{id}/decline", invitationHandler.Decline)
		})

		r.Route("/messages", func(r chi.Router) {
			r.Post("/", messageHandler.Send)
			r.Get("/", messageHandler.Conversation)
		})
		r.Get("/conversations", messageHandler.Conversations)

		r.Route("/collectibles", func(r chi.Router) {
			r.Post("/generate", collectibleHandler.Generate)
			r.Post("/", collectibleHandler.Create)
			r.Get("/", collectibleHandler.List)
			r.Get("/{id}", collectibleHandler.GetByID)
			r.Delete("/{id}", collectibleHandler.Delete)
		})

		r.Route("/courses", func(r chi.Router) {
			r.Post("/generate", courseHandler.Generate)
			r.Post("/", courseHandler.Create)
			r.Get("/", courseHandler.List)
			r.Get("/published", courseHandler.ListPublished)
			r.Get("/{id}", courseHandler.GetByID)
			r.Patch("/{id}", courseHandler.Update)
			r.Delete("/{id}", courseHandler.Delete)
		})

		r.Route("/support/sessions", func(r chi.Router) {
			r.Post("/", supportHandler.Open)
			r.Get("/", supportHandler.List)
			r.Get("/{id}", supportHandler.Get)
			r.Post("/{id}/messages", supportHandler.Post)
			r.Post("/{id}/escalate", supportHandler.Escalate)
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", vaultHandler.Wallet)
			r.Post("/withdrawals", vaultHandler.RequestWithdrawal)
			r.Get("/withdrawals", vaultHandler.ListMyWithdrawals)
		})

		r.Route("/vaults", func(r chi.Router) {
			r.Post("/", vaultHandler.Create)
			r.Get("/", vaultHandler.List)
			r.Get("/{id}", vaultHandler.GetByID)
			r.Post("/{id}/deposits", vaultHandler.Deposit)
			r.Post("/{id}/stakes", vaultHandler.Stake)
			r.Post("/{id}/unstake", vaultHandler.Unstake)
			r.Get("/{id}/stakes", vaultHandler.Stakes)
			r.Get("/{id}/transactions", vaultHandler.Transactions)
			r.Get("/{id}/distributions", vaultHandler.Distributions)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(auth.RoleAdmin))

			r.Get("/stats", adminHandler.Stats)
			r.Get("/users", adminHandler.ListUsers)
			r.Post("/wallets/{userId}/credits", vaultHandler.Credit)
			r.Post("/vaults/{id}/distributions", vaultHandler.Distribute)
			r.Get("/withdrawals", vaultHandler.ListWithdrawals)
			r.Post("/withdrawals/{id}/process", vaultHandler.Process)
			r.Post("/withdrawals/{id}/complete", vaultHandler.Complete)
			r.Post("/withdrawals/{id}/reject", vaultHandler.Reject)
			r.Get("/support/escalated", supportHandler.Escalated)
			r.Get("/support/sessions/{id}", supportHandler.Get)
			r.Post("/support/sessions/{id}/messages", supportHandler.Reply)
			r.Post("/support/sessions/{id}/resolve", supportHandler.Resolve)
		})
	})

	return r
}
