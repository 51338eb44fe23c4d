package http

import (
	"log/slog"
	"time"

	"github.com/geocoder89/cohorthub/internal/cache"
	"github.com/geocoder89/cohorthub/internal/directory"
	"github.com/geocoder89/cohorthub/internal/domain/subgroup"
	"github.com/geocoder89/cohorthub/internal/http/handlers"
	"github.com/geocoder89/cohorthub/internal/http/middlewares"
	"github.com/geocoder89/cohorthub/internal/notifications"
	"github.com/geocoder89/cohorthub/internal/observability"
	"github.com/geocoder89/cohorthub/internal/registration"
	"github.com/geocoder89/cohorthub/internal/repo/postgres"
	"github.com/geocoder89/cohorthub/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Snapshots served to every member; mutations drop them early.
const (
	cohortsCacheTTL   = 30 * time.Second
	directoryCacheTTL = 30 * time.Second
)

type RouterDeps struct {
	Env         string
	ServiceName string
	Log         *slog.Logger
	Pool        *pgxpool.Pool
	Prom        *observability.Prom
	Gatherer    prometheus.Gatherer

	Verifier middlewares.TokenVerifier
	Sessions *session.Cache
	SignUp   registration.SignUpper

	// Notifier reaches a user's sockets on any API instance.
	Notifier notifications.Notifier
	Hub      handlers.SocketServer
	Upgrader *websocket.Upgrader

	AllowedOrigins []string
	Limiter        *middlewares.RateLimiter
	// WriteLimiter guards the endpoints that create, change or remove rows.
	WriteLimiter *middlewares.RateLimiter
}

func NewRouter(d RouterDeps) *gin.Engine {
	if d.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	if d.ServiceName != "" {
		r.Use(otelgin.Middleware(d.ServiceName))
	}
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders(d.Env))
	r.Use(middlewares.CORSMiddleware(d.AllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(middlewares.DefaultMaxBody))
	r.Use(middlewares.RequireJSON())
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}

	// wire up repositories
	healthRepo := postgres.NewHealthRepo(d.Pool, d.Prom)
	usersRepo := postgres.NewUsersRepo(d.Pool, d.Prom)
	postsRepo := postgres.NewPostsRepo(d.Pool, d.Prom)
	conversationsRepo := postgres.NewConversationsRepo(d.Pool, d.Prom)
	resourcesRepo := postgres.NewResourcesRepo(d.Pool, d.Prom)
	subgroupsRepo := postgres.NewSubgroupsRepo(d.Pool, d.Prom)
	announcementsRepo := postgres.NewAnnouncementsRepo(d.Pool, d.Prom)
	moderationRepo := postgres.NewModerationRepo(d.Pool, d.Prom)
	notificationsRepo := postgres.NewNotificationsRepo(d.Pool, d.Prom)
	searchRepo := postgres.NewSearchRepo(d.Pool, d.Prom)
	auditRepo := postgres.NewAuditRepo(d.Pool, d.Prom)
	jobsRepo := postgres.NewJobsRepo(d.Pool, d.Prom)

	resolver := session.NewResolver(d.Sessions, usersRepo)
	auth := middlewares.NewAuthMiddleware(d.Verifier, resolver)

	cohortsCache := cache.New[[]subgroup.Subgroup](cohortsCacheTTL)
	membersCache := cache.New[[]directory.Member](directoryCacheTTL)

	notifier := d.Notifier
	if notifier == nil {
		notifier = notifications.NewLogNotifier(d.Log)
	}

	// Wire up handlers
	health := handlers.NewHealthHandler(healthRepo)
	postsHandler := handlers.NewPostsHandler(postsRepo, auditRepo)
	conversationsHandler := handlers.NewConversationsHandler(conversationsRepo, usersRepo, notifier)
	resourcesHandler := handlers.NewResourcesHandler(resourcesRepo, auditRepo)
	subgroupsHandler := handlers.NewSubgroupsHandler(subgroupsRepo, cohortsCache, membersCache)
	announcementsHandler := handlers.NewAnnouncementsHandler(announcementsRepo)
	usersHandler := handlers.NewUsersHandler(usersRepo, resolver, membersCache)
	directoryHandler := handlers.NewDirectoryHandler(usersRepo, subgroupsRepo, membersCache)
	searchHandler := handlers.NewSearchHandler(searchRepo)
	registerHandler := handlers.NewRegisterHandler(registration.NewService(d.SignUp, usersRepo))
	notificationsHandler := handlers.NewNotificationsHandler(notificationsRepo)
	moderationHandler := handlers.NewModerationHandler(moderationRepo)
	adminHandler := handlers.NewAdminHandler(usersRepo, auditRepo, resolver, membersCache)
	adminJobsHandler := handlers.NewAdminJobsHandler(jobsRepo)

	// health and ops
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}
	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	api := r.Group("/api")
	if d.Limiter != nil {
		api.Use(d.Limiter.RateLimiterMiddleware(middlewares.KeyByIP))
	}

	writes := func() gin.HandlerFunc {
		if d.WriteLimiter == nil {
			return func(ctx *gin.Context) { ctx.Next() }
		}
		return d.WriteLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP)
	}

	api.GET("/health", health.API)

	// public
	api.POST("/register/validate", registerHandler.ValidateStep)
	api.POST("/register", writes(), registerHandler.Register)

	// resources are partly public; the role decides visibility
	optional := api.Group("")
	optional.Use(auth.OptionalAuth())
	{
		optional.GET("/resources", resourcesHandler.ListResources)
		optional.GET("/resources/:id", resourcesHandler.GetResource)
		optional.POST("/resources/:id/download", resourcesHandler.DownloadResource)
	}

	api.GET("/ws", auth.RequireAuthWS(), handlers.NewRealtimeHandler(d.Hub, d.Upgrader).Connect)

	member := api.Group("")
	member.Use(auth.RequireAuth())
	{
		member.GET("/posts", postsHandler.ListPosts)
		member.POST("/posts", writes(), postsHandler.CreatePost)
		member.DELETE("/posts/:id", writes(), postsHandler.DeletePost)
		member.POST("/posts/:id/like", postsHandler.LikePost)
		member.POST("/posts/:id/comments", writes(), postsHandler.CreateComment)
		member.DELETE("/posts/:id/comments/:commentId", writes(), postsHandler.DeleteComment)

		member.GET("/conversations", conversationsHandler.ListConversations)
		member.POST("/conversations", writes(), conversationsHandler.CreateConversation)
		member.GET("/conversations/:id/messages", conversationsHandler.ListMessages)
		member.POST("/conversations/:id/messages", writes(), conversationsHandler.SendMessage)
		member.PATCH("/messages/:id/read", conversationsHandler.MarkMessageRead)

		member.POST("/resources", writes(), resourcesHandler.CreateResource)
		member.PATCH("/resources/:id", writes(), resourcesHandler.UpdateResource)
		member.DELETE("/resources/:id", writes(), resourcesHandler.DeleteResource)

		member.GET("/subgroups", subgroupsHandler.ListSubgroups)
		member.POST("/subgroups", writes(), subgroupsHandler.Mutate)
		member.GET("/cohorts", subgroupsHandler.ListCohorts)

		member.GET("/announcements", announcementsHandler.ListAnnouncements)
		member.POST("/announcements/:id/view", announcementsHandler.ViewAnnouncement)

		member.GET("/users", usersHandler.GetUsers)
		member.PATCH("/users", writes(), usersHandler.UpdateSelf)
		member.GET("/users/me", usersHandler.Me)

		member.GET("/directory", directoryHandler.ListMembers)
		member.GET("/directory/map", directoryHandler.Map)
		member.GET("/directory/nearby", directoryHandler.Nearby)

		member.GET("/search", searchHandler.Search)

		member.GET("/notifications", notificationsHandler.ListNotifications)
		member.PATCH("/notifications/:id/read", notificationsHandler.MarkRead)
		member.POST("/notifications/read-all", notificationsHandler.MarkAllRead)
		member.DELETE("/notifications/:id", notificationsHandler.DeleteNotification)

		member.POST("/reports", writes(), moderationHandler.CreateReport)
	}

	admin := api.Group("")
	admin.Use(auth.RequireAuth(), middlewares.RequireAdmin(usersRepo))
	{
		admin.POST("/announcements", writes(), announcementsHandler.CreateAnnouncement)
		admin.PATCH("/announcements/:id", writes(), announcementsHandler.UpdateAnnouncement)
		admin.DELETE("/announcements/:id", writes(), announcementsHandler.DeleteAnnouncement)

		admin.GET("/admin/reports", moderationHandler.ListReports)
		admin.PATCH("/admin/reports/:id", moderationHandler.ResolveReport)
		admin.PATCH("/admin/users", adminHandler.UpdateUserStatus)
		admin.GET("/admin/audit", adminHandler.ListAudit)

		admin.GET("/admin/jobs", adminJobsHandler.List)
		admin.GET("/admin/jobs/:id", adminJobsHandler.GetByID)
		admin.POST("/admin/jobs/:id/retry", adminJobsHandler.Retry)
		admin.POST("/admin/jobs/reprocess-failed", adminJobsHandler.ReprocessFailed)
	}

	return r
}
