package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dropforge/case-service/internal/config"
	"github.com/dropforge/case-service/internal/domain"
	"github.com/dropforge/case-service/internal/handler"
	"github.com/dropforge/case-service/internal/oauth"
	"github.com/dropforge/case-service/internal/repository"
	"github.com/dropforge/case-service/internal/service"
	"github.com/dropforge/case-service/internal/utils"
	"github.com/dropforge/case-service/pkg/observability"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	infra       Infrastructure
	config      *config.Config
	router      *gin.Engine
	server      *http.Server
	authService service.AuthService
	limiters    *service.RateLimiters
}

func NewApp(infra Infrastructure, cfg *config.Config) *App {
	repos := repository.NewRepositories(infra.Postgres(), infra.Redis())

	jwtManager := utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry.Duration)
	csrfManager := utils.NewCsrfManager(cfg.JWT.CsrfSecret())

	discord := oauth.NewDiscordClient(
		cfg.Discord.ClientID,
		cfg.Discord.ClientSecret,
		cfg.Discord.RedirectURI,
		cfg.Discord.Timeout.Duration,
	)

	audit := service.NewAudit(infra.AuditLogger())
	limiters := service.NewRateLimiters(cfg.RateLimit)
	healthChecker := NewHealthChecker(infra)

	authService := service.NewAuthService(
		repos.User,
		repos.Session,
		repos.OAuthState,
		discord,
		jwtManager,
		csrfManager,
		audit,
		cfg.Session.RefreshSecret,
		cfg.Session.RefreshTokenExpiry.Duration,
		cfg.Session.OAuthAttemptExpiry.Duration,
		cfg.Session.MaxActiveSessions,
	)
	caseService := service.NewCaseService(repos.User, repos.Case, repos.CaseOpen, audit)
	adminService := service.NewAdminService(repos.User, repos.Session, repos.Case, repos.CaseOpen, audit)

	cookies := handler.NewCookieWriter(
		cfg.CookieSecureEnabled(),
		cfg.JWT.AccessTokenExpiry.Duration,
		cfg.Session.RefreshTokenExpiry.Duration,
	)

	authHandler := handler.NewAuthHandler(authService, cookies)
	caseHandler := handler.NewCaseHandler(caseService)
	adminHandler := handler.NewAdminHandler(adminService)

	corsOrigins := append([]string{cfg.Server.BaseURL}, cfg.Security.AllowedOrigins...)

	router := gin.Default()
	router.Use(otelgin.Middleware("case-service"))
	router.Use(handler.LoggerMiddleware(infra.Logger()))
	router.Use(handler.SecurityHeadersMiddleware())
	router.Use(handler.CORSMiddleware(
		corsOrigins,
		[]string{"GET", "POST", "OPTIONS"},
		[]string{"Content-Type", "X-CSRF-Token"},
	))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
	})

	setupRoutes(
		router, cfg,
		authHandler, caseHandler, adminHandler,
		authService, repos.User, csrfManager, limiters,
		healthChecker, infra.MetricsHandler(),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:       infra,
		config:      cfg,
		router:      router,
		server:      srv,
		authService: authService,
		limiters:    limiters,
	}
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	authHandler *handler.AuthHandler,
	caseHandler *handler.CaseHandler,
	adminHandler *handler.AdminHandler,
	authService service.AuthService,
	users handler.UserLoader,
	csrfManager *utils.CsrfManager,
	limiters *service.RateLimiters,
	healthChecker *HealthChecker,
	metricsHandler http.Handler,
) {
	router.GET("/metrics", observability.PrometheusHandler(metricsHandler))
	router.GET("/health", healthChecker.Handler)

	csrf := handler.CsrfMiddleware(csrfManager, cfg.OriginAllowList())

	auth := router.Group("/auth")
	{
		auth.GET("/discord",
			handler.RateLimitMiddleware(limiters.Login, handler.IPBasedKey),
			authHandler.Login,
		)
		auth.GET("/discord/callback",
			handler.RateLimitMiddleware(limiters.Login, handler.IPBasedKey),
			authHandler.Callback,
		)
		auth.POST("/refresh",
			handler.RateLimitMiddleware(limiters.Refresh, handler.IPBasedKey),
			csrf,
			authHandler.Refresh,
		)
		auth.POST("/logout",
			handler.AuthMiddleware(authService),
			csrf,
			authHandler.Logout,
		)
		// The CSRF pair must be obtainable without an access token, or a
		// client with an expired access token could never reach /auth/refresh
		auth.GET("/csrf",
			handler.RateLimitMiddleware(limiters.PerUser, handler.IPBasedKey),
			authHandler.Csrf,
		)
	}

	api := router.Group("/api")
	api.Use(
		handler.AuthMiddleware(authService),
		handler.RateLimitMiddleware(limiters.PerUser, handler.UserBasedKey),
	)
	{
		api.GET("/cases", caseHandler.ListCases)
		api.GET("/me", caseHandler.GetProfile)
		api.POST("/cases/open",
			handler.RateLimitMiddleware(limiters.Write, handler.UserBasedKey),
			csrf,
			caseHandler.OpenCase,
		)

		admin := api.Group("/admin")
		admin.Use(handler.RequireLevel(users, domain.LevelLeadership))
		{
			admin.GET("/users", adminHandler.ListUsers)
			admin.GET("/users/:id", adminHandler.GetUser)
			admin.GET("/cases", adminHandler.ListCases)

			write := admin.Group("")
			write.Use(
				handler.RateLimitMiddleware(limiters.Write, handler.UserBasedKey),
				csrf,
			)
			{
				write.POST("/users/:id/balance", adminHandler.AdjustBalance)
				write.POST("/users/:id/level", adminHandler.SetLevel)
				write.POST("/users/:id/decision", adminHandler.Decide)
				write.POST("/users/:id/block", adminHandler.SetBlocked)
				write.POST("/users/:id/confirm-prize", adminHandler.ConfirmPrize)
				write.POST("/cases", adminHandler.UpsertCase)
				write.POST("/cases/delete", adminHandler.DeleteCase)
			}
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go a.sweepLoop(sweepCtx)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		a.infra.Logger().Error("Shutdown error", zap.Error(err))
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

// sweepLoop periodically reclaims expired session rows and idle rate
// limiter keys
func (a *App) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(a.config.Session.SweepInterval.Duration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := a.authService.SweepExpiredSessions(ctx)
			if err != nil {
				a.infra.Logger().Error("Session sweep failed", zap.Error(err))
			} else if deleted > 0 {
				a.infra.Logger().Info("Expired sessions swept", zap.Int64("deleted", deleted))
			}

			a.limiters.Sweep()
		}
	}
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs := make(chan error, 2)

	go func() {
		errs <- a.server.Shutdown(ctx)
	}()

	go func() {
		errs <- a.infra.Shutdown(ctx)
	}()

	err := errors.Join(<-errs, <-errs)
	if err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
