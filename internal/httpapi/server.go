// Package httpapi serves the villa management REST API over gin.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/williamjonathanliem/elysian-cms/internal/session"
	"github.com/williamjonathanliem/elysian-cms/pkg/villa"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

var ErrInvalidDependencies = errors.New("invalid http api dependencies")

// Dependencies are the collaborators the handlers need. Health is optional;
// without it /healthz always answers ok.
type Dependencies struct {
	Service  *villa.Service
	Sessions *session.Manager
	Health   gin.HandlerFunc
	Logger   *zap.Logger
}

func (deps *Dependencies) validate() error {
	if deps.Service == nil {
		return fmt.Errorf("%w: service is nil", ErrInvalidDependencies)
	}
	if deps.Sessions == nil {
		return fmt.Errorf("%w: session manager is nil", ErrInvalidDependencies)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return nil
}

// Run serves the API until ctx is cancelled, then drains in-flight requests.
func Run(ctx context.Context, cfg Config, deps Dependencies) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	router, err := NewRouter(cfg, deps)
	if err != nil {
		return err
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http api listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// NewRouter wires middleware and routes. cfg must already be validated.
func NewRouter(cfg Config, deps Dependencies) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	handler := &httpHandler{
		service:  deps.Service,
		sessions: deps.Sessions,
		logger:   deps.Logger,
	}

	router := gin.New()
	router.Use(requestIDMiddleware())
	router.Use(accessLogMiddleware(deps.Logger))
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept", headerRequestID},
		ExposeHeaders:    []string{"Content-Disposition", headerRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(timeoutMiddleware(cfg.RequestTimeout))

	health := deps.Health
	if health == nil {
		health = func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
		}
	}
	router.GET("/healthz", health)

	api := router.Group("/api")
	api.Use(deps.Sessions.Middleware())

	api.POST("/login", handler.handleLogin)
	api.POST("/logout", handler.handleLogout)
	api.GET("/auth/me", handler.handleMe)

	authed := api.Group("")
	authed.Use(session.RequireSession())

	authed.GET("/dashboard", handler.handleDashboard)
	authed.GET("/overview", handler.handleOverview)
	authed.GET("/housekeeping", handler.handleHousekeeping)

	authed.GET("/villas", handler.handleListVillas)
	authed.POST("/villas", handler.handleCreateVilla)

	authed.GET("/rooms", handler.handleListRooms)
	authed.POST("/rooms", handler.handleCreateRoom)
	authed.PUT("/rooms/:id", handler.handleUpdateRoom)
	authed.DELETE("/rooms/:id", handler.handleDeleteRoom)
	authed.PUT("/rooms/:id/clean", handler.handleMarkClean)

	authed.GET("/reservations", handler.handleListReservations)
	authed.POST("/reservations", handler.handleCreateReservation)
	authed.GET("/reservations/calendar", handler.handleCalendar)
	authed.GET("/reservations/export", handler.handleExport)
	authed.GET("/reservations/:id", handler.handleGetReservation)
	authed.PUT("/reservations/:id/checkin", handler.handleCheckIn)
	authed.PUT("/reservations/:id/checkout", handler.handleCheckOut)
	authed.PUT("/reservations/:id/cancel", handler.handleCancel)

	users := api.Group("/users")
	users.Use(session.RequireRole(villa.RoleAdmin), handler.requireStoredRole(villa.RoleAdmin))
	users.GET("", handler.handleListUsers)
	users.POST("", handler.handleCreateUser)
	users.PUT("/:id", handler.handleUpdateUser)
	users.DELETE("/:id", handler.handleDeleteUser)

	return router, nil
}

type httpHandler struct {
	service  *villa.Service
	sessions *session.Manager
	logger   *zap.Logger
}
