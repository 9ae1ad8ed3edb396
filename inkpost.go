// Package inkpost is a small blogging backend built with Go and Echo.
// It provides account registration, cookie-carried session tokens, post
// CRUD and image upload to object storage behind a JSON API.
//
// The presentation site lives in the web package and talks to this API
// through the client package.
package inkpost

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	glog "github.com/labstack/gommon/log"

	"github.com/eringen/inkpost/auth"
	"github.com/eringen/inkpost/objectstore"
	"github.com/eringen/inkpost/store"
)

// App is the central inkpost application. It wires together the store,
// the auth service, the uploader, handlers and middleware.
type App struct {
	Config   Config
	Echo     *echo.Echo
	Store    store.Store
	Uploader objectstore.Uploader
	Auth     *auth.Service

	loginLimiter *LoginLimiter
	ownsStore    bool
}

// New creates a new App with the given configuration.
func New(cfg Config, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Setup opens the store and uploader (unless supplied as options) and
// registers middleware and routes. Start calls it; tests call it directly.
func (a *App) Setup(ctx context.Context) error {
	if a.Config.Secret == "" {
		return fmt.Errorf("inkpost: Secret is required")
	}

	if a.Store == nil {
		s, err := OpenStore(ctx, a.Config)
		if err != nil {
			return fmt.Errorf("inkpost: init store: %w", err)
		}
		a.Store = s
		a.ownsStore = true
	}

	if a.Uploader == nil {
		u, err := OpenUploader(ctx, a.Config)
		if err != nil {
			return fmt.Errorf("inkpost: init uploader: %w", err)
		}
		a.Uploader = u
	}

	a.Auth = auth.NewService(a.Store, a.Config.Secret, a.Config.BcryptCost)
	a.loginLimiter = NewLoginLimiter(5, time.Minute)

	a.Echo.HideBanner = true
	a.Echo.Logger.SetLevel(parseLogLevel(a.Config.LogLevel))

	a.setupMiddleware()
	a.setupRoutes()
	return nil
}

// Start sets the app up and serves until ctx is cancelled, then shuts the
// server down gracefully.
func (a *App) Start(ctx context.Context) error {
	if err := a.Setup(ctx); err != nil {
		return err
	}

	errc := make(chan error, 1)
	go func() {
		errc <- a.Echo.Start(a.Config.Addr)
	}()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return a.Echo.Shutdown(shutdownCtx)
}

func (a *App) setupRoutes() {
	e := a.Echo

	if a.Config.Storage == "local" {
		e.Static("/uploads", a.Config.UploadDir)
	}
	e.GET("/healthz", a.handleHealth)
	e.GET("/feed.xml", a.handleFeed)

	// Accounts
	e.POST("/register", a.handleRegister)
	e.POST("/login", a.handleLogin)
	e.GET("/profile", a.handleProfile, a.requireAuth)
	e.POST("/logout", handleLogout(a.Config.CookieSecure))

	// Posts
	e.GET("/post", a.handleListPosts)
	e.GET("/post/:id", a.handleGetPost)
	e.POST("/post", a.handleCreatePost, a.requireAuth)
	e.PUT("/post", a.handleUpdatePost, a.requireAuth)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.loginLimiter != nil {
		a.loginLimiter.Stop()
	}
	if a.Store != nil && a.ownsStore {
		return a.Store.Close()
	}
	return nil
}

func parseLogLevel(level string) glog.Lvl {
	switch strings.ToLower(level) {
	case "debug":
		return glog.DEBUG
	case "warn":
		return glog.WARN
	case "error":
		return glog.ERROR
	case "off":
		return glog.OFF
	default:
		return glog.INFO
	}
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
