// Package web is the public presentation site. It renders the post list
// and post pages from data fetched over the inkpost API.
package web

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/eringen/inkpost/client"
	"github.com/eringen/inkpost/model"
)

// Config holds the presentation server settings.
type Config struct {
	Addr     string // listen address, default ":3000"
	APIURL   string // inkpost API base URL
	SiteURL  string // public URL of this site, used in sitemap and canonical links
	SiteName string

	// ImageOrigins are extra origins post images may load from. The origin
	// of APIURL is always included, since the local uploader serves files
	// from the API.
	ImageOrigins []string
}

// PostSource is where the site reads posts from. *client.Client satisfies it.
type PostSource interface {
	ListPosts(ctx context.Context) ([]model.Post, error)
	GetPost(ctx context.Context, id string) (model.Post, error)
}

// Server renders the public site.
type Server struct {
	Echo *echo.Echo

	cfg   Config
	posts PostSource
}

// New builds a Server. A nil source means a client for cfg.APIURL.
func New(cfg Config, posts PostSource) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":3000"
	}
	if cfg.SiteName == "" {
		cfg.SiteName = "Blog"
	}
	if cfg.SiteURL == "" {
		cfg.SiteURL = "http://localhost" + cfg.Addr
	}
	if posts == nil {
		posts = client.New(cfg.APIURL)
	}

	s := &Server{
		Echo:  echo.New(),
		cfg:   cfg,
		posts: posts,
	}
	s.Echo.HideBanner = true
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	e := s.Echo
	e.HTTPErrorHandler = s.errorHandler

	e.Pre(middleware.RemoveTrailingSlash())

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			c.Logger().Infof("%s %s -> %d (%s)", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: s.contentSecurityPolicy(),
	}))
	e.Use(middleware.Gzip())
}

func (s *Server) contentSecurityPolicy() string {
	img := []string{"'self'", "https:", "data:"}
	seen := map[string]bool{}
	for _, raw := range append([]string{s.cfg.APIURL}, s.cfg.ImageOrigins...) {
		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || u.Scheme == "" || u.Host == "" {
			continue
		}
		origin := u.Scheme + "://" + u.Host
		if !seen[origin] {
			seen[origin] = true
			img = append(img, origin)
		}
	}
	return "default-src 'self'; img-src " + strings.Join(img, " ") + "; style-src 'self' 'unsafe-inline'"
}

func (s *Server) setupRoutes() {
	s.Echo.GET("/", s.handleHome)
	s.Echo.GET("/post/:id", s.handlePost)
	s.Echo.GET("/sitemap.xml", s.handleSitemap)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		errc <- s.Echo.Start(s.cfg.Addr)
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
	return s.Echo.Shutdown(shutdownCtx)
}

func (s *Server) handleHome(c echo.Context) error {
	posts, err := s.posts.ListPosts(c.Request().Context())
	if err != nil {
		return err
	}
	meta := PageMeta{
		Description: "Latest posts on " + s.cfg.SiteName,
		URL:         s.siteURL("/"),
		JSONLD:      s.websiteJSONLD(),
	}
	return s.Render(c, meta, Index(posts))
}

func (s *Server) handlePost(c echo.Context) error {
	id := c.Param("id")
	post, err := s.posts.GetPost(c.Request().Context(), id)
	if errors.Is(err, client.ErrNotFound) {
		return echo.ErrNotFound
	}
	if err != nil {
		return err
	}
	meta := PageMeta{
		Title:       post.Title,
		Description: post.Summary,
		URL:         s.siteURL("/post/" + url.PathEscape(post.ID)),
		JSONLD:      s.blogPostingJSONLD(post),
	}
	return s.Render(c, meta, PostPage(post))
}

func (s *Server) siteURL(path string) string {
	return strings.TrimRight(s.cfg.SiteURL, "/") + path
}

func (s *Server) handleSitemap(c echo.Context) error {
	posts, err := s.posts.ListPosts(c.Request().Context())
	if err != nil {
		return err
	}
	return s.renderSitemap(c, posts)
}

func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
	}
	if code >= http.StatusInternalServerError {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	}

	body := Message("Something went wrong", "Please try again in a moment.")
	if code == http.StatusNotFound {
		body = Message("Not found", "The page you are looking for does not exist.")
	}
	if rerr := s.RenderStatus(c, code, PageMeta{Title: http.StatusText(code)}, body); rerr != nil {
		c.Logger().Error(rerr)
	}
}
