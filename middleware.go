package inkpost

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/eringen/inkpost/model"
)

const (
	tokenCookie = "token"
	identityKey = "identity"
)

func (a *App) setupMiddleware() {
	e := a.Echo

	e.IPExtractor = echo.ExtractIPFromXFFHeader(
		echo.TrustLoopback(true),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(true),
	)

	e.HTTPErrorHandler = a.httpErrorHandler

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

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     a.Config.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType},
		AllowCredentials: true,
	}))

	e.Use(a.rejectCrossOrigin)

	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))

	// multipart framing overhead on top of the file itself
	limit := (a.Config.MaxUploadBytes + 1<<20) >> 10
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dK", limit)))

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().URL.Path, "/uploads/")
		},
	}))
}

// rejectCrossOrigin refuses state-changing requests sent from a page outside
// CORSOrigins or the API's own origin. The token cookie may be SameSite=None
// and a multipart POST is never preflighted. Requests without Origin or
// Referer pass.
func (a *App) rejectCrossOrigin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		switch req.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return next(c)
		}
		origin := req.Header.Get(echo.HeaderOrigin)
		if origin == "" {
			origin = refererOrigin(req.Referer())
		}
		if origin == "" || a.originAllowed(origin) {
			return next(c)
		}
		c.Logger().Warnf("rejected %s %s from origin %s", req.Method, req.URL.Path, origin)
		return echo.NewHTTPError(http.StatusForbidden, "cross-origin request rejected")
	}
}

func (a *App) originAllowed(origin string) bool {
	origin = normalizeOrigin(origin)
	if origin == normalizeOrigin(refererOrigin(a.Config.PublicURL)) {
		return true
	}
	for _, allowed := range a.Config.CORSOrigins {
		if allowed == "*" || normalizeOrigin(allowed) == origin {
			return true
		}
	}
	return false
}

// refererOrigin reduces a URL to scheme://host, or "" if it has neither.
func refererOrigin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func normalizeOrigin(o string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))
}

// requireAuth rejects requests without a valid token cookie and stores the
// caller's identity in the context.
func (a *App) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie(tokenCookie)
		if err != nil || cookie.Value == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "JWT token is missing")
		}
		id, err := a.Auth.Verify(cookie.Value)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid JWT token")
		}
		c.Set(identityKey, id)
		return next(c)
	}
}

// Identity returns the caller set by requireAuth.
func Identity(c echo.Context) (model.Identity, bool) {
	id, ok := c.Get(identityKey).(model.Identity)
	return id, ok
}

func (a *App) setTokenCookie(c echo.Context, token string) {
	c.SetCookie(newTokenCookie(token, a.Config.CookieSecure, 0))
}

// newTokenCookie builds the session cookie. A cross-site frontend needs
// SameSite=None, which browsers only accept together with Secure.
func newTokenCookie(value string, secure bool, maxAge int) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	return &http.Cookie{
		Name:     tokenCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	}
}
