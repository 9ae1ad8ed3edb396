package inkpost

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type credentials struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

func (a *App) handleRegister(c echo.Context) error {
	if !a.loginLimiter.Check(c.RealIP()) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "Too many attempts. Try again later.")
	}
	var req credentials
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	u, err := a.Auth.Register(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		a.loginLimiter.Record(c.RealIP())
		c.Logger().Infof("register %q failed: %v", req.Username, err)
		return apiError(err)
	}
	c.Logger().Infof("registered user %s (%s)", u.Username, u.ID)
	return c.JSON(http.StatusOK, u)
}

func (a *App) handleLogin(c echo.Context) error {
	if !a.loginLimiter.Check(c.RealIP()) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	var req credentials
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	u, token, err := a.Auth.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		a.loginLimiter.Record(c.RealIP())
		return apiError(err)
	}
	a.setTokenCookie(c, token)
	return c.JSON(http.StatusOK, map[string]string{
		"id":       u.ID,
		"username": u.Username,
	})
}

func (a *App) handleProfile(c echo.Context) error {
	id, _ := Identity(c)
	return c.JSON(http.StatusOK, id)
}

func handleLogout(secure bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.SetCookie(newTokenCookie("", secure, -1))
		return c.JSON(http.StatusOK, "ok")
	}
}
