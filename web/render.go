package web

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// Render writes body inside the site layout with a 200 status.
func (s *Server) Render(c echo.Context, meta PageMeta, body templ.Component) error {
	return s.RenderStatus(c, http.StatusOK, meta, body)
}

// RenderStatus writes body inside the site layout with the given status.
// HEAD requests get the headers only.
func (s *Server) RenderStatus(c echo.Context, code int, meta PageMeta, body templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	if c.Request().Method == http.MethodHead {
		return nil
	}
	return Layout(s.cfg.SiteName, meta, body).Render(c.Request().Context(), c.Response().Writer)
}
