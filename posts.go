package inkpost

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/inkpost/model"
	"github.com/eringen/inkpost/store"
)

func (a *App) handleListPosts(c echo.Context) error {
	posts, err := a.Store.ListPosts(c.Request().Context(), store.DefaultListLimit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, posts)
}

func (a *App) handleGetPost(c echo.Context) error {
	post, err := a.Store.GetPost(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, post)
}

func (a *App) handleCreatePost(c echo.Context) error {
	id, _ := Identity(c)
	fields := model.PostFields{
		Title:   c.FormValue("title"),
		Summary: c.FormValue("summary"),
		Content: c.FormValue("content"),
	}

	file, err := a.readUpload(c)
	if err != nil {
		return err
	}
	if file != nil {
		if fields.Image, err = a.storeUpload(c, *file); err != nil {
			return err
		}
	}

	post, err := a.Store.CreatePost(c.Request().Context(), id.ID, fields)
	if err != nil {
		return apiError(err)
	}
	c.Logger().Infof("post %s created by %s", post.ID, id.Username)
	return c.JSON(http.StatusOK, post)
}

// handleUpdatePost keeps any field the form leaves out. A failed upload
// aborts the update so the stored image is never lost.
func (a *App) handleUpdatePost(c echo.Context) error {
	id, _ := Identity(c)
	postID := strings.TrimSpace(c.FormValue("id"))
	if postID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "id is required")
	}
	ctx := c.Request().Context()

	existing, err := a.Store.GetPost(ctx, postID)
	if err != nil {
		return apiError(err)
	}
	if existing.AuthorID != id.ID {
		return echo.NewHTTPError(http.StatusBadRequest, "you are not the author")
	}

	fields := model.PostFields{
		Title:   formValueOr(c, "title", existing.Title),
		Summary: formValueOr(c, "summary", existing.Summary),
		Content: formValueOr(c, "content", existing.Content),
		Image:   existing.Image,
	}
	file, err := a.readUpload(c)
	if err != nil {
		return err
	}
	if file != nil {
		if fields.Image, err = a.storeUpload(c, *file); err != nil {
			return err
		}
	}

	post, err := a.Store.UpdatePost(ctx, postID, fields)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, post)
}

// formValueOr returns the submitted value of key, or fallback if the form
// does not contain key at all. An empty submitted value is kept.
func formValueOr(c echo.Context, key, fallback string) string {
	form, err := c.FormParams()
	if err != nil {
		return fallback
	}
	if vals, ok := form[key]; ok && len(vals) > 0 {
		return vals[0]
	}
	return fallback
}
