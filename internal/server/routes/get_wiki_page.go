package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"neograph/internal/server/middleware"
	"neograph/internal/wiki"
	"neograph/pkg/codegraph"
	graphpgx "neograph/pkg/codegraph/pgx"
	"neograph/pkg/logger"
)

// GetWikiPageHandler returns one stored wiki page by slug.
func GetWikiPageHandler(c echo.Context) error {
	type getWikiPageResponse struct {
		Message string              `json:"message,omitempty"`
		Page    *codegraph.WikiPage `json:"page,omitempty"`
	}

	repoID := c.Param("repo_id")
	if !wiki.ValidRepoID(repoID) {
		return c.JSON(http.StatusBadRequest, getWikiPageResponse{
			Message: "Invalid repository id",
		})
	}

	slug := c.Param("slug")
	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	page, err := graphpgx.NewGraphDBStore(app.DBConn).WikiPage(ctx, repoID, slug)
	if err != nil {
		logger.Error("Failed to load wiki page", "repo_id", repoID, "slug", slug, "err", err)
		return c.JSON(http.StatusInternalServerError, getWikiPageResponse{
			Message: "Internal server error",
		})
	}
	if page == nil {
		return c.JSON(http.StatusNotFound, getWikiPageResponse{
			Message: "Page not found",
		})
	}

	return c.JSON(http.StatusOK, getWikiPageResponse{Page: page})
}
