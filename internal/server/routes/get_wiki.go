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

// GetWikiHandler lists the stored pages of a repository for navigation.
func GetWikiHandler(c echo.Context) error {
	type getWikiResponse struct {
		Message string                   `json:"message,omitempty"`
		Pages   []codegraph.WikiNavEntry `json:"pages,omitempty"`
	}

	repoID := c.Param("repo_id")
	if !wiki.ValidRepoID(repoID) {
		return c.JSON(http.StatusBadRequest, getWikiResponse{
			Message: "Invalid repository id",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	entries, err := graphpgx.NewGraphDBStore(app.DBConn).WikiNavigation(ctx, repoID)
	if err != nil {
		logger.Error("Failed to list wiki pages", "repo_id", repoID, "err", err)
		return c.JSON(http.StatusInternalServerError, getWikiResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getWikiResponse{Pages: entries})
}
