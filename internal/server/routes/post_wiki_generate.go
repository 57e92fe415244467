package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"neograph/internal/server/middleware"
	"neograph/internal/util"
	"neograph/internal/wiki"
	"neograph/pkg/codegraph"
	graphpgx "neograph/pkg/codegraph/pgx"
	"neograph/pkg/logger"
)

// GenerateWikiHandler regenerates and stores the wiki of a repository. The
// generation itself never fails; a persistence problem is logged and the
// freshly generated pages are still returned.
func GenerateWikiHandler(c echo.Context) error {
	type generateWikiBody struct {
		RepoID   string `json:"repo_id" validate:"required"`
		RepoName string `json:"repo_name"`
	}

	type generateWikiResponse struct {
		Message string               `json:"message,omitempty"`
		Pages   []codegraph.WikiPage `json:"pages,omitempty"`
	}

	data := new(generateWikiBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, generateWikiResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, generateWikiResponse{
			Message: "Invalid request body",
		})
	}
	if data.RepoName == "" {
		data.RepoName = "Repository"
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	store := graphpgx.NewGraphDBStore(app.DBConn)
	pipeline := wiki.NewPipeline(codegraph.NewEngine(store), app.AI)

	pages := pipeline.Generate(ctx, data.RepoID, data.RepoName)

	for i := range pages {
		pages[i].Content = util.SanitizePostgresText(pages[i].Content)
	}
	if err := store.SaveWikiPages(ctx, data.RepoID, pages); err != nil {
		logger.Error("Failed to store wiki pages", "repo_id", data.RepoID, "err", err)
	}

	return c.JSON(http.StatusOK, generateWikiResponse{Pages: pages})
}
