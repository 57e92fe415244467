package server

import (
	"neograph/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api")

	// Conversation route
	apiRoutes.POST("/chat", routes.ChatHandler)

	// Wiki routes
	apiRoutes.POST("/wiki/generate", routes.GenerateWikiHandler)
	apiRoutes.GET("/wiki/:repo_id", routes.GetWikiHandler)
	apiRoutes.GET("/wiki/:repo_id/pages/:slug", routes.GetWikiPageHandler)
}
