package middleware

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"neograph/pkg/ai"
)

// App bundles the shared process-wide dependencies handlers reach through
// the request context. The pool supports concurrent sessions; everything
// else is stateless or internally synchronized.
type App struct {
	DBConn *pgxpool.Pool
	AI     ai.CompletionClient
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(db *pgxpool.Pool, aiClient ai.CompletionClient) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			app := &App{
				DBConn: db,
				AI:     aiClient,
			}
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
