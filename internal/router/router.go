// Package router initializes the HTTP router (using Echo).
//
// It registers the middlewares and defines the routes,
// mapping specific paths to their corresponding handlers
package router

import (
	"net/http"

	"github.com/deppfellow/meta-dispatcher/internal/handler"
	"github.com/deppfellow/meta-dispatcher/internal/lib/jsoncodec"
	"github.com/deppfellow/meta-dispatcher/internal/middleware"
	"github.com/deppfellow/meta-dispatcher/internal/server"
	"github.com/labstack/echo/v4"
)

// NewRouter builds the Echo instance serving the whole API.
//
// Middleware order matters: the request ID and the New Relic transaction
// must exist before the context enhancer builds the request logger, and
// the request logger must wrap Recover so panics are logged as 500s.
func NewRouter(s *server.Server, h *handler.Handlers) *echo.Echo {
	middlewares := middleware.NewMiddlewares(s)

	router := echo.New()
	router.HideBanner = true
	router.HidePort = true
	router.JSONSerializer = jsoncodec.Serializer{}
	router.HTTPErrorHandler = middlewares.Global.GlobalErrorHandler

	router.Use(
		middlewares.Global.CORS(),
		middlewares.Global.Secure(),
		middleware.RequestID(),
		middlewares.Tracing.NewRelicMiddleware(),
		middlewares.Tracing.EnhanceTracing(),
		middlewares.ContextEnhancer.EnhanceContext(),
		middlewares.Global.RequestLogger(),
		middlewares.Global.Recover(),
	)

	registerSystemRoutes(router, s, h)

	router.POST("/", handler.HandleRawJSON(h.Dispatch.Handler, h.Dispatch.Dispatch, http.StatusOK),
		middlewares.Global.BodyLimit(),
	)

	return router
}
