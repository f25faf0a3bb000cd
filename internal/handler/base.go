package handler

import (
	"time"

	"github.com/deppfellow/meta-dispatcher/internal/middleware"
	"github.com/deppfellow/meta-dispatcher/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/newrelic"
)

// Handler is the base handler type that holds shared application dependencies.
//
// It is embedded by concrete handlers (DispatchHandler, HealthHandler, ...)
// so they can reach config, logger and the gate via *server.Server.
type Handler struct {
	server *server.Server
}

// NewHandler constructs a base Handler.
func NewHandler(s *server.Server) Handler {
	return Handler{server: s}
}

// HandlerFunc is a typed endpoint function returning a response value or an error.
type HandlerFunc[Res any] func(c echo.Context) (Res, error)

// ResponseHandler defines how a successful handler result is written to the
// HTTP response, and which observability attributes belong to it.
type ResponseHandler interface {
	// Handle writes the HTTP response for the given result.
	Handle(c echo.Context, result interface{}) error

	// GetOperation returns an operation name used for structured logging.
	GetOperation() string

	// AddAttributes attaches New Relic attributes based on response type and/or result.
	AddAttributes(txn *newrelic.Transaction, result interface{})
}

// RawJSONResponseHandler writes a result that is already encoded JSON
// ([]byte) without decoding it again.
type RawJSONResponseHandler struct {
	status int
}

func (h RawJSONResponseHandler) Handle(c echo.Context, result interface{}) error {
	return c.JSONBlob(h.status, result.([]byte))
}

func (h RawJSONResponseHandler) GetOperation() string {
	return "handler_raw_json"
}

func (h RawJSONResponseHandler) AddAttributes(txn *newrelic.Transaction, result interface{}) {
	if txn == nil {
		return
	}
	if data, ok := result.([]byte); ok {
		txn.AddAttribute("response.size_bytes", len(data))
	}
}

// handleRequest is the shared execution pipeline for all handlers.
//
// It centralizes:
//   - structured logging (with request context)
//   - New Relic tracing attributes (errors are noticed by the tracing middleware)
//   - timing (handler duration)
//   - response writing
//
// Errors are returned untouched so the global error handler formats them.
func handleRequest(
	c echo.Context,
	handler func(c echo.Context) (interface{}, error),
	responseHandler ResponseHandler,
) error {
	start := time.Now()
	route := c.Path()

	txn := newrelic.FromContext(c.Request().Context())
	if txn != nil {
		txn.AddAttribute("handler.name", route)
		responseHandler.AddAttributes(txn, nil)
	}

	logger := middleware.GetLogger(c).With().
		Str("operation", responseHandler.GetOperation()).
		Str("route", route).
		Logger()

	logger.Debug().Msg("handling request")

	result, err := handler(c)
	handlerDuration := time.Since(start)

	if err != nil {
		logger.Debug().
			Err(err).
			Dur("handler_duration", handlerDuration).
			Msg("handler execution failed")

		if txn != nil {
			txn.AddAttribute("handler.status", "error")
			txn.AddAttribute("handler.duration_ms", handlerDuration.Milliseconds())
		}
		return err
	}

	if txn != nil {
		txn.AddAttribute("handler.status", "success")
		txn.AddAttribute("handler.duration_ms", handlerDuration.Milliseconds())
		responseHandler.AddAttributes(txn, result)
	}

	logger.Debug().
		Dur("handler_duration", handlerDuration).
		Msg("request completed successfully")

	return responseHandler.Handle(c, result)
}

// HandleRawJSON wraps a handler returning JSON bytes that must reach the
// client unchanged.
func HandleRawJSON(h Handler, handler HandlerFunc[[]byte], status int) echo.HandlerFunc {
	return func(c echo.Context) error {
		return handleRequest(c, func(c echo.Context) (interface{}, error) {
			return handler(c)
		}, RawJSONResponseHandler{status: status})
	}
}
