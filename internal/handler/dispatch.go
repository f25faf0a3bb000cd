package handler

import (
	"io"

	"github.com/deppfellow/meta-dispatcher/internal/server"
	"github.com/deppfellow/meta-dispatcher/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// DispatchHandler serves the single dispatch endpoint.
type DispatchHandler struct {
	Handler
	dispatch *service.DispatchService
}

func NewDispatchHandler(s *server.Server, dispatch *service.DispatchService) *DispatchHandler {
	return &DispatchHandler{
		Handler:  NewHandler(s),
		dispatch: dispatch,
	}
}

// Dispatch hands the raw body to the dispatch service and returns the
// backend's JSON body unchanged.
//
// The body is read in full before the request queues for the gate; the
// server's read deadline runs from the moment the headers arrive. It is
// not bound here: whether it is a form or JSON is decided by the service,
// whatever Content-Type says.
func (h *DispatchHandler) Dispatch(c echo.Context) ([]byte, error) {
	req := c.Request()

	body, err := io.ReadAll(req.Body)
	if err != nil {
		// body limit errors are *echo.HTTPError and keep their 413
		return nil, errors.Wrap(err, "read request body")
	}

	resp, err := h.dispatch.Dispatch(req.Context(), req.Header.Get(echo.HeaderContentType), body)
	if err != nil {
		return nil, err
	}

	return resp.Body, nil
}
