package handler

import (
	"embed"
	"fmt"
	"net/http"

	"github.com/deppfellow/meta-dispatcher/internal/server"
	"github.com/labstack/echo/v4"
)

//go:embed static/openapi.json static/openapi.html
var staticFiles embed.FS

// OpenAPIHandler serves the OpenAPI document and a docs UI that renders it.
//
// Both files are embedded in the binary. Responses are not cached so an
// updated document shows up immediately.
type OpenAPIHandler struct {
	Handler
}

func NewOpenAPIHandler(s *server.Server) *OpenAPIHandler {
	return &OpenAPIHandler{
		Handler: NewHandler(s),
	}
}

// ServeOpenAPISpec serves static/openapi.json.
func (h *OpenAPIHandler) ServeOpenAPISpec(c echo.Context) error {
	spec, err := staticFiles.ReadFile("static/openapi.json")
	if err != nil {
		return fmt.Errorf("failed to read OpenAPI document: %w", err)
	}

	c.Response().Header().Set("Cache-Control", "no-cache")
	return c.JSONBlob(http.StatusOK, spec)
}

// ServeOpenAPIUI serves static/openapi.html, which loads /openapi.json.
func (h *OpenAPIHandler) ServeOpenAPIUI(c echo.Context) error {
	page, err := staticFiles.ReadFile("static/openapi.html")
	if err != nil {
		return fmt.Errorf("failed to read OpenAPI UI template: %w", err)
	}

	c.Response().Header().Set("Cache-Control", "no-cache")

	if err := c.HTMLBlob(http.StatusOK, page); err != nil {
		return fmt.Errorf("failed to write HTML response: %w", err)
	}

	return nil
}
