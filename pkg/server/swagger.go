package server

import (
	"embed"
	"html/template"
	"net/http"

	"hostmon/pkg/log"

	"github.com/labstack/echo/v4"
)

const swaggerSpecPath = "/swagger.yml"

//go:embed web/swagger-ui.html web/swagger.yml
var webFS embed.FS

var docsTemplate = template.Must(template.ParseFS(webFS, "web/swagger-ui.html"))

// serveDocs handles GET /docs.
func (srv *AgentServer) serveDocs(ctx echo.Context) error {
	data := struct {
		Title       string
		SwaggerPath string
	}{
		Title:       "hostmon agent API " + srv.version,
		SwaggerPath: swaggerSpecPath,
	}

	ctx.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	ctx.Response().WriteHeader(http.StatusOK)
	return docsTemplate.Execute(ctx.Response().Writer, data)
}

// serveSwaggerSpec handles GET /swagger.yml.
func (srv *AgentServer) serveSwaggerSpec(ctx echo.Context) error {
	spec, err := webFS.ReadFile("web/swagger.yml")
	if err != nil {
		log.Error().Err(err).Msg("Failed to read embedded API spec")
		return ctx.String(http.StatusInternalServerError, "failed to load API spec")
	}

	return ctx.Blob(http.StatusOK, "application/yaml", spec)
}
