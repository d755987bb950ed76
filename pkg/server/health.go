package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"hostmon/pkg/models"
)

// getHealth handles GET /health. It never samples.
func (srv *AgentServer) getHealth(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, models.Health{
		Healthy: true,
		Version: srv.version,
	})
}

// getAgentID handles GET /agent-id.
func (srv *AgentServer) getAgentID(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, models.AgentID{AgentID: srv.cfg.AgentID})
}
