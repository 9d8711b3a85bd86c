package handler

import (
	"context"
	"net/http"

	"auction-engine/services/bidding/helpers"
	"auction-engine/utils"

	"github.com/gin-gonic/gin"
)

type SweeperInterface interface {
	RunOnce(ctx context.Context) int
}

type AdminHandler struct {
	sweeper SweeperInterface
}

func NewAdminHandler(sweeper SweeperInterface) *AdminHandler {
	return &AdminHandler{sweeper: sweeper}
}

// SweepHandler handles POST /admin/sweep and runs one expiry sweep synchronously
func (h *AdminHandler) SweepHandler(c *gin.Context) {
	finalized := h.sweeper.RunOnce(c.Request.Context())

	utils.JSONResponse(c, http.StatusOK, helpers.SweepResponse{Finalized: finalized}, "sweep completed")
	helpers.LogSuccess("SweepHandler", "sweep completed", map[string]any{"finalized": finalized})
}
