package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/satriadp/meeting-room-reservation/internal/sheets"
)

// syncTimeout is longer than dbTimeout because a pass talks to the
// Google API row by row.
const syncTimeout = 60 * time.Second

// SyncHandler triggers sheet reconciliation passes. Mounted behind the
// admin role middleware. The Reconciler may be nil when the deployment
// has no sheet credentials configured.
type SyncHandler struct {
	Reconciler *sheets.Reconciler
}

func NewSyncHandler(r *sheets.Reconciler) *SyncHandler {
	return &SyncHandler{Reconciler: r}
}

// Pull imports rows created externally on the sheet.
func (h *SyncHandler) Pull(c echo.Context) error {
	if h.Reconciler == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "sheet sync is not configured"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), syncTimeout)
	defer cancel()

	sum, err := h.Reconciler.Pull(ctx)
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "sheet pull failed"})
	}
	return c.JSON(http.StatusOK, sum)
}

// Push appends unsynced local bookings to the sheet.
func (h *SyncHandler) Push(c echo.Context) error {
	if h.Reconciler == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "sheet sync is not configured"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), syncTimeout)
	defer cancel()

	pushed, err := h.Reconciler.Push(ctx)
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "sheet push failed", "pushed": pushed})
	}
	return c.JSON(http.StatusOK, echo.Map{"pushed": pushed})
}
