package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/satriadp/meeting-room-reservation/internal/repository"
	"github.com/satriadp/meeting-room-reservation/internal/timezone"
)

// StatsHandler serves the dashboard counters.
type StatsHandler struct {
	Rooms    *repository.RoomRepo
	Bookings *repository.BookingRepo
}

func NewStatsHandler(rooms *repository.RoomRepo, bookings *repository.BookingRepo) *StatsHandler {
	return &StatsHandler{Rooms: rooms, Bookings: bookings}
}

type statsResp struct {
	TotalRooms     int `json:"total_rooms"`
	TodayBookings  int `json:"today_bookings"`
	MyBookings     int `json:"my_bookings"`
	ActiveBookings int `json:"active_bookings"`
	AvailableRooms int `json:"available_rooms"`
}

// Dashboard returns the headline numbers: active room count, bookings
// on the current local calendar day, the caller's upcoming bookings,
// meetings in progress, and rooms free right now.
func (h *StatsHandler) Dashboard(c echo.Context) error {
	p, ok := currentPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	now := time.Now().UTC()
	dayStart := timezone.StartOfDay(now)
	dayEnd := timezone.EndOfDay(now)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	totalRooms, err := h.Rooms.CountActive(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	today, err := h.Bookings.CountInWindow(ctx, dayStart, dayEnd)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	mine, err := h.Bookings.CountUpcomingForUser(ctx, p.UserID, now)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	active, err := h.Bookings.CountCoveringNow(ctx, now)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	occupied, err := h.Bookings.RoomsOccupiedAt(ctx, now)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	available := totalRooms - len(occupied)
	if available < 0 {
		available = 0
	}
	return c.JSON(http.StatusOK, statsResp{
		TotalRooms:     totalRooms,
		TodayBookings:  today,
		MyBookings:     mine,
		ActiveBookings: active,
		AvailableRooms: available,
	})
}
