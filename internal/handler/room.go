package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/satriadp/meeting-room-reservation/internal/booking"
	"github.com/satriadp/meeting-room-reservation/internal/model"
	"github.com/satriadp/meeting-room-reservation/internal/policy"
	"github.com/satriadp/meeting-room-reservation/internal/repository"
	"github.com/satriadp/meeting-room-reservation/internal/timezone"
)

// RoomHandler serves the room browsing surfaces available to every
// authenticated user.
type RoomHandler struct {
	Rooms    *repository.RoomRepo
	Bookings *repository.BookingRepo
}

func NewRoomHandler(rooms *repository.RoomRepo, bookings *repository.BookingRepo) *RoomHandler {
	return &RoomHandler{Rooms: rooms, Bookings: bookings}
}

type roomResp struct {
	ID         uint64   `json:"id"`
	Name       string   `json:"name"`
	Category   string   `json:"category"`
	Capacity   uint32   `json:"capacity"`
	Facilities []string `json:"facilities"`
	IsActive   bool     `json:"is_active"`
	CanBook    bool     `json:"can_book"`
	IsOccupied bool     `json:"is_occupied"`
}

func toRoomResp(r model.Room, role string, occupied bool) roomResp {
	return roomResp{
		ID:         r.ID,
		Name:       r.Name,
		Category:   r.Category,
		Capacity:   r.Capacity,
		Facilities: r.Facilities,
		IsActive:   r.IsActive,
		CanBook:    policy.CanAccess(r, role, policy.ActionBook),
		IsOccupied: occupied,
	}
}

// List returns all active rooms annotated with whether the caller may
// book them and whether a meeting is running in them right now.
func (h *RoomHandler) List(c echo.Context) error {
	p, ok := currentPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	rooms, err := h.Rooms.ListActive(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	occupied, err := h.Bookings.RoomsOccupiedAt(ctx, time.Now().UTC())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	out := make([]roomResp, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, toRoomResp(r, p.Role, occupied[r.ID]))
	}
	return c.JSON(http.StatusOK, echo.Map{"rooms": out})
}

// Get returns one room.
func (h *RoomHandler) Get(c echo.Context) error {
	p, ok := currentPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	room, found, err := h.Rooms.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !found {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
	}
	occupied, err := h.Bookings.RoomsOccupiedAt(ctx, time.Now().UTC())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toRoomResp(room, p.Role, occupied[room.ID]))
}

type slotResp struct {
	timezone.Slot
	Available bool `json:"available"`
}

// Slots returns the room's standard slot grid for one local calendar
// day (?date=YYYY-MM-DD, default today). A slot is available when it
// lies in the future and does not overlap an active booking; slots
// merely touching a booking's end stay available.
func (h *RoomHandler) Slots(c echo.Context) error {
	if _, ok := currentPrincipal(c); !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	now := time.Now().UTC()
	dayStart, dayEnd, err := parseDay(c.QueryParam("date"), now)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date, want YYYY-MM-DD"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	room, found, err := h.Rooms.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !found {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
	}

	details, err := h.Bookings.List(ctx, repository.ListFilter{
		RoomID:   &room.ID,
		DayStart: &dayStart,
		DayEnd:   &dayEnd,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	active := make([]model.Booking, 0, len(details))
	for _, d := range details {
		active = append(active, model.Booking{
			ID:        d.ID,
			RoomID:    d.RoomID,
			StartTime: d.StartTime,
			EndTime:   d.EndTime,
			Status:    d.Status,
		})
	}

	grid := timezone.DefaultDaySlots(dayStart)
	out := make([]slotResp, 0, len(grid))
	for _, s := range grid {
		free := !s.Start.Before(now) && !booking.HasConflict(room.ID, s.Start, s.End, active, 0)
		out = append(out, slotResp{Slot: s, Available: free})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"room_id": room.ID,
		"slots":   out,
	})
}
