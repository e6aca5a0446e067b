package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/satriadp/meeting-room-reservation/internal/booking"
	"github.com/satriadp/meeting-room-reservation/internal/model"
	"github.com/satriadp/meeting-room-reservation/internal/repository"
)

// BookingHandler exposes the booking lifecycle over HTTP. All domain
// decisions are delegated to the engine; this layer only binds JSON
// and maps errors.
type BookingHandler struct {
	Engine   *booking.Engine
	Bookings *repository.BookingRepo
}

func NewBookingHandler(engine *booking.Engine, bookings *repository.BookingRepo) *BookingHandler {
	return &BookingHandler{Engine: engine, Bookings: bookings}
}

type bookingResp struct {
	ID               uint64    `json:"id"`
	RoomID           uint64    `json:"room_id"`
	UserID           uint64    `json:"user_id"`
	Title            string    `json:"title"`
	Description      *string   `json:"description,omitempty"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	ParticipantCount uint32    `json:"participant_count"`
	Status           string    `json:"status"`
	CheckInStatus    string    `json:"check_in_status"`
}

func toBookingResp(b model.Booking) bookingResp {
	return bookingResp{
		ID:               b.ID,
		RoomID:           b.RoomID,
		UserID:           b.UserID,
		Title:            b.Title,
		Description:      b.Description,
		StartTime:        b.StartTime,
		EndTime:          b.EndTime,
		ParticipantCount: b.ParticipantCount,
		Status:           b.Status,
		CheckInStatus:    b.CheckInStatus,
	}
}

type createBookingReq struct {
	RoomID           uint64    `json:"room_id"`
	Title            string    `json:"title"`
	Description      *string   `json:"description"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	ParticipantCount uint32    `json:"participant_count"`
}

// Create books a room.
func (h *BookingHandler) Create(c echo.Context) error {
	p, ok := currentPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.RoomID == 0 || req.Title == "" || req.StartTime.IsZero() || req.EndTime.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "room_id/title/start_time/end_time required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	b, err := h.Engine.Create(ctx, p, booking.CreateInput{
		RoomID:           req.RoomID,
		Title:            req.Title,
		Description:      req.Description,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		ParticipantCount: req.ParticipantCount,
	})
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusCreated, toBookingResp(b))
}

// List returns non-cancelled bookings. Query parameters: room_id,
// mine=true (only the caller's bookings), date=YYYY-MM-DD (local
// calendar day, defaults to all days).
func (h *BookingHandler) List(c echo.Context) error {
	p, ok := currentPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var f repository.ListFilter
	if v := c.QueryParam("room_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room_id"})
		}
		f.RoomID = &id
	}
	if c.QueryParam("mine") == "true" {
		f.UserID = &p.UserID
	}
	if v := c.QueryParam("date"); v != "" {
		dayStart, dayEnd, err := parseDay(v, time.Now().UTC())
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date, want YYYY-MM-DD"})
		}
		f.DayStart, f.DayEnd = &dayStart, &dayEnd
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	items, err := h.Bookings.List(ctx, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": items})
}

// Get returns one booking with its room and owner.
func (h *BookingHandler) Get(c echo.Context) error {
	if _, ok := currentPrincipal(c); !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	d, err := h.Bookings.GetDetail(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, d)
}

// Cancel cancels a booking. Cancelling twice is not an error; the
// response says the booking was already cancelled.
func (h *BookingHandler) Cancel(c echo.Context) error {
	p, ok := currentPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	b, changed, err := h.Engine.Cancel(ctx, p, id)
	if err != nil {
		return engineError(c, err)
	}
	if !changed {
		return c.JSON(http.StatusOK, echo.Map{"booking": toBookingResp(b), "message": "already cancelled"})
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": toBookingResp(b)})
}

type extendReq struct {
	EndTime time.Time `json:"end_time"`
}

// Extend lengthens a booking.
func (h *BookingHandler) Extend(c echo.Context) error {
	p, ok := currentPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var req extendReq
	if err := c.Bind(&req); err != nil || req.EndTime.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_time required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	b, err := h.Engine.Extend(ctx, p, id, req.EndTime)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

// EndEarly truncates an in-progress booking to end now.
func (h *BookingHandler) EndEarly(c echo.Context) error {
	p, ok := currentPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	b, err := h.Engine.EndEarly(ctx, p, id)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

// CheckIn confirms attendance for a booking the caller owns.
func (h *BookingHandler) CheckIn(c echo.Context) error {
	p, ok := currentPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	b, err := h.Engine.CheckIn(ctx, p, id)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

type modifyBookingReq struct {
	Title            *string    `json:"title"`
	Description      *string    `json:"description"`
	RoomID           *uint64    `json:"room_id"`
	StartTime        *time.Time `json:"start_time"`
	EndTime          *time.Time `json:"end_time"`
	ParticipantCount *uint32    `json:"participant_count"`
}

// Modify applies a partial update to a booking.
func (h *BookingHandler) Modify(c echo.Context) error {
	p, ok := currentPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var req modifyBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	b, err := h.Engine.Modify(ctx, p, id, booking.ModifyInput{
		Title:            req.Title,
		Description:      req.Description,
		RoomID:           req.RoomID,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		ParticipantCount: req.ParticipantCount,
	})
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}
