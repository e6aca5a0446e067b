package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/satriadp/meeting-room-reservation/internal/model"
	"github.com/satriadp/meeting-room-reservation/internal/repository"
)

// AdminRoomHandler manages the room inventory. The routes are mounted
// behind the admin role middleware.
type AdminRoomHandler struct {
	Rooms *repository.RoomRepo
}

func NewAdminRoomHandler(rooms *repository.RoomRepo) *AdminRoomHandler {
	return &AdminRoomHandler{Rooms: rooms}
}

type adminRoomResp struct {
	ID         uint64    `json:"id"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	Capacity   uint32    `json:"capacity"`
	Facilities []string  `json:"facilities"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toAdminRoomResp(r model.Room) adminRoomResp {
	return adminRoomResp{
		ID:         r.ID,
		Name:       r.Name,
		Category:   r.Category,
		Capacity:   r.Capacity,
		Facilities: r.Facilities,
		IsActive:   r.IsActive,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

type roomReq struct {
	Name       string   `json:"name"`
	Category   string   `json:"category"`
	Capacity   uint32   `json:"capacity"`
	Facilities []string `json:"facilities"`
	IsActive   *bool    `json:"is_active"`
}

func (r *roomReq) normalize() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Category = strings.ToUpper(strings.TrimSpace(r.Category))
	if r.Category == "" {
		r.Category = model.RoomPublic
	}
	if r.Category != model.RoomPublic && r.Category != model.RoomSpecial {
		return echo.NewHTTPError(http.StatusBadRequest, "category must be PUBLIC or SPECIAL")
	}
	if r.Name == "" || r.Capacity == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "name and capacity required")
	}
	return nil
}

// ListAll returns every room including deactivated ones.
func (h *AdminRoomHandler) ListAll(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	rooms, err := h.Rooms.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]adminRoomResp, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, toAdminRoomResp(r))
	}
	return c.JSON(http.StatusOK, echo.Map{"rooms": out})
}

// Create adds a room.
func (h *AdminRoomHandler) Create(c echo.Context) error {
	var req roomReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := req.normalize(); err != nil {
		return err
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	room := model.Room{
		Name:       req.Name,
		Category:   req.Category,
		Capacity:   req.Capacity,
		Facilities: req.Facilities,
		IsActive:   active,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Rooms.Create(ctx, &room); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create room failed"})
	}
	return c.JSON(http.StatusCreated, toAdminRoomResp(room))
}

// Update rewrites a room's attributes.
func (h *AdminRoomHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	var req roomReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := req.normalize(); err != nil {
		return err
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

	room.Name = req.Name
	room.Category = req.Category
	room.Capacity = req.Capacity
	room.Facilities = req.Facilities
	if req.IsActive != nil {
		room.IsActive = *req.IsActive
	}
	if err := h.Rooms.Update(ctx, room); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update room failed"})
	}
	return c.JSON(http.StatusOK, toAdminRoomResp(room))
}

// Deactivate soft-deletes a room. Existing bookings stay untouched.
func (h *AdminRoomHandler) Deactivate(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	_, found, err := h.Rooms.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !found {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
	}
	if err := h.Rooms.Deactivate(ctx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "deactivate room failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
