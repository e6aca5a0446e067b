// Package handler contains the Echo HTTP handlers. Handlers translate
// between the JSON surface and the booking engine; domain rules live
// in the engine and repositories, not here.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/satriadp/meeting-room-reservation/internal/booking"
	"github.com/satriadp/meeting-room-reservation/internal/timezone"
)

// dbTimeout bounds every database call made from a handler.
const dbTimeout = 5 * time.Second

// currentPrincipal extracts the authenticated caller from the claims
// the JWT middleware stored in the context.
func currentPrincipal(c echo.Context) (booking.Principal, bool) {
	uid := claimUint64(c.Get("user_id"))
	role, _ := c.Get("role").(string)
	if uid == 0 || role == "" {
		return booking.Principal{}, false
	}
	return booking.Principal{UserID: uid, Role: role}, true
}

// claimUint64 converts a JWT claim value to uint64. Numeric claims
// decode as float64; some clients send them as strings.
func claimUint64(v any) uint64 {
	switch t := v.(type) {
	case float64:
		return uint64(t)
	case uint64:
		return t
	case int64:
		return uint64(t)
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// parseDay parses a YYYY-MM-DD query value as a calendar day in the
// display timezone, returning its UTC day bounds. Empty input means
// today.
func parseDay(value string, now time.Time) (start, end time.Time, err error) {
	day := timezone.ToLocal(now)
	if value != "" {
		day, err = time.ParseInLocation("2006-01-02", value, timezone.Location())
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	return timezone.StartOfDay(day), timezone.EndOfDay(day), nil
}

// engineError maps booking engine failures onto HTTP responses. Every
// sentinel gets a distinct status so clients can react without parsing
// messages.
func engineError(c echo.Context, err error) error {
	var conflict *booking.ConflictError
	switch {
	case errors.As(err, &conflict):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":       "slot unavailable",
			"conflict_id": conflict.With.ID,
			"starts_at":   conflict.With.StartTime.UTC(),
			"ends_at":     conflict.With.EndTime.UTC(),
		})
	case errors.Is(err, booking.ErrSlotUnavailable):
		return c.JSON(http.StatusConflict, echo.Map{"error": "slot unavailable"})
	case errors.Is(err, booking.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	case errors.Is(err, booking.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, booking.ErrRoomNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
	case errors.Is(err, booking.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, booking.ErrRoomInactive):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "room is inactive"})
	case errors.Is(err, booking.ErrInvalidWindow):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid time window"})
	case errors.Is(err, booking.ErrCapacityExceeded):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "participants exceed room capacity"})
	case errors.Is(err, booking.ErrInvalidState):
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking state does not allow this operation"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
