package handler

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/satriadp/meeting-room-reservation/internal/repository"
	"github.com/satriadp/meeting-room-reservation/internal/timezone"
)

// analyticsWindowDays is the lookback window for usage aggregation.
const analyticsWindowDays = 30

// AnalyticsHandler aggregates booking activity for the admin charts.
type AnalyticsHandler struct {
	Rooms    *repository.RoomRepo
	Bookings *repository.BookingRepo
}

func NewAnalyticsHandler(rooms *repository.RoomRepo, bookings *repository.BookingRepo) *AnalyticsHandler {
	return &AnalyticsHandler{Rooms: rooms, Bookings: bookings}
}

type roomUsage struct {
	RoomID   uint64  `json:"room_id"`
	RoomName string  `json:"room_name"`
	Hours    float64 `json:"hours"`
	Bookings int     `json:"bookings"`
}

type dailyCount struct {
	Label string `json:"label"` // local MM/dd
	Count int    `json:"count"`
}

type hourlyCount struct {
	Hour  int `json:"hour"` // local hour of day
	Count int `json:"count"`
}

type analyticsResp struct {
	WindowDays int           `json:"window_days"`
	RoomUsage  []roomUsage   `json:"room_usage"`
	Daily      []dailyCount  `json:"daily"`
	Hourly     []hourlyCount `json:"hourly"`
}

// Usage reports the last 30 days of booking activity: booked hours and
// counts per room, bookings per local calendar day, and the start-hour
// distribution across the bookable part of the day.
func (h *AnalyticsHandler) Usage(c echo.Context) error {
	now := time.Now().UTC()
	since := timezone.StartOfDay(now).AddDate(0, 0, -(analyticsWindowDays - 1))

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	rooms, err := h.Rooms.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	rows, err := h.Bookings.ListActiveSince(ctx, since)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	names := make(map[uint64]string, len(rooms))
	for _, r := range rooms {
		names[r.ID] = r.Name
	}

	// Hours and counts per room.
	hoursByRoom := make(map[uint64]float64)
	countByRoom := make(map[uint64]int)
	// Bookings per local day keyed by day offset from the window start.
	dayCounts := make([]int, analyticsWindowDays)
	// Start-hour histogram across the bookable grid.
	hourCounts := make(map[int]int)

	for _, row := range rows {
		hoursByRoom[row.RoomID] += row.EndTime.Sub(row.StartTime).Hours()
		countByRoom[row.RoomID]++

		local := timezone.ToLocal(row.StartTime)
		dayIdx := int(timezone.StartOfDay(row.StartTime).Sub(since).Hours() / 24)
		if dayIdx >= 0 && dayIdx < analyticsWindowDays {
			dayCounts[dayIdx]++
		}
		hourCounts[local.Hour()]++
	}

	usage := make([]roomUsage, 0, len(hoursByRoom))
	for _, r := range rooms {
		if countByRoom[r.ID] == 0 {
			continue
		}
		usage = append(usage, roomUsage{
			RoomID:   r.ID,
			RoomName: r.Name,
			Hours:    math.Round(hoursByRoom[r.ID]*10) / 10,
			Bookings: countByRoom[r.ID],
		})
	}

	daily := make([]dailyCount, 0, analyticsWindowDays)
	for i := 0; i < analyticsWindowDays; i++ {
		day := timezone.ToLocal(since).AddDate(0, 0, i)
		daily = append(daily, dailyCount{
			Label: day.Format("01/02"),
			Count: dayCounts[i],
		})
	}

	hourly := make([]hourlyCount, 0, timezone.DefaultEndHour-timezone.DefaultStartHour)
	for hr := timezone.DefaultStartHour; hr < timezone.DefaultEndHour; hr++ {
		hourly = append(hourly, hourlyCount{Hour: hr, Count: hourCounts[hr]})
	}

	return c.JSON(http.StatusOK, analyticsResp{
		WindowDays: analyticsWindowDays,
		RoomUsage:  usage,
		Daily:      daily,
		Hourly:     hourly,
	})
}
