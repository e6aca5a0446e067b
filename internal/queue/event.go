// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingEvent is published when a booking is confirmed or cancelled.
// It carries enough information for downstream consumers to log,
// notify, or trigger analytics without querying the primary database.
type BookingEvent struct {
	Type             string `json:"type"`
	BookingID        uint64 `json:"booking_id"`
	RoomID           uint64 `json:"room_id"`
	RoomName         string `json:"room_name"`
	UserID           uint64 `json:"user_id"`
	UserName         string `json:"user_name"`
	UserEmail        string `json:"user_email"`
	Title            string `json:"title"`
	StartsAt         string `json:"starts_at"`
	EndsAt           string `json:"ends_at"`
	ParticipantCount uint32 `json:"participant_count"`
	OccurredAt       string `json:"occurred_at"`
}
