package sheets

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/satriadp/meeting-room-reservation/internal/model"
	"github.com/satriadp/meeting-room-reservation/internal/repository"
)

// Sheet row layout. Cells beyond Status are ignored.
const (
	colRowID = iota
	colRoomName
	colTitle
	colUserEmail
	colUserName
	colStart
	colEnd
	colParticipants
	colStatus
)

// RoomCatalog lists every room so sheet rows can be matched by name.
type RoomCatalog interface {
	ListAll(ctx context.Context) ([]model.Room, error)
}

// UserDirectory resolves sheet rows to local accounts by email.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (model.User, bool, error)
}

// BookingStore is the booking persistence the reconciler needs.
type BookingStore interface {
	SheetRowExists(ctx context.Context, rowID string) (bool, error)
	InsertSynced(ctx context.Context, b *model.Booking) error
	ListUnsynced(ctx context.Context) ([]repository.SyncRow, error)
	StampSheetRowID(ctx context.Context, bookingID uint64, rowID string) error
}

// Summary reports the outcome of a pull pass over the sheet.
type Summary struct {
	TotalRows int `json:"total_rows"`
	Synced    int `json:"synced"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

// Reconciler runs the two sync directions between the sheet and the
// local database. Pull imports externally created rows; Push appends
// locally created bookings that are not on the sheet yet.
type Reconciler struct {
	rooms    RoomCatalog
	users    UserDirectory
	bookings BookingStore
	source   RowSource

	newRowID func() string
}

// NewReconciler wires a reconciler. All four dependencies are required.
func NewReconciler(rooms RoomCatalog, users UserDirectory, bookings BookingStore, source RowSource) *Reconciler {
	if rooms == nil || users == nil || bookings == nil || source == nil {
		panic("sheets: reconciler dependencies must not be nil")
	}
	return &Reconciler{
		rooms:    rooms,
		users:    users,
		bookings: bookings,
		source:   source,
		newRowID: func() string { return "app_" + uuid.NewString() },
	}
}

// Pull imports sheet rows that do not exist locally yet. A row is
// skipped, not failed, when it was already imported, when its room
// cannot be matched, or when its email does not belong to a local
// account. Malformed rows count as errors. A failing row never aborts
// the pass.
func (r *Reconciler) Pull(ctx context.Context) (Summary, error) {
	rows, err := r.source.FetchRows(ctx)
	if err != nil {
		return Summary{}, err
	}
	catalog, err := r.rooms.ListAll(ctx)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{TotalRows: len(rows)}
	for i, row := range rows {
		switch err := r.pullRow(ctx, row, catalog); {
		case err == nil:
			sum.Synced++
		case errors.Is(err, errSkipRow):
			sum.Skipped++
		default:
			log.Printf("sheets: row %d: %v", i+2, err)
			sum.Errors++
		}
	}
	return sum, nil
}

// errSkipRow marks rows that are intentionally not imported.
var errSkipRow = errors.New("row skipped")

func (r *Reconciler) pullRow(ctx context.Context, row []string, catalog []model.Room) error {
	if cell(row, colStart) == "" || cell(row, colEnd) == "" {
		return fmt.Errorf("missing start or end time")
	}

	rowID := dedupKey(row)
	exists, err := r.bookings.SheetRowExists(ctx, rowID)
	if err != nil {
		return err
	}
	if exists {
		return errSkipRow
	}

	room, ok := matchRoom(catalog, cell(row, colRoomName))
	if !ok {
		return errSkipRow
	}

	email := strings.ToLower(cell(row, colUserEmail))
	if email == "" {
		return errSkipRow
	}
	user, found, err := r.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !found {
		return errSkipRow
	}

	start, err := parseSheetTime(cell(row, colStart))
	if err != nil {
		return fmt.Errorf("start time %q: %w", cell(row, colStart), err)
	}
	end, err := parseSheetTime(cell(row, colEnd))
	if err != nil {
		return fmt.Errorf("end time %q: %w", cell(row, colEnd), err)
	}
	if !end.After(start) {
		return fmt.Errorf("end %s not after start %s", end, start)
	}

	title := cell(row, colTitle)
	if title == "" {
		title = "Meeting - " + room.Name
	}

	b := model.Booking{
		RoomID:           room.ID,
		UserID:           user.ID,
		Title:            title,
		StartTime:        start,
		EndTime:          end,
		ParticipantCount: clampParticipants(cell(row, colParticipants), room.Capacity),
		Status:           normalizeStatus(cell(row, colStatus)),
		CheckInStatus:    model.CheckInPending,
		SheetRowID:       &rowID,
	}
	if err := r.bookings.InsertSynced(ctx, &b); err != nil {
		if errors.Is(err, repository.ErrDuplicateRow) {
			return errSkipRow
		}
		return err
	}
	return nil
}

// Push appends every unsynced local booking to the sheet and stamps
// the generated row identifier back onto the booking so the next pull
// recognizes it. Returns how many bookings were pushed.
func (r *Reconciler) Push(ctx context.Context) (int, error) {
	pending, err := r.bookings.ListUnsynced(ctx)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	rowIDs := make([]string, len(pending))
	rows := make([][]string, len(pending))
	for i, p := range pending {
		rowIDs[i] = r.newRowID()
		rows[i] = []string{
			rowIDs[i],
			p.RoomName,
			p.Title,
			p.UserEmail,
			p.UserName,
			p.StartTime.UTC().Format(time.RFC3339),
			p.EndTime.UTC().Format(time.RFC3339),
			strconv.FormatUint(uint64(p.ParticipantCount), 10),
			p.Status,
		}
	}
	if err := r.source.AppendRows(ctx, rows); err != nil {
		return 0, err
	}
	for i, p := range pending {
		if err := r.bookings.StampSheetRowID(ctx, p.BookingID, rowIDs[i]); err != nil {
			return i, err
		}
	}
	return len(pending), nil
}

// cell returns row[i] or "" when the row is short.
func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// dedupKey derives the stable identifier for a sheet row. Rows this
// application pushed carry their own app_ identifier verbatim; other
// rows get a sheet_ prefix, falling back to room plus start time when
// the sheet left the id column empty.
func dedupKey(row []string) string {
	id := cell(row, colRowID)
	if strings.HasPrefix(id, "app_") {
		return id
	}
	if id != "" {
		return "sheet_" + id
	}
	return "sheet_" + sanitizeKey(cell(row, colRoomName)+"_"+cell(row, colStart))
}

// sanitizeKey replaces everything outside [a-zA-Z0-9] with underscores.
func sanitizeKey(s string) string {
	out := []byte(s)
	for i, c := range out {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		default:
			out[i] = '_'
		}
	}
	return string(out)
}

// matchRoom finds a room by name, tolerating the loose naming sheets
// accumulate: exact case-insensitive match first, then substring
// containment in either direction.
func matchRoom(catalog []model.Room, name string) (model.Room, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return model.Room{}, false
	}
	for _, room := range catalog {
		if strings.ToLower(room.Name) == needle {
			return room, true
		}
	}
	for _, room := range catalog {
		have := strings.ToLower(room.Name)
		if strings.Contains(have, needle) || strings.Contains(needle, have) {
			return room, true
		}
	}
	return model.Room{}, false
}

// sheetTimeLayouts are tried in order when parsing timestamp cells.
var sheetTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

func parseSheetTime(s string) (time.Time, error) {
	for _, layout := range sheetTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp")
}

// clampParticipants parses the participant cell, defaulting to 1 and
// clamping to the room capacity.
func clampParticipants(s string, capacity uint32) uint32 {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil || n == 0 {
		return 1
	}
	if capacity > 0 && uint32(n) > capacity {
		return capacity
	}
	return uint32(n)
}

// normalizeStatus maps the status cell onto a known status, defaulting
// to CONFIRMED. Both spellings of cancelled appear in the wild.
func normalizeStatus(s string) string {
	switch strings.ToUpper(s) {
	case "CANCELLED", "CANCELED":
		return model.BookingCancelled
	default:
		return model.BookingConfirmed
	}
}
