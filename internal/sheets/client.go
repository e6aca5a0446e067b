// Package sheets synchronizes bookings with an external Google Sheet.
// The sheet is a flat table of booking rows; the reconciler imports
// rows created externally and appends rows for bookings created here.
package sheets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	oauthjwt "golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// readRange covers the booking table minus its header row.
const readRange = "Sheet1!A2:O"

// RowSource abstracts the spreadsheet so the reconciler can be tested
// against an in-memory table.
type RowSource interface {
	// FetchRows returns every data row as string cells. Short rows are
	// allowed; the caller treats missing cells as empty.
	FetchRows(ctx context.Context) ([][]string, error)
	// AppendRows appends rows after the existing table.
	AppendRows(ctx context.Context, rows [][]string) error
}

// GoogleSheet is a RowSource backed by the Google Sheets API using a
// service account credential.
type GoogleSheet struct {
	svc           *sheetsapi.Service
	spreadsheetID string
}

// NewGoogleSheet builds a RowSource for the given spreadsheet. The
// private key may contain literal "\n" sequences, as it does when it
// arrives through an environment variable.
func NewGoogleSheet(ctx context.Context, spreadsheetID, clientEmail, privateKey string) (*GoogleSheet, error) {
	if spreadsheetID == "" || clientEmail == "" || privateKey == "" {
		return nil, fmt.Errorf("sheets: spreadsheet id, client email and private key are all required")
	}
	conf := &oauthjwt.Config{
		Email:      clientEmail,
		PrivateKey: []byte(strings.ReplaceAll(privateKey, `\n`, "\n")),
		Scopes:     []string{sheetsapi.SpreadsheetsScope},
		TokenURL:   google.JWTTokenURL,
	}
	svc, err := sheetsapi.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}
	return &GoogleSheet{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// NewGoogleSheetFromEnv builds the RowSource from GOOGLE_SHEETS_ID,
// GOOGLE_CLIENT_EMAIL and GOOGLE_PRIVATE_KEY.
func NewGoogleSheetFromEnv(ctx context.Context) (*GoogleSheet, error) {
	return NewGoogleSheet(ctx,
		os.Getenv("GOOGLE_SHEETS_ID"),
		os.Getenv("GOOGLE_CLIENT_EMAIL"),
		os.Getenv("GOOGLE_PRIVATE_KEY"))
}

// FetchRows reads the data range and flattens every cell to a string.
func (g *GoogleSheet) FetchRows(ctx context.Context) ([][]string, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: read %s: %w", readRange, err)
	}
	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, len(raw))
		for i, cell := range raw {
			row[i] = strings.TrimSpace(fmt.Sprint(cell))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// AppendRows appends rows below the table using raw values so
// timestamps are not reinterpreted by the sheet.
func (g *GoogleSheet) AppendRows(ctx context.Context, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	values := make([][]any, len(rows))
	for i, row := range rows {
		cells := make([]any, len(row))
		for j, cell := range row {
			cells[j] = cell
		}
		values[i] = cells
	}
	_, err := g.svc.Spreadsheets.Values.
		Append(g.spreadsheetID, readRange, &sheetsapi.ValueRange{Values: values}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets: append: %w", err)
	}
	return nil
}
