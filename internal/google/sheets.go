// Package google appends attendance events to a shared Google Sheet so
// the operations team can watch check-ins without touching the app.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"aforo/internal/events"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const attendanceSheet = "Asistencia"

type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
}

// NewSheetsService authenticates with a service-account credentials
// file and binds to the attendance spreadsheet.
func NewSheetsService(ctx context.Context, credentialsFile, spreadsheetID string) (*SheetsService, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &SheetsService{service: srv, spreadsheetID: spreadsheetID}, nil
}

// TestConnection reads one cell to verify the spreadsheet is reachable
// and shared with the service account.
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, attendanceSheet+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// ServiceAccountEmail extracts the account email from a credentials
// file, for the "share the sheet with this address" setup step.
func ServiceAccountEmail(credentialsFile string) (string, error) {
	raw, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(raw, &creds); err != nil {
		return "", err
	}
	return creds.ClientEmail, nil
}

// AppendAttendanceRow appends one attendance event to the sheet.
func (s *SheetsService) AppendAttendanceRow(ctx context.Context, payload *events.AttendancePayload) error {
	row := []interface{}{
		payload.OccurredAt.Format("2006-01-02 15:04:05"),
		payload.Status,
		payload.ReservationID,
		payload.EventID,
		payload.EventName,
		payload.UserID,
		payload.UserName,
	}

	valueRange := &sheets.ValueRange{Values: [][]interface{}{row}}
	_, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, attendanceSheet+"!A:A", valueRange).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}
