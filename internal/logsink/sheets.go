package logsink

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsSink appends rows to the first worksheet of a Google Sheet using a
// service account, creating the header row when the sheet is empty.
type SheetsSink struct {
	service *sheets.Service
	sheetID string
}

// NewSheetsSink authenticates with the service-account JWT and builds the
// Sheets client.
func NewSheetsSink(ctx context.Context, sheetID, clientEmail, privateKey string) (*SheetsSink, error) {
	conf := &jwt.Config{
		Email:      clientEmail,
		PrivateKey: []byte(privateKey),
		Scopes:     []string{sheets.SpreadsheetsScope},
		TokenURL:   google.JWTTokenURL,
	}

	service, err := sheets.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("sheets sink: create service: %w", err)
	}
	return &SheetsSink{service: service, sheetID: sheetID}, nil
}

// Name implements Sink.
func (s *SheetsSink) Name() string { return "sheets" }

// Append implements Sink.
func (s *SheetsSink) Append(ctx context.Context, row Row) error {
	if err := s.ensureHeader(ctx); err != nil {
		return err
	}

	values := make([]interface{}, 0, len(headerColumns))
	for _, v := range row.values() {
		values = append(values, v)
	}

	_, err := s.service.Spreadsheets.Values.
		Append(s.sheetID, "A1", &sheets.ValueRange{Values: [][]interface{}{values}}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets sink: append row: %w", err)
	}
	return nil
}

func (s *SheetsSink) ensureHeader(ctx context.Context) error {
	resp, err := s.service.Spreadsheets.Values.Get(s.sheetID, "1:1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets sink: read header: %w", err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}

	header := make([]interface{}, 0, len(headerColumns))
	for _, col := range headerColumns {
		header = append(header, col)
	}
	_, err = s.service.Spreadsheets.Values.
		Update(s.sheetID, "A1", &sheets.ValueRange{Values: [][]interface{}{header}}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets sink: write header: %w", err)
	}
	return nil
}
