package sheets

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"chronos/pkg/config"
	"chronos/pkg/interfaces"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// ValuesAPI the spreadsheet operations the store relies on
type ValuesAPI interface {
	// SheetTitles lists the worksheet titles. It doubles as the connectivity probe.
	SheetTitles(ctx context.Context) ([]string, error)

	// Read returns every populated row of a worksheet.
	Read(ctx context.Context, sheet string) ([][]interface{}, error)

	// Overwrite clears a worksheet and writes values starting at A1.
	Overwrite(ctx context.Context, sheet string, values [][]interface{}) error

	// AddSheet creates an empty worksheet.
	AddSheet(ctx context.Context, sheet string) error
}

// Client Google Sheets implementation of ValuesAPI
type Client struct {
	srv           *sheets.Service
	spreadsheetID string
	timeout       time.Duration
}

// NewClient authenticates with a service account key and builds the Sheets client.
func NewClient(ctx context.Context, cfg config.SheetsConfig) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("sheets.spreadsheet_id is required")
	}

	credentials, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}

	jwtConfig, err := google.JWTConfigFromJSON(credentials, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account key: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets client: %w", err)
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{srv: srv, spreadsheetID: cfg.SpreadsheetID, timeout: timeout}, nil
}

func loadCredentials(cfg config.SheetsConfig) ([]byte, error) {
	if cfg.CredentialsJSON != "" {
		return []byte(cfg.CredentialsJSON), nil
	}
	if cfg.CredentialsFile == "" {
		return nil, errors.New("sheets credentials not configured")
	}
	b, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read service account key file: %w", err)
	}
	return b, nil
}

func (c *Client) SheetTitles(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	meta, err := c.srv.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, classify(err)
	}

	titles := make([]string, 0, len(meta.Sheets))
	for _, s := range meta.Sheets {
		if s.Properties != nil {
			titles = append(titles, s.Properties.Title)
		}
	}
	return titles, nil
}

func (c *Client) Read(ctx context.Context, sheet string) ([][]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.srv.Spreadsheets.Values.Get(c.spreadsheetID, sheetRange(sheet)).Context(ctx).Do()
	if err != nil {
		return nil, classify(err)
	}
	return resp.Values, nil
}

func (c *Client) Overwrite(ctx context.Context, sheet string, values [][]interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if _, err := c.srv.Spreadsheets.Values.Clear(c.spreadsheetID, sheetRange(sheet), &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", sheet, classify(err))
	}
	if len(values) == 0 {
		return nil
	}

	vr := &sheets.ValueRange{Values: values}
	if _, err := c.srv.Spreadsheets.Values.Update(c.spreadsheetID, sheetRange(sheet)+"!A1", vr).ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write %s: %w", sheet, classify(err))
	}
	return nil
}

func (c *Client) AddSheet(ctx context.Context, sheet string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: sheet},
				},
			},
		},
	}
	if _, err := c.srv.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, classify(err))
	}
	return nil
}

// sheetRange quotes a worksheet title for A1 notation.
func sheetRange(sheet string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}

// classify marks connectivity and authorization failures as ErrStoreUnavailable.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized, apiErr.Code == http.StatusForbidden,
			apiErr.Code == http.StatusTooManyRequests, apiErr.Code >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}
	return err
}
