package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gastos/internal/core"
	ports "gastos/internal/sheets"

	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config selects the spreadsheet and the service account used to write it.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// Client appends activity rows to a yearly sheet, e.g. "2024 Actividad".
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
	now           func() time.Time
}

var _ ports.ActivityWriter = (*Client)(nil)

var header = []any{"Fecha", "Tipo", "Usuario", "Email", "Monto", "Referencia", "ID"}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheet := strings.TrimSpace(cfg.SheetName)
	if sheet == "" {
		sheet = "Actividad"
	}

	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetBase:     sheet,
		now:           time.Now,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		slog.InfoContext(ctx, "Using inline JSON credentials", "component", "sheets")
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.InfoContext(ctx, "Read credentials file", "component", "sheets", "path", cfg.CredentialsFile)
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	creds, err := goauth.CredentialsFromJSON(ctx, credentialsJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}

	service, err := gsheet.NewService(ctx, goption.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Append writes a at the first free row. An empty sheet gets a header row
// first.
func (c *Client) Append(ctx context.Context, a core.Activity) (string, error) {
	if a.ID == "" {
		return "", errors.New("activity id is required")
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	at := a.OccurredAt
	if at.IsZero() {
		at = c.now()
	}
	sheet := yearPrefixedName(c.sheetBase, at.In(time.Local).Year())

	rng := fmt.Sprintf("%s!A:A", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get sheet dimensions for %s: %w", sheet, err)
	}

	nextRow := len(resp.Values) + 1
	rows := [][]any{activityRow(a)}
	if nextRow == 1 {
		rows = [][]any{header, activityRow(a)}
	}
	lastRow := nextRow + len(rows) - 1

	dataRange := fmt.Sprintf("%s!A%d:G%d", sheet, nextRow, lastRow)
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to update %s: %w", dataRange, err)
	}

	return fmt.Sprintf("%s!A%d:G%d", sheet, lastRow, lastRow), nil
}

// activityRow lays out one activity in sheet columns A:G.
func activityRow(a core.Activity) []any {
	amount := ""
	if !a.Amount.IsZero() {
		amount = a.Amount.StringFixed(2)
	}
	return []any{
		a.OccurredAt.In(time.Local).Format("2006-01-02 15:04:05"),
		activityLabel(a.Kind),
		a.UserID,
		a.UserEmail,
		amount,
		a.Reference,
		a.ID,
	}
}

func activityLabel(k core.ActivityKind) string {
	switch k {
	case core.ActivityTransactionCreated:
		return "Transacción creada"
	case core.ActivityTransactionDeleted:
		return "Transacción eliminada"
	case core.ActivityWalletFunded:
		return "Billetera fondeada"
	case core.ActivityCoupleInvited:
		return "Invitación enviada"
	default:
		return string(k)
	}
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
