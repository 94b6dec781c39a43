// Package backend selects where the worker mirrors journal activity.
package backend

import (
	"context"
	"fmt"

	"gastos/internal/config"
	"gastos/internal/log"
	"gastos/internal/sheets"
	gsheet "gastos/internal/sheets/google"
	"gastos/internal/sheets/memory"
)

// Type represents the kind of journal backend
type Type string

const (
	SheetsBackend Type = "sheets"
	MemoryBackend Type = "memory"
)

func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Config holds configuration for backend creation
type Config struct {
	Type Type

	// Google Sheets specific
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
	CredentialsJSON string
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	t := Type(appConfig.JournalBackend)
	if !t.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.JournalBackend)
	}
	return Config{
		Type:            t,
		SpreadsheetID:   appConfig.GoogleSpreadsheetID,
		SheetName:       appConfig.GoogleActivitySheet,
		CredentialsFile: appConfig.GoogleCredentialsFile,
		CredentialsJSON: appConfig.GoogleCredentialsJSON,
	}, nil
}

// newSheets is swapped in tests; the real constructor dials Google.
var newSheets = func(ctx context.Context, cfg gsheet.Config) (sheets.ActivityWriter, error) {
	return gsheet.New(ctx, cfg)
}

// NewWriter builds the activity writer for cfg.
func NewWriter(ctx context.Context, cfg Config, logger *log.Logger) (sheets.ActivityWriter, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSheets)

	switch cfg.Type {
	case SheetsBackend:
		w, err := newSheets(ctx, gsheet.Config{
			SpreadsheetID:   cfg.SpreadsheetID,
			SheetName:       cfg.SheetName,
			CredentialsFile: cfg.CredentialsFile,
			CredentialsJSON: cfg.CredentialsJSON,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		logger.Info("Initialized Google Sheets backend", "spreadsheet_id", cfg.SpreadsheetID, "sheet", cfg.SheetName)
		return w, nil
	case MemoryBackend:
		logger.Info("Initialized memory backend")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}
