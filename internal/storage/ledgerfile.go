package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cashbook/internal/core"
)

// LedgerExtension is the only file extension accepted for ledger files.
const LedgerExtension = ".ledger"

// ValidateLedgerPath checks path without touching the file system beyond a
// stat: it must end in LedgerExtension and must not name a directory.
func ValidateLedgerPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: empty path", core.ErrInvalidLedgerFormat)
	}
	if ext := filepath.Ext(path); !strings.EqualFold(ext, LedgerExtension) {
		return fmt.Errorf("%w: %q must have the %s extension", core.ErrInvalidLedgerFormat, path, LedgerExtension)
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return fmt.Errorf("%w: %q is a directory", core.ErrInvalidLedgerFormat, path)
	}
	return nil
}

// OpenLedger validates path, creates its parent directories and opens (or
// creates) the ledger database, migrating it to the latest schema.
func OpenLedger(path string) (*SQLiteRepository, error) {
	if err := ValidateLedgerPath(path); err != nil {
		return nil, err
	}
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	return repo, nil
}
