package log

import (
	"errors"

	"cashbook/internal/core"
)

// Standard field names for consistent logging
const (
	FieldComponent = "component"
	FieldError     = "error"
	FieldErrorType = "error_type"
	FieldOperation = "operation"
	FieldEntryID   = "entry_id"
	FieldEntryType = "entry_type"
	FieldAmount    = "amount"
	FieldCurrency  = "currency"
	FieldTags      = "tags"
	FieldFrom      = "from"
	FieldTo        = "to"
	FieldPeriod    = "period"
	FieldLedger    = "ledger"
	FieldDuration  = "duration_ms"
)

// Component names
const (
	ComponentApp      = "app"
	ComponentLedger   = "ledger"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentCurrency = "currency"
	ComponentReport   = "report"
	ComponentSheets   = "sheets"
	ComponentBackend  = "backend"
	ComponentCLI      = "cli"
)

// Operation types
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpReport   = "report"
	OpExport   = "export"
	OpConvert  = "convert"
	OpPublish  = "publish"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// Error types
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeRate          = "rate_error"
	ErrorTypeInternal      = "internal_error"
)

// ErrorType classifies err by the core error kind it wraps.
func ErrorType(err error) string {
	switch {
	case errors.Is(err, core.ErrValidation), errors.Is(err, core.ErrInvalidDateRange),
		errors.Is(err, core.ErrInvalidLedgerFormat):
		return ErrorTypeValidation
	case errors.Is(err, core.ErrNotFound):
		return ErrorTypeNotFound
	case errors.Is(err, core.ErrDatabase):
		return ErrorTypeDatabase
	case errors.Is(err, core.ErrNetwork), errors.Is(err, core.ErrJSON):
		return ErrorTypeNetwork
	case errors.Is(err, core.ErrExchangeRateUnavailable), errors.Is(err, core.ErrConversion):
		return ErrorTypeRate
	}
	return ErrorTypeInternal
}

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithError adds the error and its classification
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
		f[FieldErrorType] = ErrorType(err)
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithEntry adds the identifying fields of a ledger entry
func (f LogFields) WithEntry(e core.LedgerEntry) LogFields {
	f[FieldEntryID] = e.ID
	f[FieldEntryType] = string(e.Type)
	f[FieldAmount] = e.Amount.String()
	f[FieldCurrency] = e.Currency
	f[FieldTags] = core.TagNames(e.Tags)
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
