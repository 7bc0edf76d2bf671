package log

import (
	"context"
	"errors"
	"log/slog"

	"khidma/internal/core"
)

// Field names shared by every log line.
const (
	FieldComponent    = "component"
	FieldRequestID    = "request_id"
	FieldClientIP     = "client_ip"
	FieldMethod       = "method"
	FieldPath         = "path"
	FieldQuery        = "query"
	FieldStatusCode   = "status_code"
	FieldDuration     = "duration_ms"
	FieldUserAgent    = "user_agent"
	FieldReferer      = "referer"
	FieldError        = "error"
	FieldErrorType    = "error_type"
	FieldOperation    = "operation"
	FieldMonth        = "month"
	FieldSponsorID    = "sponsor_id"
	FieldAreaID       = "area_id"
	FieldCollectionID = "collection_id"
	FieldAmountCents  = "amount_cents"
	FieldSadaqatCents = "sadaqat_cents"
	FieldCount        = "count"
)

// Components
const (
	ComponentHTTP       = "http"
	ComponentCollection = "collection"
	ComponentRegistry   = "registry"
	ComponentSettlement = "settlement"
	ComponentSadaqat    = "sadaqat"
	ComponentImport     = "import"
)

// Operations
const (
	OpCreate = "create"
	OpDelete = "delete"
	OpImport = "import"
	OpSettle = "settle"
)

// Error types reported in error_type.
const (
	ErrorTypeValidation = "validation_error"
	ErrorTypeNotFound   = "not_found_error"
	ErrorTypeTimeout    = "timeout_error"
	ErrorTypeCanceled   = "canceled"
	ErrorTypeInternal   = "internal_error"
)

// ErrorType classifies err for dashboards and alerts.
func ErrorType(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorTypeTimeout
	case errors.Is(err, context.Canceled):
		return ErrorTypeCanceled
	case errors.Is(err, core.ErrNotFound):
		return ErrorTypeNotFound
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidMonth),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEmptySponsor),
		errors.Is(err, core.ErrEmptyArea),
		errors.Is(err, core.ErrEmptyCause),
		errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrInvalidCaseType),
		errors.Is(err, core.ErrPortionsExceedAmount):
		return ErrorTypeValidation
	}
	return ErrorTypeInternal
}

// Fields collects attributes in the order they were added.
type Fields []slog.Attr

func NewFields() Fields {
	return make(Fields, 0, 8)
}

func (f Fields) add(key string, v any) Fields {
	return append(f, slog.Any(key, v))
}

func (f Fields) Operation(op string) Fields { return f.add(FieldOperation, op) }
func (f Fields) ClientIP(ip string) Fields  { return f.add(FieldClientIP, ip) }
func (f Fields) Month(m string) Fields      { return f.add(FieldMonth, m) }
func (f Fields) Sponsor(id string) Fields   { return f.add(FieldSponsorID, id) }
func (f Fields) Area(id string) Fields      { return f.add(FieldAreaID, id) }
func (f Fields) Count(n int) Fields         { return f.add(FieldCount, n) }

// Error adds the message and its type; nil adds nothing.
func (f Fields) Error(err error) Fields {
	if err == nil {
		return f
	}
	return append(f, slog.String(FieldError, err.Error()), slog.String(FieldErrorType, ErrorType(err)))
}

// Collection adds the fields identifying a recorded payment.
func (f Fields) Collection(id, sponsorID, month string, amountCents, sadaqatCents int64) Fields {
	return append(f,
		slog.String(FieldCollectionID, id),
		slog.String(FieldSponsorID, sponsorID),
		slog.String(FieldMonth, month),
		slog.Int64(FieldAmountCents, amountCents),
		slog.Int64(FieldSadaqatCents, sadaqatCents),
	)
}

// Request adds the request line and, when set, the browser headers.
func (f Fields) Request(method, path, query, userAgent, referer string) Fields {
	f = append(f, slog.String(FieldMethod, method), slog.String(FieldPath, path))
	if query != "" {
		f = f.add(FieldQuery, query)
	}
	if userAgent != "" {
		f = f.add(FieldUserAgent, userAgent)
	}
	if referer != "" {
		f = f.add(FieldReferer, referer)
	}
	return f
}

func (f Fields) Response(statusCode int, durationMs int64) Fields {
	return append(f, slog.Int(FieldStatusCode, statusCode), slog.Int64(FieldDuration, durationMs))
}
