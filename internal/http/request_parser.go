// Package http provides HTTP server and handler implementations.
//
// This file holds the helpers that read month, filter and amount values
// out of query strings and forms, falling back to defaults.

package http

import (
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"khidma/internal/core"
)

// maxUploadBytes bounds CSV and screenshot uploads.
const maxUploadBytes = 12 << 20

// ParseMonthValue reads a YYYY-MM value, returning def when it is missing
// or invalid.
func ParseMonthValue(values url.Values, key string, def core.Month) core.Month {
	v := strings.TrimSpace(values.Get(key))
	if v == "" {
		return def
	}
	m, err := core.ParseMonth(v)
	if err != nil {
		return def
	}
	return m
}

// ParseMonthFilterValue reads "all" or YYYY-MM, returning def otherwise.
func ParseMonthFilterValue(values url.Values, key string, def core.MonthFilter) core.MonthFilter {
	v := strings.TrimSpace(values.Get(key))
	if v == "" {
		return def
	}
	f, err := core.ParseMonthFilter(v)
	if err != nil {
		return def
	}
	return f
}

// ParseIntValue reads an integer, returning def when it is missing or
// invalid.
func ParseIntValue(values url.Values, key string, def int) int {
	v := strings.TrimSpace(values.Get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// amountOrZero parses an already validated amount; empty is zero.
func amountOrZero(s string) core.Money {
	m, err := core.ParseAmountOrZero(s)
	if err != nil {
		return core.Money{}
	}
	return m
}

// formValue returns the sanitized value of a form field.
func formValue(r *http.Request, key string) string {
	return sanitizeInput(r.FormValue(key))
}

// ParseFormOrFail parses the request form and returns an error response on
// failure. Returns nil on success.
func ParseFormOrFail(r *http.Request) *HTMXResponse {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("صيغة الطلب غير صالحة")
	}
	return nil
}

// ParseUploadOrFail parses a multipart form and returns the named file.
// The caller closes the file.
func ParseUploadOrFail(w http.ResponseWriter, r *http.Request, field string) (multipart.File, *multipart.FileHeader, *HTMXResponse) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, nil, BadRequestError("الملف كبير جداً أو الطلب غير صالح")
	}
	f, hdr, err := r.FormFile(field)
	if err != nil {
		return nil, nil, BadRequestError("اختر ملفاً")
	}
	return f, hdr, nil
}
