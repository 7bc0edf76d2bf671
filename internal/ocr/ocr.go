// Package ocr reads payment details out of transfer screenshots.
package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"khidma/internal/core"
	"khidma/internal/match"
)

// Prompt asks for the Instapay receipt fields as bare JSON.
const Prompt = `This is an Egyptian Instapay payment screenshot. Extract these fields as JSON only (no markdown, no backticks): {"sender_name":"","amount":0,"bank":"","recipient":"","reference":"","date":""}. If not visible use empty string or 0.`

var (
	ErrNoResult     = errors.New("ocr returned no result")
	ErrUnreadable   = errors.New("ocr result is not valid JSON")
	ErrUnsupported  = errors.New("unsupported image type")
	ErrImageTooLong = errors.New("image too large")
)

// MaxImageBytes bounds uploaded screenshots.
const MaxImageBytes = 10 << 20

// Receipt is what was read off a screenshot. Raw keeps the model's JSON for
// the collection's ocr_raw column.
type Receipt struct {
	SenderName string
	Amount     core.Money
	Bank       string
	Recipient  string
	Reference  string
	Date       string
	Raw        string
}

// Extractor turns a screenshot into a receipt.
type Extractor interface {
	Extract(ctx context.Context, mime string, image []byte) (Receipt, error)
}

type rawReceipt struct {
	SenderName string `json:"sender_name"`
	Amount     any    `json:"amount"`
	Bank       string `json:"bank"`
	Recipient  string `json:"recipient"`
	Reference  string `json:"reference"`
	Date       string `json:"date"`
}

// Parse decodes the model's answer. Markdown code fences are stripped and
// an unreadable amount is treated as zero.
func Parse(text string) (Receipt, error) {
	clean := StripFences(text)
	if clean == "" {
		return Receipt{}, ErrNoResult
	}
	var r rawReceipt
	if err := json.Unmarshal([]byte(clean), &r); err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	rec := Receipt{
		SenderName: strings.TrimSpace(r.SenderName),
		Bank:       strings.TrimSpace(r.Bank),
		Recipient:  strings.TrimSpace(r.Recipient),
		Reference:  strings.TrimSpace(r.Reference),
		Date:       strings.TrimSpace(r.Date),
		Raw:        clean,
	}
	if r.Amount != nil {
		if m, err := core.ParseAmountOrZero(fmt.Sprint(r.Amount)); err == nil {
			rec.Amount = m
		}
	}
	return rec, nil
}

// StripFences removes ```json and ``` markers around the payload.
func StripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// CheckImage rejects uploads the model cannot read.
func CheckImage(mime string, image []byte) error {
	if len(image) > MaxImageBytes {
		return ErrImageTooLong
	}
	switch mime {
	case "image/png", "image/jpeg", "image/webp", "image/heic", "image/heif":
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnsupported, mime)
}

// Prefill is the collect form state derived from a receipt.
type Prefill struct {
	Receipt    Receipt
	Sponsor    *core.Sponsor
	Confidence float64
}

// Match looks the sender up among the sponsors.
func Match(r Receipt, sponsors []core.Sponsor) Prefill {
	s, conf := match.Sponsor(r.SenderName, sponsors)
	return Prefill{Receipt: r, Sponsor: s, Confidence: conf}
}
