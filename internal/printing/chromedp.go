// Package printing turns the rendered report page into a PDF.
package printing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const (
	defaultTimeout = 30 * time.Second
	// A4
	paperWidthMM  = 210
	paperHeightMM = 297
	marginMM      = 12
)

var (
	ErrEmptyHTML  = errors.New("html content is empty")
	ErrEmptyPDF   = errors.New("generated pdf is empty")
	ErrTimeout    = errors.New("pdf rendering timed out")
	ErrNotStarted = errors.New("renderer is closed")
)

// Renderer renders a complete HTML document to PDF bytes.
type Renderer interface {
	PDF(ctx context.Context, title, html string) ([]byte, error)
}

// Config configures the headless Chrome renderer.
type Config struct {
	// RemoteURL is the devtools websocket of a running Chrome. When empty a
	// local browser is launched on first use.
	RemoteURL string
	Timeout   time.Duration
	// NoSandbox is required when running as root in a container.
	NoSandbox bool
}

// Chrome prints pages through the Chrome DevTools Protocol.
type Chrome struct {
	timeout     time.Duration
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

var _ Renderer = (*Chrome)(nil)

func NewChrome(cfg Config) *Chrome {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	c := &Chrome{timeout: cfg.Timeout}
	if cfg.RemoteURL != "" {
		c.allocCtx, c.allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
		return c
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if cfg.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	c.allocCtx, c.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	return c
}

// PDF loads the document into a blank tab and prints it on A4 with
// backgrounds, so the report's table shading survives.
func (c *Chrome) PDF(ctx context.Context, title, html string) ([]byte, error) {
	if strings.TrimSpace(html) == "" {
		return nil, ErrEmptyHTML
	}
	if c.allocCtx == nil || c.allocCtx.Err() != nil {
		return nil, ErrNotStarted
	}
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	tabCtx, tabCancel := chromedp.NewContext(c.allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			slog.Debug(fmt.Sprintf(format, args...))
		}),
	)
	defer tabCancel()
	// The tab must also stop when the request does.
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	doc := wrapDocument(title, html)
	var pdf []byte
	err := chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, doc).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(mmToInches(paperWidthMM)).
				WithPaperHeight(mmToInches(paperHeightMM)).
				WithMarginTop(mmToInches(marginMM)).
				WithMarginBottom(mmToInches(marginMM)).
				WithMarginLeft(mmToInches(marginMM)).
				WithMarginRight(mmToInches(marginMM)).
				WithPreferCSSPageSize(true).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = data
			return nil
		}),
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %v", ErrTimeout, c.timeout)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.ErrorContext(ctx, "chromedp rendering failed", "error", err)
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	if len(pdf) == 0 {
		return nil, ErrEmptyPDF
	}
	slog.InfoContext(ctx, "pdf rendered", "title", title, "bytes", len(pdf), "duration", time.Since(start))
	return pdf, nil
}

func (c *Chrome) Close() error {
	if c.allocCancel != nil {
		c.allocCancel()
	}
	return nil
}

// wrapDocument returns html untouched when it is already a full document,
// and otherwise wraps it in a right-to-left Arabic page.
func wrapDocument(title, html string) string {
	lower := strings.ToLower(html)
	if strings.Contains(lower, "<!doctype") || strings.Contains(lower, "<html") {
		return html
	}
	var buf bytes.Buffer
	buf.WriteString(`<!DOCTYPE html><html lang="ar" dir="rtl"><head><meta charset="UTF-8">`)
	if title != "" {
		buf.WriteString("<title>")
		buf.WriteString(escapeText(title))
		buf.WriteString("</title>")
	}
	buf.WriteString("</head><body>")
	buf.WriteString(html)
	buf.WriteString("</body></html>")
	return buf.String()
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeText(s string) string { return textEscaper.Replace(s) }

func mmToInches(mm float64) float64 {
	return mm / 25.4
}
