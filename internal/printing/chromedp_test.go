package printing

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestWrapDocument(t *testing.T) {
	full := "<!DOCTYPE html><html><body>x</body></html>"
	if got := wrapDocument("t", full); got != full {
		t.Errorf("full document was rewritten: %q", got)
	}

	got := wrapDocument("كشف <المنيا>", "<table></table>")
	if !strings.HasPrefix(got, "<!DOCTYPE html>") {
		t.Errorf("missing doctype: %q", got)
	}
	if !strings.Contains(got, `dir="rtl"`) {
		t.Error("wrapped document is not right-to-left")
	}
	if !strings.Contains(got, "<title>كشف &lt;المنيا&gt;</title>") {
		t.Errorf("title not escaped: %q", got)
	}
	if !strings.Contains(got, "<body><table></table></body>") {
		t.Errorf("body missing: %q", got)
	}
}

func TestMMToInches(t *testing.T) {
	if got := mmToInches(25.4); got != 1 {
		t.Errorf("mmToInches(25.4) = %v, want 1", got)
	}
	if got := mmToInches(paperWidthMM); math.Abs(got-8.2677) > 0.001 {
		t.Errorf("A4 width = %v inches", got)
	}
}

func TestChrome_PDF_EmptyHTML(t *testing.T) {
	c := NewChrome(Config{})
	defer c.Close()

	if _, err := c.PDF(context.Background(), "t", "   "); !errors.Is(err, ErrEmptyHTML) {
		t.Fatalf("PDF(blank) error = %v, want ErrEmptyHTML", err)
	}
}

func TestChrome_PDF_AfterClose(t *testing.T) {
	c := NewChrome(Config{})
	c.Close()

	if _, err := c.PDF(context.Background(), "t", "<p>x</p>"); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("PDF after Close error = %v, want ErrNotStarted", err)
	}
}

func TestNewChrome_DefaultTimeout(t *testing.T) {
	c := NewChrome(Config{})
	defer c.Close()
	if c.timeout != defaultTimeout {
		t.Errorf("timeout = %v, want %v", c.timeout, defaultTimeout)
	}
}
