package pdf

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"mdc/config"
	"mdc/markdown"
)

func testConfig() *config.DocumentConfig {
	return &config.DocumentConfig{
		Fonts: config.FontsConfig{
			Normal:  config.NormalFontConfig{Name: "Yu Gothic", PDFFamily: "main", Size: 10.5},
			Heading: config.HeadingFontConfig{Name: "Yu Gothic", Sizes: []float64{18, 16, 14, 12}, Color: config.RGB{31, 73, 125}, PageBreakLevel: 2},
			Bold:    config.BoldFontConfig{Color: config.RGB{192, 0, 0}},
			Code:    config.CodeFontConfig{Name: "Consolas", PDFFamily: "courier", Size: 9, Color: config.RGB{64, 64, 64}},
		},
		Images: config.ImagesConfig{DefaultWidth: 5, DiagramWidth: 6},
		PDF: config.PDFConfig{
			PageSize: "a4",
			Margins:  config.PDFMargins{Left: 72, Top: 72, Right: 72, Bottom: 18},
			// no configured font exists in the test environment, the
			// built-in fallback is used
			FontPaths: []string{filepath.Join(os.TempDir(), "no-such-font.ttf")},
		},
	}
}

func save(t *testing.T, w *Writer) []byte {
	t.Helper()

	out := filepath.Join(t.TempDir(), "out.pdf")
	if err := w.Save(out); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("unable to read produced file: %v", err)
	}
	return data
}

func TestSaveProducesPDF(t *testing.T) {
	w := NewWriter(testConfig(), zap.NewNop())
	w.AddHeading(1, "Title")
	w.AddParagraph("Hello **world** end", markdown.StyleDefault)
	w.AddQuote("a quote")
	w.AddParagraph("item", markdown.StyleBullet)
	w.AddCodeBlock([]string{"func main() {", "\tprintln(42)", "}"})
	w.AddTable(&markdown.Table{Rows: [][]string{{"A", "B"}, {"1", "2"}}, Cols: 2})

	data := save(t, w)
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Errorf("produced file does not start with a PDF signature: %q", data[:min(len(data), 8)])
	}
}

func TestFallbackFontFamily(t *testing.T) {
	w := NewWriter(testConfig(), zap.NewNop())
	if w.family != "helvetica" {
		t.Errorf("family = %q, want helvetica fallback when no configured font exists", w.family)
	}
}

func TestLeadingHeadingDoesNotBreakPage(t *testing.T) {
	w := NewWriter(testConfig(), zap.NewNop())

	w.AddHeading(1, "First")
	if got := w.pdf.PageNo(); got != 1 {
		t.Errorf("after leading heading PageNo() = %d, want 1", got)
	}

	w.AddHeading(2, "Second")
	if got := w.pdf.PageNo(); got != 2 {
		t.Errorf("after second heading PageNo() = %d, want 2", got)
	}

	// below the break level
	w.AddHeading(3, "Third")
	if got := w.pdf.PageNo(); got != 2 {
		t.Errorf("after level 3 heading PageNo() = %d, want 2", got)
	}
}

func TestOrderedCounter(t *testing.T) {
	w := NewWriter(testConfig(), zap.NewNop())

	w.AddParagraph("one", markdown.StyleNumber)
	w.AddParagraph("two", markdown.StyleNumber)
	if w.ordinal != 2 {
		t.Errorf("ordinal = %d, want 2", w.ordinal)
	}

	// any other block resets the counter
	w.AddParagraph("plain", markdown.StyleDefault)
	w.AddParagraph("one again", markdown.StyleNumber)
	if w.ordinal != 1 {
		t.Errorf("ordinal after reset = %d, want 1", w.ordinal)
	}
}

func TestBrokenImagePlaceholder(t *testing.T) {
	w := NewWriter(testConfig(), zap.NewNop())
	w.AddImage(&markdown.Image{Data: []byte("not an image"), Width: 5})

	data := save(t, w)
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Error("conversion with a broken image did not produce a document")
	}
}

func TestImage(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 10, 5))); err != nil {
		t.Fatalf("unable to encode test image: %v", err)
	}

	w := NewWriter(testConfig(), zap.NewNop())
	w.AddImage(&markdown.Image{Data: buf.Bytes(), Width: 5})

	data := save(t, w)
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Error("conversion with an image did not produce a document")
	}
}
