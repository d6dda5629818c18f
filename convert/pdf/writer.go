// Package pdf renders parsed blocks into a print ready page layout document.
package pdf

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"go.uber.org/zap"

	"mdc/config"
	"mdc/markdown"
	"mdc/utils/images"
)

const (
	pointsPerInch = 72

	paraSpacing   = 7.2  // after regular paragraphs
	blockSpacing  = 10.8 // around framed code blocks
	listIndent    = 12
	quoteIndent   = 20
	codeIndent    = 20
	tableCellPad  = 2
	tableRowExtra = 6
	tableWidth    = 6.0 * pointsPerInch
)

var pageSizes = map[string]string{
	"a4":     "A4",
	"a5":     "A5",
	"letter": "Letter",
	"legal":  "Legal",
}

// Writer flows parsed blocks onto pages with gofpdf. It implements
// markdown.Writer.
type Writer struct {
	cfg *config.DocumentConfig
	log *zap.Logger
	pdf *gofpdf.Fpdf

	family string // body font family, CJK capable when a configured font file was found

	blocks  int
	ordinal int // running ordered list counter
	imgSeq  int
}

func NewWriter(cfg *config.DocumentConfig, log *zap.Logger) *Writer {
	size, ok := pageSizes[cfg.PDF.PageSize]
	if !ok {
		size = "A4"
	}
	pdf := gofpdf.New("P", "pt", size, "")

	m := cfg.PDF.Margins
	pdf.SetMargins(m.Left, m.Top, m.Right)
	pdf.SetAutoPageBreak(true, m.Bottom)

	w := &Writer{cfg: cfg, log: log, pdf: pdf}
	w.family = w.registerBodyFont()
	pdf.AddPage()
	return w
}

// registerBodyFont loads the first configured font file that exists. The same
// file backs regular, bold and italic styles so style switches never reach an
// unmapped font. Without any usable file a built-in Latin font is used and
// non-Latin text will not render.
func (w *Writer) registerBodyFont() string {
	family := w.cfg.Fonts.Normal.PDFFamily
	for _, path := range w.cfg.PDF.FontPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		for _, style := range []string{"", "B", "I", "BI"} {
			w.pdf.AddUTF8FontFromBytes(family, style, data)
		}
		if w.pdf.Err() {
			w.log.Warn("Unable to register body font", zap.String("path", path), zap.Error(w.pdf.Error()))
			w.pdf.ClearError()
			continue
		}
		w.log.Debug("Registered body font", zap.String("path", path))
		return family
	}
	w.log.Warn("No configured body font file found, falling back to built-in latin font")
	return "helvetica"
}

// noteBlock tracks block order for leading page break suppression and resets
// the ordered list counter on anything that is not an ordered item.
func (w *Writer) noteBlock(ordered bool) (first bool) {
	first = w.blocks == 0
	w.blocks++
	if !ordered {
		w.ordinal = 0
	}
	return first
}

func (w *Writer) AddHeading(level int, text string) {
	first := w.noteBlock(false)
	fonts := &w.cfg.Fonts

	if level <= fonts.Heading.PageBreakLevel && !first {
		w.pdf.AddPage()
	}

	size := fonts.Heading.SizeFor(level)
	w.writeRuns(text, w.family, "B", size, fonts.Heading.Color)
	w.pdf.Ln(size * 1.2)

	if level <= 2 {
		pageW, _ := w.pdf.GetPageSize()
		left, _, right, _ := w.pdf.GetMargins()
		y := w.pdf.GetY() + 2
		w.pdf.SetDrawColor(fonts.Heading.Color.Ints())
		w.pdf.SetLineWidth(1)
		w.pdf.Line(left, y, pageW-right, y)
		w.pdf.Ln(8)
	} else {
		w.pdf.Ln(4)
	}
}

func (w *Writer) AddParagraph(text string, style markdown.ParagraphStyle) {
	w.noteBlock(style == markdown.StyleNumber)
	fonts := &w.cfg.Fonts

	family, fontStyle, size, color := w.family, "", fonts.Normal.Size, config.RGB{}

	indent := 0.0
	switch style {
	case markdown.StyleBullet:
		text = "• " + text
		indent = listIndent
	case markdown.StyleNumber:
		w.ordinal++
		text = fmt.Sprintf("%d. %s", w.ordinal, text)
		indent = listIndent
	case markdown.StyleCode:
		family, size, color = fonts.Code.PDFFamily, fonts.Code.Size, fonts.Code.Color
		text = strings.ReplaceAll(text, "\t", "    ")
	}

	w.withIndent(indent, func() {
		w.writeRuns(text, family, fontStyle, size, color)
	})
	w.pdf.Ln(size * 1.4)
	if style != markdown.StyleCode {
		w.pdf.Ln(paraSpacing)
	}
}

func (w *Writer) AddQuote(text string) {
	w.noteBlock(false)

	w.withIndent(quoteIndent, func() {
		w.writeRuns(text, w.family, "", w.cfg.Fonts.Normal.Size, config.RGB{128, 128, 128})
	})
	w.pdf.Ln(w.cfg.Fonts.Normal.Size * 1.4)
	w.pdf.Ln(paraSpacing)
}

func (w *Writer) AddTable(table *markdown.Table) {
	w.noteBlock(false)
	fonts := &w.cfg.Fonts

	colW := tableWidth / float64(table.Cols)
	rowH := fonts.Normal.Size*1.4 + tableRowExtra

	w.pdf.SetLineWidth(0.5)
	w.pdf.SetDrawColor(0, 0, 0)

	for _, row := range table.Rows {
		left, _, _, _ := w.pdf.GetMargins()
		y := w.pdf.GetY()
		for c, cell := range row {
			x := left + float64(c)*colW
			w.pdf.Rect(x, y, colW, rowH, "D")
			w.pdf.SetXY(x+tableCellPad, y+tableCellPad)
			w.writeRuns(cell, w.family, "", fonts.Normal.Size, config.RGB{})
		}
		w.pdf.SetY(y + rowH)
	}
	w.pdf.Ln(paraSpacing)
}

func (w *Writer) AddImage(image *markdown.Image) {
	w.noteBlock(false)

	prep, err := images.Prepare(image.Data, w.cfg.Images.MaxWidth)
	if err != nil {
		w.log.Warn("Unable to embed image, inserting placeholder", zap.String("path", image.Path), zap.Error(err))
		w.AddParagraph("[Image insertion failed]", markdown.StyleDefault)
		return
	}

	w.imgSeq++
	name := fmt.Sprintf("img%d", w.imgSeq)
	w.pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(prep.Data))
	if w.pdf.Err() {
		w.log.Warn("Unable to embed image, inserting placeholder", zap.Error(w.pdf.Error()))
		w.pdf.ClearError()
		w.AddParagraph("[Image insertion failed]", markdown.StyleDefault)
		return
	}

	dispW := image.Width * pointsPerInch
	dispH := dispW * float64(prep.Height) / float64(prep.Width)

	left, _, _, _ := w.pdf.GetMargins()
	w.pdf.ImageOptions(name, left, w.pdf.GetY(), dispW, dispH, true, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	w.pdf.Ln(pointsPerInch * 0.2)
}

func (w *Writer) AddCodeBlock(lines []string) {
	if len(lines) == 0 {
		return
	}
	w.noteBlock(false)
	code := &w.cfg.Fonts.Code

	lineH := code.Size * 1.4

	w.pdf.SetFont(code.PDFFamily, "", code.Size)
	w.pdf.SetTextColor(code.Color.Ints())
	w.pdf.SetFillColor(245, 245, 245) // whitesmoke
	w.pdf.SetDrawColor(0, 0, 0)
	w.pdf.SetLineWidth(0.5)

	w.pdf.Ln(blockSpacing)
	w.withIndent(codeIndent, func() {
		for i, line := range lines {
			border := "LR"
			if i == 0 {
				border += "T"
			}
			if i == len(lines)-1 {
				border += "B"
			}
			w.pdf.CellFormat(0, lineH, strings.ReplaceAll(line, "\t", "    "), border, 1, "L", true, 0, "")
		}
	})
	w.pdf.Ln(blockSpacing)
}

func (w *Writer) AddPageBreak() {
	w.noteBlock(false)
	w.pdf.AddPage()
}

// Save renders the accumulated pages into a temporary file and moves it into
// place only on success.
func (w *Writer) Save(outputPath string) error {
	w.log.Info("Generating PDF", zap.String("output", outputPath), zap.Int("blocks", w.blocks))

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	f, err := os.CreateTemp(filepath.Dir(outputPath), ".mdc-*.pdf")
	if err != nil {
		return fmt.Errorf("unable to create output file: %w", err)
	}
	tmpName := f.Name()
	f.Close()
	defer os.Remove(tmpName)

	if err := w.pdf.OutputFileAndClose(tmpName); err != nil {
		return fmt.Errorf("unable to render pdf: %w", err)
	}
	if err := os.Rename(tmpName, outputPath); err != nil {
		return fmt.Errorf("unable to finalize output file: %w", err)
	}
	return nil
}

// writeRuns resolves inline markup and flows the runs at the current
// position. Bold spans switch to the bold style and the emphasis color, hard
// breaks advance to a fresh line.
func (w *Writer) writeRuns(text, family, fontStyle string, size float64, color config.RGB) {
	lineH := size * 1.4
	for _, run := range markdown.ParseInline(text) {
		style, c := fontStyle, color
		if run.Bold {
			style, c = "B", w.cfg.Fonts.Bold.Color
		}
		w.pdf.SetFont(family, style, size)
		w.pdf.SetTextColor(c.Ints())

		for i, segment := range strings.Split(run.Text, "\n") {
			if i > 0 {
				w.pdf.Ln(lineH)
			}
			if len(segment) > 0 {
				w.pdf.Write(lineH, segment)
			}
		}
	}
}

// withIndent shifts the left margin for the duration of fn. The flowed text
// keeps the indent across automatic line wraps this way.
func (w *Writer) withIndent(indent float64, fn func()) {
	if indent <= 0 {
		fn()
		return
	}
	left, _, _, _ := w.pdf.GetMargins()
	w.pdf.SetLeftMargin(left + indent)
	w.pdf.SetX(left + indent)
	fn()
	w.pdf.SetLeftMargin(left)
}
