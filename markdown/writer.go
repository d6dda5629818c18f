// Package markdown implements the line oriented reader for Markdown sources
// and the writer contract rendering backends have to satisfy.
package markdown

// ParagraphStyle selects one of the named paragraph flavors writers know how
// to render.
type ParagraphStyle int

const (
	StyleDefault ParagraphStyle = iota
	StyleBullet
	StyleNumber
	StyleCode
)

// Run is a stretch of paragraph text rendered with uniform attributes. Text
// may contain newlines - backends must turn those into hard line breaks.
type Run struct {
	Text string
	Bold bool
}

// Table is rectangular cell data, normalized to Cols cells per row.
type Table struct {
	Rows [][]string
	Cols int
}

// Image is a picture to embed, loaded from a file or received from the
// diagram rendering service. Width is in inches.
type Image struct {
	Path  string
	Data  []byte
	Width float64
}

// Writer is the rendering side of a conversion. One Writer builds exactly one
// document, fed block by block in document order, and is not safe for
// concurrent use. Content problems (a picture that cannot be decoded and the
// likes) never fail the document - backends degrade to placeholders and the
// first real error surfaces from Save.
type Writer interface {
	AddHeading(level int, text string)
	AddParagraph(text string, style ParagraphStyle)
	AddQuote(text string)
	AddTable(table *Table)
	AddImage(image *Image)
	AddCodeBlock(lines []string)
	AddPageBreak()
	Save(path string) error
}
