package markdown

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// DiagramRenderer turns diagram source into image bytes. Implementations talk
// to remote services, so a call may block for a while and has to honor ctx.
type DiagramRenderer interface {
	Render(ctx context.Context, language, source string) ([]byte, error)
}

type parseState int

const (
	stateNormal parseState = iota
	stateInCodeFence
	stateInDiagramFence
)

// Options controls a single parsing pass.
type Options struct {
	// BaseDir anchors relative image references, normally the directory of
	// the source document.
	BaseDir string
	// Diagrams renders fenced diagram blocks. When nil every diagram fence
	// degrades to a code block.
	Diagrams DiagramRenderer
	// Languages lists fence info string tags routed to the diagram renderer.
	Languages []string
	// ImageWidth and DiagramWidth are in inches.
	ImageWidth   float64
	DiagramWidth float64
}

// Parser classifies input lines one by one and feeds resulting blocks to the
// writer. It is a small state machine: fenced content (code or diagram)
// suppresses all other classification, and pipe table rows accumulate on the
// side until the first line that does not belong to the table.
type Parser struct {
	w    Writer
	opts Options
	log  *zap.Logger

	state    parseState
	lang     string
	codeBuf  []string
	diagBuf  []string
	tableBuf []string
}

func NewParser(w Writer, opts Options, log *zap.Logger) *Parser {
	if opts.ImageWidth <= 0 {
		opts.ImageWidth = 5
	}
	if opts.DiagramWidth <= 0 {
		opts.DiagramWidth = 6
	}
	return &Parser{w: w, opts: opts, log: log}
}

// Parse consumes the whole input and feeds classified blocks to the writer.
// Only the reader and the diagram renderer can fail it - content problems are
// logged and degrade to placeholders instead.
func (p *Parser) Parse(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.processLine(ctx, strings.TrimRight(scanner.Text(), "\r\n"))
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("unable to read input: %w", err)
	}

	// a synthetic trailing blank line guarantees an accumulated table is
	// flushed even when input does not end with one
	p.processLine(ctx, "")

	switch p.state {
	case stateInCodeFence:
		p.log.Warn("Unterminated code fence at end of input, dropped its content")
	case stateInDiagramFence:
		p.log.Warn("Unterminated diagram fence at end of input, dropped its content")
	}
	return nil
}

func (p *Parser) processLine(ctx context.Context, raw string) {
	stripped := strings.TrimSpace(raw)

	// fences are checked before everything else so fence bodies keep lines
	// that would otherwise classify as headings, lists or table rows
	if strings.HasPrefix(stripped, "```") {
		p.handleFence(ctx, stripped)
		return
	}

	switch p.state {
	case stateInDiagramFence:
		p.diagBuf = append(p.diagBuf, raw)
		return
	case stateInCodeFence:
		p.codeBuf = append(p.codeBuf, raw)
		return
	}

	if strings.HasPrefix(stripped, "|") {
		p.tableBuf = append(p.tableBuf, stripped)
		return
	}
	p.flushTable()

	if len(stripped) == 0 {
		return
	}

	if level, text, ok := headingOf(stripped); ok {
		p.w.AddHeading(level, text)
		return
	}
	if strings.HasPrefix(stripped, "* ") || strings.HasPrefix(stripped, "- ") {
		p.w.AddParagraph(stripped[2:], StyleBullet)
		return
	}
	if isOrderedItem(stripped) {
		p.w.AddParagraph(stripped[3:], StyleNumber)
		return
	}
	if strings.HasPrefix(stripped, "> ") {
		p.w.AddQuote(stripped[2:])
		return
	}
	if target, ok := imageTarget(stripped); ok {
		p.placeImage(target)
		return
	}
	p.w.AddParagraph(stripped, StyleDefault)
}

func (p *Parser) handleFence(ctx context.Context, stripped string) {
	if lang := p.diagramTag(stripped); len(lang) > 0 {
		// a diagram tag always opens a fresh diagram fence, whatever was
		// accumulating before it is lost
		switch {
		case p.state == stateInCodeFence && len(p.codeBuf) > 0:
			p.log.Warn("Diagram fence opened inside a code fence, dropped accumulated code", zap.Int("lines", len(p.codeBuf)))
		case p.state == stateInDiagramFence && len(p.diagBuf) > 0:
			p.log.Warn("Diagram fence reopened, dropped accumulated diagram source", zap.Int("lines", len(p.diagBuf)))
		}
		p.state = stateInDiagramFence
		p.lang = lang
		p.codeBuf = nil
		p.diagBuf = nil
		return
	}

	switch p.state {
	case stateInDiagramFence:
		p.finishDiagram(ctx)
		p.state = stateNormal
	case stateInCodeFence:
		p.w.AddCodeBlock(p.codeBuf)
		p.codeBuf = nil
		p.state = stateNormal
	default:
		p.state = stateInCodeFence
		p.codeBuf = nil
	}
}

// diagramTag extracts the language tag from a fence opener when it names a
// configured diagram language. Comparison uses the first field of the info
// string, so "```mermaid theme=dark" still routes to the renderer.
func (p *Parser) diagramTag(stripped string) string {
	info := strings.TrimSpace(strings.TrimPrefix(stripped, "```"))
	if len(info) == 0 {
		return ""
	}
	lang := strings.Fields(info)[0]
	for _, l := range p.opts.Languages {
		if l == lang {
			return lang
		}
	}
	return ""
}

func (p *Parser) finishDiagram(ctx context.Context) {
	lines, lang := p.diagBuf, p.lang
	p.diagBuf, p.lang = nil, ""

	if len(lines) == 0 {
		// empty diagram produces no output at all
		return
	}
	if p.opts.Diagrams == nil {
		p.w.AddCodeBlock(lines)
		return
	}
	img, err := p.opts.Diagrams.Render(ctx, lang, strings.Join(lines, "\n"))
	if err != nil {
		p.log.Warn("Diagram rendering failed, keeping source as a code block", zap.String("language", lang), zap.Error(err))
		p.w.AddCodeBlock(lines)
		return
	}
	p.w.AddImage(&Image{Data: img, Width: p.opts.DiagramWidth})
}

func (p *Parser) flushTable() {
	if len(p.tableBuf) == 0 {
		return
	}
	rows := p.tableBuf
	p.tableBuf = nil

	if table := buildTable(rows); table != nil {
		p.w.AddTable(table)
	}
}

// isDividerRow tells if a buffered row only marks the header boundary:
// it carries the divider sequence and no real content.
func isDividerRow(row string) bool {
	if !strings.Contains(row, "---") {
		return false
	}
	for _, r := range row {
		switch r {
		case '|', '-', ':', ' ', '\t':
		default:
			return false
		}
	}
	return true
}

// splitRow cuts a buffered row on pipes dropping the empty bounding segments
// the surrounding pipes produce. Interior segments are kept as is.
func splitRow(row string) []string {
	segments := strings.Split(row, "|")
	if len(segments) > 0 && segments[0] == "" {
		segments = segments[1:]
	}
	if len(segments) > 0 && segments[len(segments)-1] == "" {
		segments = segments[:len(segments)-1]
	}
	return segments
}

// buildTable normalizes buffered pipe rows into rectangular cell data.
// Column count comes from the first non divider row, short rows are padded
// with empty cells and long ones truncated. Returns nil when nothing
// renderable is left.
func buildTable(rows []string) *Table {
	kept := make([]string, 0, len(rows))
	for _, r := range rows {
		if !isDividerRow(r) {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		return nil
	}

	cols := 0
	for _, seg := range splitRow(kept[0]) {
		if len(seg) > 0 {
			cols++
		}
	}
	if cols == 0 {
		return nil
	}

	data := make([][]string, 0, len(kept))
	for _, r := range kept {
		segments := splitRow(r)
		cells := make([]string, 0, cols)
		for _, seg := range segments {
			cells = append(cells, strings.TrimSpace(seg))
		}
		for len(cells) < cols {
			cells = append(cells, "")
		}
		data = append(data, cells[:cols])
	}
	return &Table{Rows: data, Cols: cols}
}

func headingOf(stripped string) (level int, text string, ok bool) {
	// four levels only, the fifth hash turns the line into a paragraph
	for level = 1; level <= 4; level++ {
		marker := strings.Repeat("#", level) + " "
		if strings.HasPrefix(stripped, marker) {
			return level, stripped[len(marker):], true
		}
	}
	return 0, "", false
}

func isOrderedItem(stripped string) bool {
	// single digit markers only, "10. item" stays a plain paragraph
	return len(stripped) >= 3 && stripped[0] >= '0' && stripped[0] <= '9' && stripped[1] == '.' && stripped[2] == ' '
}

var imageRe = regexp.MustCompile(`^!\[(.*?)\]\((.*?)\)`)

func imageTarget(stripped string) (string, bool) {
	if !strings.HasPrefix(stripped, "![") || !strings.Contains(stripped, "](") || !strings.HasSuffix(stripped, ")") {
		return "", false
	}
	m := imageRe.FindStringSubmatch(stripped)
	if m == nil {
		return "", false
	}
	return m[2], true
}

func (p *Parser) placeImage(target string) {
	path := target
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.opts.BaseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		p.log.Warn("Referenced image cannot be read", zap.String("image", path), zap.Error(err))
		p.w.AddParagraph(fmt.Sprintf("[Image not found: %s]", path), StyleDefault)
		return
	}
	p.w.AddImage(&Image{Path: path, Data: data, Width: p.opts.ImageWidth})
}
