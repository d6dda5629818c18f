// Package docx renders parsed blocks into an OOXML word processing document.
package docx

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"mdc/config"
	"mdc/markdown"
	"mdc/utils/images"
)

// EMU per inch, the unit OOXML uses for drawing extents.
const emuPerInch = 914400

// numbering ids wired to word/numbering.xml
const (
	numIDBullet  = "1"
	numIDDecimal = "2"
)

// Writer builds word/document.xml body block by block and assembles the OOXML
// container on Save. It implements markdown.Writer.
type Writer struct {
	cfg *config.DocumentConfig
	log *zap.Logger

	doc  *etree.Document
	body *etree.Element

	media  []*images.Prepared
	blocks int
}

func NewWriter(cfg *config.DocumentConfig, log *zap.Logger) *Writer {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)

	root := doc.CreateElement("w:document")
	root.CreateAttr("xmlns:w", "http://schemas.openxmlformats.org/wordprocessingml/2006/main")
	root.CreateAttr("xmlns:r", "http://schemas.openxmlformats.org/officeDocument/2006/relationships")
	root.CreateAttr("xmlns:wp", "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing")
	root.CreateAttr("xmlns:a", "http://schemas.openxmlformats.org/drawingml/2006/main")
	root.CreateAttr("xmlns:pic", "http://schemas.openxmlformats.org/drawingml/2006/picture")

	return &Writer{
		cfg:  cfg,
		log:  log,
		doc:  doc,
		body: root.CreateElement("w:body"),
	}
}

// runProps carries character formatting for a stretch of text.
type runProps struct {
	font     string
	eastAsia string
	size     float64 // points
	color    string  // RRGGBB, empty for automatic
	bold     bool
	italic   bool
}

func (w *Writer) AddHeading(level int, text string) {
	fonts := &w.cfg.Fonts
	first := w.blocks == 0
	w.blocks++

	p := w.body.CreateElement("w:p")
	pPr := p.CreateElement("w:pPr")

	if level <= fonts.Heading.PageBreakLevel && !first {
		pPr.CreateElement("w:pageBreakBefore")
	}
	// horizontal rule below top level headings, in the heading color
	if level <= 2 {
		bottom := pPr.CreateElement("w:pBdr").CreateElement("w:bottom")
		bottom.CreateAttr("w:val", "single")
		bottom.CreateAttr("w:sz", "6")
		bottom.CreateAttr("w:space", "1")
		bottom.CreateAttr("w:color", fonts.Heading.Color.Hex())
	}

	w.appendRuns(p, text, runProps{
		font:     fonts.Heading.Name,
		eastAsia: fonts.Heading.EastAsia,
		size:     fonts.Heading.SizeFor(level),
		color:    fonts.Heading.Color.Hex(),
		bold:     true,
	})
}

func (w *Writer) AddParagraph(text string, style markdown.ParagraphStyle) {
	w.blocks++

	p := w.body.CreateElement("w:p")
	props := runProps{}

	switch style {
	case markdown.StyleBullet:
		w.applyNumbering(p, numIDBullet)
	case markdown.StyleNumber:
		w.applyNumbering(p, numIDDecimal)
	case markdown.StyleCode:
		props = w.codeRunProps()
		text = strings.ReplaceAll(text, "\t", "    ")
	}
	w.appendRuns(p, text, props)
}

func (w *Writer) AddQuote(text string) {
	w.blocks++
	w.appendRuns(w.body.CreateElement("w:p"), text, runProps{italic: true})
}

func (w *Writer) AddTable(table *markdown.Table) {
	w.blocks++

	tbl := w.body.CreateElement("w:tbl")
	tblPr := tbl.CreateElement("w:tblPr")
	addBoxBorders(tblPr.CreateElement("w:tblBorders"))

	for _, row := range table.Rows {
		tr := tbl.CreateElement("w:tr")
		for _, cell := range row {
			tc := tr.CreateElement("w:tc")
			addBoxBorders(tc.CreateElement("w:tcPr").CreateElement("w:tcBorders"))
			w.appendRuns(tc.CreateElement("w:p"), cell, runProps{})
		}
	}

	// spacer so following text does not stick to the grid
	w.body.CreateElement("w:p")
}

func (w *Writer) AddImage(image *markdown.Image) {
	w.blocks++

	prep, err := images.Prepare(image.Data, w.cfg.Images.MaxWidth)
	if err != nil {
		w.log.Warn("Unable to embed image, inserting placeholder", zap.String("path", image.Path), zap.Error(err))
		w.appendRuns(w.body.CreateElement("w:p"), "[Image insertion failed]", runProps{})
		return
	}
	w.media = append(w.media, prep)

	cx := int64(image.Width * emuPerInch)
	cy := cx * int64(prep.Height) / int64(prep.Width)

	idx := len(w.media)
	name := fmt.Sprintf("image%d", idx)

	inline := w.body.CreateElement("w:p").CreateElement("w:r").CreateElement("w:drawing").CreateElement("wp:inline")
	for _, dist := range []string{"distT", "distB", "distL", "distR"} {
		inline.CreateAttr(dist, "0")
	}

	extent := inline.CreateElement("wp:extent")
	extent.CreateAttr("cx", strconv.FormatInt(cx, 10))
	extent.CreateAttr("cy", strconv.FormatInt(cy, 10))

	docPr := inline.CreateElement("wp:docPr")
	docPr.CreateAttr("id", strconv.Itoa(idx))
	docPr.CreateAttr("name", name)

	graphic := inline.CreateElement("a:graphic")
	graphicData := graphic.CreateElement("a:graphicData")
	graphicData.CreateAttr("uri", "http://schemas.openxmlformats.org/drawingml/2006/picture")

	picEl := graphicData.CreateElement("pic:pic")

	nvPicPr := picEl.CreateElement("pic:nvPicPr")
	cNvPr := nvPicPr.CreateElement("pic:cNvPr")
	cNvPr.CreateAttr("id", strconv.Itoa(idx))
	cNvPr.CreateAttr("name", name)
	nvPicPr.CreateElement("pic:cNvPicPr")

	blipFill := picEl.CreateElement("pic:blipFill")
	blip := blipFill.CreateElement("a:blip")
	blip.CreateAttr("r:embed", mediaRelID(idx-1))
	blipFill.CreateElement("a:stretch").CreateElement("a:fillRect")

	spPr := picEl.CreateElement("pic:spPr")
	xfrm := spPr.CreateElement("a:xfrm")
	off := xfrm.CreateElement("a:off")
	off.CreateAttr("x", "0")
	off.CreateAttr("y", "0")
	ext := xfrm.CreateElement("a:ext")
	ext.CreateAttr("cx", strconv.FormatInt(cx, 10))
	ext.CreateAttr("cy", strconv.FormatInt(cy, 10))
	geom := spPr.CreateElement("a:prstGeom")
	geom.CreateAttr("prst", "rect")
	geom.CreateElement("a:avLst")
}

func (w *Writer) AddCodeBlock(lines []string) {
	if len(lines) == 0 {
		return
	}
	w.blocks++

	// a bordered single cell table frames the code the way word processors
	// cannot do with a plain paragraph
	tbl := w.body.CreateElement("w:tbl")
	tblPr := tbl.CreateElement("w:tblPr")
	tblInd := tblPr.CreateElement("w:tblInd")
	tblInd.CreateAttr("w:w", "400")
	tblInd.CreateAttr("w:type", "dxa")
	addBoxBorders(tblPr.CreateElement("w:tblBorders"))

	tc := tbl.CreateElement("w:tr").CreateElement("w:tc")
	addBoxBorders(tc.CreateElement("w:tcPr").CreateElement("w:tcBorders"))

	p := tc.CreateElement("w:p")
	spacing := p.CreateElement("w:pPr").CreateElement("w:spacing")
	spacing.CreateAttr("w:before", "40")
	spacing.CreateAttr("w:after", "40")

	props := w.codeRunProps()
	for i, line := range lines {
		r := p.CreateElement("w:r")
		applyRunProps(r, props)
		t := r.CreateElement("w:t")
		t.CreateAttr("xml:space", "preserve")
		t.SetText(strings.ReplaceAll(line, "\t", "    "))
		if i < len(lines)-1 {
			p.CreateElement("w:r").CreateElement("w:br")
		}
	}

	w.body.CreateElement("w:p")
}

func (w *Writer) AddPageBreak() {
	w.blocks++
	br := w.body.CreateElement("w:p").CreateElement("w:r").CreateElement("w:br")
	br.CreateAttr("w:type", "page")
}

func (w *Writer) codeRunProps() runProps {
	return runProps{
		font:  w.cfg.Fonts.Code.Name,
		size:  w.cfg.Fonts.Code.Size,
		color: w.cfg.Fonts.Code.Color.Hex(),
	}
}

func (w *Writer) applyNumbering(p *etree.Element, numID string) {
	numPr := p.CreateElement("w:pPr").CreateElement("w:numPr")
	numPr.CreateElement("w:ilvl").CreateAttr("w:val", "0")
	numPr.CreateElement("w:numId").CreateAttr("w:val", numID)
}

// appendRuns resolves inline markup and emits one w:r per run, mapping hard
// breaks inside run text to w:br.
func (w *Writer) appendRuns(p *etree.Element, text string, base runProps) {
	for _, run := range markdown.ParseInline(text) {
		props := base
		if run.Bold {
			props.bold = true
			if len(props.color) == 0 {
				props.color = w.cfg.Fonts.Bold.Color.Hex()
			}
		}
		for i, segment := range strings.Split(run.Text, "\n") {
			if i > 0 {
				p.CreateElement("w:r").CreateElement("w:br")
			}
			if len(segment) == 0 {
				continue
			}
			r := p.CreateElement("w:r")
			applyRunProps(r, props)
			t := r.CreateElement("w:t")
			t.CreateAttr("xml:space", "preserve")
			t.SetText(segment)
		}
	}
}

func applyRunProps(r *etree.Element, props runProps) {
	if props == (runProps{}) {
		return
	}
	rPr := r.CreateElement("w:rPr")
	if len(props.font) > 0 {
		rFonts := rPr.CreateElement("w:rFonts")
		rFonts.CreateAttr("w:ascii", props.font)
		rFonts.CreateAttr("w:hAnsi", props.font)
		if len(props.eastAsia) > 0 {
			rFonts.CreateAttr("w:eastAsia", props.eastAsia)
		}
	}
	if props.bold {
		rPr.CreateElement("w:b")
	}
	if props.italic {
		rPr.CreateElement("w:i")
	}
	if len(props.color) > 0 {
		rPr.CreateElement("w:color").CreateAttr("w:val", props.color)
	}
	if props.size > 0 {
		rPr.CreateElement("w:sz").CreateAttr("w:val", halfPoints(props.size))
	}
}

// addBoxBorders fills a w:tblBorders or w:tcBorders element with thin single
// lines on every side.
func addBoxBorders(borders *etree.Element) {
	sides := []string{"w:top", "w:left", "w:bottom", "w:right"}
	if borders.Tag == "tblBorders" {
		sides = append(sides, "w:insideH", "w:insideV")
	}
	for _, side := range sides {
		b := borders.CreateElement(side)
		b.CreateAttr("w:val", "single")
		b.CreateAttr("w:sz", "4")
	}
}

func halfPoints(points float64) string {
	return strconv.Itoa(int(points * 2))
}

func mediaRelID(idx int) string {
	return fmt.Sprintf("rIdImage%d", idx+1)
}
