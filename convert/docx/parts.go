package docx

import (
	"time"

	"github.com/beevik/etree"

	"mdc/config"
	"mdc/misc"
)

const (
	relNS      = "http://schemas.openxmlformats.org/package/2006/relationships"
	docRelNS   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	wordMLNS   = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	ctNS       = "http://schemas.openxmlformats.org/package/2006/content-types"
	corePropNS = "http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
)

func newXMLDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	return doc
}

func contentTypesPart(mediaCount int) *etree.Document {
	doc := newXMLDocument()
	types := doc.CreateElement("Types")
	types.CreateAttr("xmlns", ctNS)

	for ext, ct := range map[string]string{
		"rels": "application/vnd.openxmlformats-package.relationships+xml",
		"xml":  "application/xml",
	} {
		def := types.CreateElement("Default")
		def.CreateAttr("Extension", ext)
		def.CreateAttr("ContentType", ct)
	}
	if mediaCount > 0 {
		def := types.CreateElement("Default")
		def.CreateAttr("Extension", "png")
		def.CreateAttr("ContentType", "image/png")
	}

	for part, ct := range map[string]string{
		"/word/document.xml":  "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml",
		"/word/styles.xml":    "application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml",
		"/word/numbering.xml": "application/vnd.openxmlformats-officedocument.wordprocessingml.numbering+xml",
		"/docProps/core.xml":  "application/vnd.openxmlformats-package.core-properties+xml",
		"/docProps/app.xml":   "application/vnd.openxmlformats-officedocument.extended-properties+xml",
	} {
		ov := types.CreateElement("Override")
		ov.CreateAttr("PartName", part)
		ov.CreateAttr("ContentType", ct)
	}
	return doc
}

func addRelationship(parent *etree.Element, id, relType, target string) {
	rel := parent.CreateElement("Relationship")
	rel.CreateAttr("Id", id)
	rel.CreateAttr("Type", relType)
	rel.CreateAttr("Target", target)
}

func packageRelsPart() *etree.Document {
	doc := newXMLDocument()
	rels := doc.CreateElement("Relationships")
	rels.CreateAttr("xmlns", relNS)

	addRelationship(rels, "rId1", docRelNS+"/officeDocument", "word/document.xml")
	addRelationship(rels, "rId2", "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties", "docProps/core.xml")
	addRelationship(rels, "rId3", docRelNS+"/extended-properties", "docProps/app.xml")
	return doc
}

func documentRelsPart(mediaCount int) *etree.Document {
	doc := newXMLDocument()
	rels := doc.CreateElement("Relationships")
	rels.CreateAttr("xmlns", relNS)

	addRelationship(rels, "rId1", docRelNS+"/styles", "styles.xml")
	addRelationship(rels, "rId2", docRelNS+"/numbering", "numbering.xml")
	for i := 0; i < mediaCount; i++ {
		addRelationship(rels, mediaRelID(i), docRelNS+"/image", mediaName(i))
	}
	return doc
}

func corePropsPart() *etree.Document {
	doc := newXMLDocument()
	props := doc.CreateElement("cp:coreProperties")
	props.CreateAttr("xmlns:cp", corePropNS)
	props.CreateAttr("xmlns:dc", "http://purl.org/dc/elements/1.1/")
	props.CreateAttr("xmlns:dcterms", "http://purl.org/dc/terms/")
	props.CreateAttr("xmlns:xsi", "http://www.w3.org/2001/XMLSchema-instance")

	props.CreateElement("dc:creator").SetText(misc.GetAppName())

	created := props.CreateElement("dcterms:created")
	created.CreateAttr("xsi:type", "dcterms:W3CDTF")
	created.SetText(time.Now().UTC().Format("2006-01-02T15:04:05Z"))
	return doc
}

func appPropsPart() *etree.Document {
	doc := newXMLDocument()
	props := doc.CreateElement("Properties")
	props.CreateAttr("xmlns", "http://schemas.openxmlformats.org/officeDocument/2006/extended-properties")
	props.CreateElement("Application").SetText(misc.GetAppName() + " " + misc.GetVersion())
	return doc
}

// stylesPart sets document wide defaults: body font with East Asian family
// and the base point size from configuration.
func stylesPart(fonts *config.FontsConfig) *etree.Document {
	doc := newXMLDocument()
	styles := doc.CreateElement("w:styles")
	styles.CreateAttr("xmlns:w", wordMLNS)

	rPr := styles.CreateElement("w:docDefaults").CreateElement("w:rPrDefault").CreateElement("w:rPr")
	rFonts := rPr.CreateElement("w:rFonts")
	rFonts.CreateAttr("w:ascii", fonts.Normal.Name)
	rFonts.CreateAttr("w:hAnsi", fonts.Normal.Name)
	if len(fonts.Normal.EastAsia) > 0 {
		rFonts.CreateAttr("w:eastAsia", fonts.Normal.EastAsia)
	}
	rPr.CreateElement("w:sz").CreateAttr("w:val", halfPoints(fonts.Normal.Size))
	rPr.CreateElement("w:szCs").CreateAttr("w:val", halfPoints(fonts.Normal.Size))

	normal := styles.CreateElement("w:style")
	normal.CreateAttr("w:type", "paragraph")
	normal.CreateAttr("w:default", "1")
	normal.CreateAttr("w:styleId", "Normal")
	normal.CreateElement("w:name").CreateAttr("w:val", "Normal")
	return doc
}

// numberingPart defines the two list flavors the writer refers to: numId 1 is
// the bullet list, numId 2 the decimal one.
func numberingPart() *etree.Document {
	doc := newXMLDocument()
	numbering := doc.CreateElement("w:numbering")
	numbering.CreateAttr("xmlns:w", wordMLNS)

	abstract := func(id, format, text string) {
		an := numbering.CreateElement("w:abstractNum")
		an.CreateAttr("w:abstractNumId", id)
		lvl := an.CreateElement("w:lvl")
		lvl.CreateAttr("w:ilvl", "0")
		lvl.CreateElement("w:start").CreateAttr("w:val", "1")
		lvl.CreateElement("w:numFmt").CreateAttr("w:val", format)
		lvl.CreateElement("w:lvlText").CreateAttr("w:val", text)
		lvl.CreateElement("w:lvlJc").CreateAttr("w:val", "left")
		ind := lvl.CreateElement("w:pPr").CreateElement("w:ind")
		ind.CreateAttr("w:left", "720")
		ind.CreateAttr("w:hanging", "360")
	}
	abstract("0", "bullet", "•")
	abstract("1", "decimal", "%1.")

	num := func(numID, abstractID string) {
		n := numbering.CreateElement("w:num")
		n.CreateAttr("w:numId", numID)
		n.CreateElement("w:abstractNumId").CreateAttr("w:val", abstractID)
	}
	num(numIDBullet, "0")
	num(numIDDecimal, "1")
	return doc
}
