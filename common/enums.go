// Enumerations live in their own package so that both configuration and
// converters could use them without creating an import loop.
package common

// Specification of requested output type.
// ENUM(docx, pdf)
type OutputFmt int

func (o OutputFmt) Ext() string {
	switch o {
	case OutputFmtDocx:
		return ".docx"
	case OutputFmtPdf:
		return ".pdf"
	default:
		// this should never happen
		panic("unsupported format requested")
	}
}
