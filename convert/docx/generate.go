package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/beevik/etree"
	fixzip "github.com/hidez8891/zip"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Save assembles the OOXML container and writes it to outputPath. Parts are
// written into a temporary archive next to the destination first, the result
// is moved into place only when the whole container is complete.
func (w *Writer) Save(outputPath string) (rerr error) {
	w.log.Info("Generating DOCX", zap.String("output", outputPath), zap.Int("blocks", w.blocks))

	// document.xml is finalized exactly once
	if w.body.SelectElement("w:sectPr") == nil {
		w.body.CreateElement("w:sectPr")
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	f, err := os.CreateTemp(filepath.Dir(outputPath), ".mdc-*.docx")
	if err != nil {
		return fmt.Errorf("unable to create output file: %w", err)
	}
	tmpName := f.Name()
	defer func() {
		if err := os.Remove(tmpName); err != nil && !os.IsNotExist(err) {
			rerr = multierr.Append(rerr, err)
		}
	}()
	defer f.Close()

	zw := zip.NewWriter(f)
	defer zw.Close()

	parts := []struct {
		name string
		doc  *etree.Document
	}{
		{"[Content_Types].xml", contentTypesPart(len(w.media))},
		{"_rels/.rels", packageRelsPart()},
		{"docProps/core.xml", corePropsPart()},
		{"docProps/app.xml", appPropsPart()},
		{"word/document.xml", w.doc},
		{"word/styles.xml", stylesPart(&w.cfg.Fonts)},
		{"word/numbering.xml", numberingPart()},
		{"word/_rels/document.xml.rels", documentRelsPart(len(w.media))},
	}
	for _, part := range parts {
		if err := writeXMLToZip(zw, part.name, part.doc); err != nil {
			return fmt.Errorf("unable to write %s: %w", part.name, err)
		}
	}
	for i, m := range w.media {
		if err := writeDataToZip(zw, "word/"+mediaName(i), m.Data); err != nil {
			return fmt.Errorf("unable to write image %d: %w", i+1, err)
		}
	}

	// make sure buffers are flushed before continuing
	if err := zw.Close(); err != nil {
		return fmt.Errorf("unable to close output archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("unable to finalize output file: %w", err)
	}

	if w.cfg.FixZip {
		return copyZipWithoutDataDescriptors(tmpName, outputPath)
	}
	return copyFile(tmpName, outputPath)
}

func mediaName(idx int) string {
	return fmt.Sprintf("media/image%d.png", idx+1)
}

func writeXMLToZip(zw *zip.Writer, name string, doc *etree.Document) error {
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return err
	}
	return writeDataToZip(zw, name, buf.Bytes())
}

func writeDataToZip(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// copyZipWithoutDataDescriptors rewrites the produced archive dropping zip
// data descriptors - some strict OOXML consumers refuse archives with them.
func copyZipWithoutDataDescriptors(from, to string) error {
	out, err := os.Create(to)
	if err != nil {
		return fmt.Errorf("unable to create target file (%s): %w", to, err)
	}
	defer out.Close()

	r, err := fixzip.OpenReader(from)
	if err != nil {
		return fmt.Errorf("unable to read archive file (%s): %w", from, err)
	}
	defer r.Close()

	w := fixzip.NewWriter(out)
	defer w.Close()

	for _, file := range r.File {
		// unset data descriptor flag.
		file.Flags &= ^fixzip.FlagDataDescriptor

		// copy zip entry
		if err := w.CopyFile(file); err != nil {
			return fmt.Errorf("unable to write target file (%s): %w", to, err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer sourceFile.Close()

	destinationFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer destinationFile.Close()

	if _, err = io.Copy(destinationFile, sourceFile); err != nil {
		return fmt.Errorf("failed to copy file contents: %w", err)
	}

	if err = destinationFile.Close(); err != nil {
		return fmt.Errorf("failed to close destination file: %w", err)
	}
	return nil
}
