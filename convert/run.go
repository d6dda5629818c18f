package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"mdc/common"
	"mdc/convert/docx"
	"mdc/convert/pdf"
	"mdc/diagram"
	"mdc/markdown"
	"mdc/state"
)

// Run is the main CLI action - it validates command line arguments, decides on
// the output format and destination and drives a single document conversion.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	// environment is not initialized on an empty command line, check before
	// touching the logger
	src := cmd.Args().Get(0)
	if len(src) == 0 {
		_ = cli.ShowAppHelp(cmd)
		return errors.New("no input document has been specified")
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("convert")
	src, err = filepath.Abs(src)
	if err != nil {
		return err
	}
	fi, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("unable to access input document (%s): %w", src, err)
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("input is not a regular file (%s)", src)
	}

	dst := cmd.Args().Get(1)
	if len(dst) > 0 {
		if dst, err = filepath.Abs(dst); err != nil {
			return err
		}
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Mailformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	format := pickFormat(cmd.Bool("pdf"), dst)

	env.Overwrite = cmd.Bool("overwrite")

	return processDocument(ctx, src, buildOutputPath(src, dst, format, env), format, log)
}

// pickFormat decides the output format: the flag wins, then a destination
// with the pdf extension, everything else produces docx.
func pickFormat(pdfFlag bool, dst string) common.OutputFmt {
	if pdfFlag || strings.EqualFold(filepath.Ext(dst), common.OutputFmtPdf.Ext()) {
		return common.OutputFmtPdf
	}
	return common.OutputFmtDocx
}

// processDocument handles the core conversion logic independently of CLI
// framework. Here output format and destination path are final.
func processDocument(ctx context.Context, src, dst string, format common.OutputFmt, log *zap.Logger) (rerr error) {
	env := state.EnvFromContext(ctx)

	refID := runID()

	log.Info("Conversion starting", zap.String("from", src), zap.Stringer("format", format), zap.String("ref_id", refID))
	defer func(start time.Time) {
		// NOTE: some of golang graphic processing libraries are not mature
		// enough, a single bad document must not take the program down.
		if r := recover(); r != nil {
			log.Error("Conversion ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("to", dst), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("conversion panic: %v", r)
		} else if rerr == nil {
			log.Info("Conversion completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", dst), zap.String("ref_id", refID))
		}
	}(time.Now())

	env.Rpt.Store(fmt.Sprintf("source-%s%s", refID, filepath.Ext(src)), src)

	file, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("unable to open input document (%s): %w", src, err)
	}
	defer file.Close()

	// Check if output file already exists
	if _, err := os.Stat(dst); err == nil {
		if !env.Overwrite {
			return fmt.Errorf("output file already exists: %s", dst)
		}
		log.Warn("Overwriting existing file", zap.String("file", dst))
		if err = os.Remove(dst); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	} else if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	var w markdown.Writer
	switch format {
	case common.OutputFmtPdf:
		w = pdf.NewWriter(&env.Cfg.Document, env.Log.Named("pdf"))
	default:
		w = docx.NewWriter(&env.Cfg.Document, env.Log.Named("docx"))
	}

	var renderer markdown.DiagramRenderer
	if len(env.Cfg.Diagrams.Languages) > 0 {
		renderer = diagram.NewKroki(&env.Cfg.Diagrams, env.Rpt, env.Log.Named("diagram"))
	}

	p := markdown.NewParser(w, markdown.Options{
		BaseDir:      filepath.Dir(src),
		Diagrams:     renderer,
		Languages:    env.Cfg.Diagrams.Languages,
		ImageWidth:   env.Cfg.Document.Images.DefaultWidth,
		DiagramWidth: env.Cfg.Document.Images.DiagramWidth,
	}, env.Log.Named("parser"))

	if err := p.Parse(ctx, selectReader(file)); err != nil {
		return fmt.Errorf("unable to parse input document (%s): %w", src, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := w.Save(dst); err != nil {
		return fmt.Errorf("unable to generate output: %w", err)
	}

	// Store conversion result for debugging
	env.Rpt.Store(fmt.Sprintf("result-%s%s", refID, format.Ext()), dst)

	return nil
}

// selectReader hides input encoding details - UTF-8 BOM is stripped and
// UTF-16 input with BOM is decoded transparently.
func selectReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// runID tags a single conversion in logs and debug report. V7 keeps ids
// sortable by time when many documents are processed.
func runID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
