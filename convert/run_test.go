package convert

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"mdc/common"
	"mdc/config"
	"mdc/state"
)

const sampleDocument = `# Report

First paragraph with **bold** text.

- bullet one
- bullet two

> quoted line

| Name | Value |
|------|-------|
| a    | 1     |

` + "```go\nfunc main() {}\n```\n"

func testContext(t *testing.T) context.Context {
	t.Helper()

	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)

	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	// no network in tests
	cfg.Diagrams.Languages = nil

	env.Cfg = cfg
	env.Log = zaptest.NewLogger(t)
	return ctx
}

func writeSample(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestProcessDocumentDocx(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()

	src := writeSample(t, dir, "report.md", sampleDocument)
	dst := filepath.Join(dir, "report.docx")

	env := state.EnvFromContext(ctx)
	if err := processDocument(ctx, src, dst, common.OutputFmtDocx, env.Log); err != nil {
		t.Fatalf("processDocument() error = %v", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("output was not produced: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Error("output does not look like a zip container")
	}
}

func TestProcessDocumentPdf(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()

	src := writeSample(t, dir, "report.md", sampleDocument)
	dst := filepath.Join(dir, "report.pdf")

	env := state.EnvFromContext(ctx)
	if err := processDocument(ctx, src, dst, common.OutputFmtPdf, env.Log); err != nil {
		t.Fatalf("processDocument() error = %v", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("output was not produced: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Error("output does not look like a PDF document")
	}
}

func TestProcessDocumentBOM(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()

	src := writeSample(t, dir, "bom.md", "\xEF\xBB\xBF# Title\n\ntext\n")
	dst := filepath.Join(dir, "bom.docx")

	env := state.EnvFromContext(ctx)
	if err := processDocument(ctx, src, dst, common.OutputFmtDocx, env.Log); err != nil {
		t.Fatalf("processDocument() error = %v", err)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Fatalf("output was not produced: %v", err)
	}
}

func TestProcessDocumentOverwrite(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()

	src := writeSample(t, dir, "report.md", "plain paragraph\n")
	dst := writeSample(t, dir, "report.docx", "already here")

	env := state.EnvFromContext(ctx)

	err := processDocument(ctx, src, dst, common.OutputFmtDocx, env.Log)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected existing file error, got %v", err)
	}

	env.Overwrite = true
	if err := processDocument(ctx, src, dst, common.OutputFmtDocx, env.Log); err != nil {
		t.Fatalf("processDocument() with overwrite error = %v", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Error("existing file was not replaced with a document")
	}
}

func TestSelectReader(t *testing.T) {
	cases := []struct {
		name  string
		input []byte
	}{
		{"plain", []byte("# Title\n")},
		{"utf8 bom", []byte("\xEF\xBB\xBF# Title\n")},
		{"utf16le bom", []byte{0xFF, 0xFE, '#', 0, ' ', 0, 'T', 0, 'i', 0, 't', 0, 'l', 0, 'e', 0, '\n', 0}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var buf bytes.Buffer
			if _, err := buf.ReadFrom(selectReader(bytes.NewReader(c.input))); err != nil {
				t.Fatal(err)
			}
			if got := buf.String(); got != "# Title\n" {
				t.Errorf("decoded %q", got)
			}
		})
	}
}

func TestPickFormat(t *testing.T) {
	cases := []struct {
		name string
		flag bool
		dst  string
		want common.OutputFmt
	}{
		{"default", false, "", common.OutputFmtDocx},
		{"docx destination", false, "/tmp/out.docx", common.OutputFmtDocx},
		{"pdf destination", false, "/tmp/out.pdf", common.OutputFmtPdf},
		{"pdf destination upper", false, "/tmp/OUT.PDF", common.OutputFmtPdf},
		{"flag wins", true, "/tmp/out.docx", common.OutputFmtPdf},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := pickFormat(c.flag, c.dst); got != c.want {
				t.Errorf("pickFormat(%v, %q) = %v, want %v", c.flag, c.dst, got, c.want)
			}
		})
	}
}

func TestRunIDUnique(t *testing.T) {
	a, b := runID(), runID()
	if a == b {
		t.Error("run ids are not unique")
	}
	if len(a) != 36 {
		t.Errorf("unexpected id shape %q", a)
	}
}
