package markdown

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
)

type call struct {
	op    string
	text  string
	level int
	style ParagraphStyle
	lines []string
	table *Table
	image *Image
}

// recorder captures writer calls in document order.
type recorder struct {
	calls []call
}

func (r *recorder) AddHeading(level int, text string) {
	r.calls = append(r.calls, call{op: "heading", level: level, text: text})
}

func (r *recorder) AddParagraph(text string, style ParagraphStyle) {
	r.calls = append(r.calls, call{op: "paragraph", text: text, style: style})
}

func (r *recorder) AddQuote(text string) {
	r.calls = append(r.calls, call{op: "quote", text: text})
}

func (r *recorder) AddTable(table *Table) {
	r.calls = append(r.calls, call{op: "table", table: table})
}

func (r *recorder) AddImage(image *Image) {
	r.calls = append(r.calls, call{op: "image", image: image})
}

func (r *recorder) AddCodeBlock(lines []string) {
	r.calls = append(r.calls, call{op: "code", lines: lines})
}

func (r *recorder) AddPageBreak() {
	r.calls = append(r.calls, call{op: "pagebreak"})
}

func (r *recorder) Save(string) error { return nil }

type stubRenderer struct {
	data []byte
	err  error

	language string
	source   string
}

func (s *stubRenderer) Render(_ context.Context, language, source string) ([]byte, error) {
	s.language, s.source = language, source
	return s.data, s.err
}

func parse(t *testing.T, input string, opts Options) *recorder {
	t.Helper()
	rec := &recorder{}
	p := NewParser(rec, opts, zaptest.NewLogger(t))
	if err := p.Parse(context.Background(), strings.NewReader(input)); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return rec
}

func TestClassification(t *testing.T) {
	input := strings.Join([]string{
		"# Title",
		"#### Deep",
		"##### Too deep",
		"",
		"* bullet",
		"- dash bullet",
		"3. ordered",
		"10. not ordered",
		"> quoted",
		"plain text",
	}, "\n")

	rec := parse(t, input, Options{})

	want := []call{
		{op: "heading", level: 1, text: "Title"},
		{op: "heading", level: 4, text: "Deep"},
		{op: "paragraph", text: "##### Too deep", style: StyleDefault},
		{op: "paragraph", text: "bullet", style: StyleBullet},
		{op: "paragraph", text: "dash bullet", style: StyleBullet},
		{op: "paragraph", text: "ordered", style: StyleNumber},
		{op: "paragraph", text: "10. not ordered", style: StyleDefault},
		{op: "quote", text: "quoted"},
		{op: "paragraph", text: "plain text", style: StyleDefault},
	}
	if !reflect.DeepEqual(rec.calls, want) {
		t.Errorf("calls = %+v, want %+v", rec.calls, want)
	}
}

func TestCodeFence(t *testing.T) {
	t.Run("suppresses classification", func(t *testing.T) {
		rec := parse(t, "```go\n# not a heading\n  indented\n```\nafter\n", Options{})
		want := []call{
			{op: "code", lines: []string{"# not a heading", "  indented"}},
			{op: "paragraph", text: "after", style: StyleDefault},
		}
		if !reflect.DeepEqual(rec.calls, want) {
			t.Errorf("calls = %+v, want %+v", rec.calls, want)
		}
	})

	t.Run("unterminated content is dropped", func(t *testing.T) {
		rec := parse(t, "before\n```\nlost line\n", Options{})
		if len(rec.calls) != 1 || rec.calls[0].text != "before" {
			t.Errorf("calls = %+v, want only the paragraph before the fence", rec.calls)
		}
	})
}

func TestTables(t *testing.T) {
	t.Run("divider and normalization", func(t *testing.T) {
		input := "| Name | Value |\n|------|-------|\n| a |\n| b | 2 | extra |\n"
		rec := parse(t, input, Options{})
		if len(rec.calls) != 1 || rec.calls[0].op != "table" {
			t.Fatalf("calls = %+v, want one table", rec.calls)
		}
		table := rec.calls[0].table
		if table.Cols != 2 {
			t.Errorf("Cols = %d, want 2", table.Cols)
		}
		want := [][]string{{"Name", "Value"}, {"a", ""}, {"b", "2"}}
		if !reflect.DeepEqual(table.Rows, want) {
			t.Errorf("Rows = %v, want %v", table.Rows, want)
		}
	})

	t.Run("flushed at end of input", func(t *testing.T) {
		rec := parse(t, "| a | b |", Options{})
		if len(rec.calls) != 1 || rec.calls[0].op != "table" {
			t.Errorf("calls = %+v, want one table", rec.calls)
		}
	})

	t.Run("interrupted by text", func(t *testing.T) {
		rec := parse(t, "| a | b |\nplain\n", Options{})
		if len(rec.calls) != 2 || rec.calls[0].op != "table" || rec.calls[1].op != "paragraph" {
			t.Errorf("calls = %+v, want table then paragraph", rec.calls)
		}
	})

	t.Run("dividers only", func(t *testing.T) {
		rec := parse(t, "|---|---|\n", Options{})
		if len(rec.calls) != 0 {
			t.Errorf("calls = %+v, want none", rec.calls)
		}
	})
}

func TestImages(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "pic.png"), []byte("fake image bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Run("relative path resolved against base dir", func(t *testing.T) {
		rec := parse(t, "![alt](pic.png)\n", Options{BaseDir: dir})
		if len(rec.calls) != 1 || rec.calls[0].op != "image" {
			t.Fatalf("calls = %+v, want one image", rec.calls)
		}
		img := rec.calls[0].image
		if img.Path != filepath.Join(dir, "pic.png") {
			t.Errorf("Path = %q", img.Path)
		}
		if string(img.Data) != "fake image bytes" {
			t.Errorf("Data = %q", img.Data)
		}
		if img.Width != 5 {
			t.Errorf("Width = %f, want default 5", img.Width)
		}
	})

	t.Run("missing file becomes placeholder", func(t *testing.T) {
		rec := parse(t, "![alt](nope.png)\n", Options{BaseDir: dir})
		if len(rec.calls) != 1 || rec.calls[0].op != "paragraph" {
			t.Fatalf("calls = %+v, want one paragraph", rec.calls)
		}
		if !strings.HasPrefix(rec.calls[0].text, "[Image not found: ") {
			t.Errorf("text = %q", rec.calls[0].text)
		}
	})
}

func TestDiagrams(t *testing.T) {
	input := "```mermaid\ngraph TD\nA-->B\n```\n"

	t.Run("rendered into an image", func(t *testing.T) {
		renderer := &stubRenderer{data: []byte("png bytes")}
		rec := parse(t, input, Options{Diagrams: renderer, Languages: []string{"mermaid"}, DiagramWidth: 6})
		if len(rec.calls) != 1 || rec.calls[0].op != "image" {
			t.Fatalf("calls = %+v, want one image", rec.calls)
		}
		if rec.calls[0].image.Width != 6 {
			t.Errorf("Width = %f, want 6", rec.calls[0].image.Width)
		}
		if renderer.language != "mermaid" || renderer.source != "graph TD\nA-->B" {
			t.Errorf("renderer got (%q, %q)", renderer.language, renderer.source)
		}
	})

	t.Run("renderer failure degrades to code block", func(t *testing.T) {
		renderer := &stubRenderer{err: errors.New("service down")}
		rec := parse(t, input, Options{Diagrams: renderer, Languages: []string{"mermaid"}})
		if len(rec.calls) != 1 || rec.calls[0].op != "code" {
			t.Fatalf("calls = %+v, want one code block", rec.calls)
		}
		if !reflect.DeepEqual(rec.calls[0].lines, []string{"graph TD", "A-->B"}) {
			t.Errorf("lines = %v", rec.calls[0].lines)
		}
	})

	t.Run("no renderer configured", func(t *testing.T) {
		rec := parse(t, input, Options{Languages: []string{"mermaid"}})
		if len(rec.calls) != 1 || rec.calls[0].op != "code" {
			t.Errorf("calls = %+v, want one code block", rec.calls)
		}
	})

	t.Run("unknown tag is a plain code fence", func(t *testing.T) {
		renderer := &stubRenderer{data: []byte("png bytes")}
		rec := parse(t, "```plantuml\n@startuml\n```\n", Options{Diagrams: renderer, Languages: []string{"mermaid"}})
		if len(rec.calls) != 1 || rec.calls[0].op != "code" {
			t.Errorf("calls = %+v, want one code block", rec.calls)
		}
	})

	t.Run("empty diagram produces nothing", func(t *testing.T) {
		renderer := &stubRenderer{data: []byte("png bytes")}
		rec := parse(t, "```mermaid\n```\n", Options{Diagrams: renderer, Languages: []string{"mermaid"}})
		if len(rec.calls) != 0 {
			t.Errorf("calls = %+v, want none", rec.calls)
		}
	})
}

func TestCRLFInput(t *testing.T) {
	rec := parse(t, "# Title\r\n\r\ntext\r\n", Options{})
	want := []call{
		{op: "heading", level: 1, text: "Title"},
		{op: "paragraph", text: "text", style: StyleDefault},
	}
	if !reflect.DeepEqual(rec.calls, want) {
		t.Errorf("calls = %+v, want %+v", rec.calls, want)
	}
}
