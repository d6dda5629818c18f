package common

import "testing"

func TestParseOutputFmt(t *testing.T) {
	testCases := []struct {
		name    string
		want    OutputFmt
		wantErr bool
	}{
		{name: "docx", want: OutputFmtDocx},
		{name: "pdf", want: OutputFmtPdf},
		{name: "DOCX", want: OutputFmtDocx},
		{name: "Pdf", want: OutputFmtPdf},
		{name: "epub", wantErr: true},
		{name: "", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run("parse_"+tc.name, func(t *testing.T) {
			got, err := ParseOutputFmt(tc.name)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %s", tc.name, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error for %q: %v", tc.name, err)
			}
			if got != tc.want {
				t.Errorf("parsed %q to %s, want %s", tc.name, got, tc.want)
			}
		})
	}
}

func TestOutputFmtExt(t *testing.T) {
	if ext := OutputFmtDocx.Ext(); ext != ".docx" {
		t.Errorf("bad docx extension %q", ext)
	}
	if ext := OutputFmtPdf.Ext(); ext != ".pdf" {
		t.Errorf("bad pdf extension %q", ext)
	}
}

func TestMustParseOutputFmt(t *testing.T) {
	t.Run("valid value", func(t *testing.T) {
		if got := MustParseOutputFmt("pdf"); got != OutputFmtPdf {
			t.Errorf("MustParseOutputFmt(\"pdf\") = %v, want %v", got, OutputFmtPdf)
		}
	})

	t.Run("invalid value panics", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Error("MustParseOutputFmt should have panicked")
			}
		}()
		MustParseOutputFmt("markdown")
	})
}

func TestOutputFmtRoundTrip(t *testing.T) {
	for _, name := range OutputFmtNames() {
		f, err := ParseOutputFmt(name)
		if err != nil {
			t.Fatalf("unable to parse %q: %v", name, err)
		}
		if f.String() != name {
			t.Errorf("round trip %q -> %s", name, f)
		}
		if !f.IsValid() {
			t.Errorf("%s reported invalid", f)
		}
	}
	if OutputFmt(42).IsValid() {
		t.Error("out of range value reported valid")
	}
}
