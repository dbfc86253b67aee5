package parser

import (
	"strings"
	"testing"
)

func TestTextParser_PreservesLines(t *testing.T) {
	input := "Abstract\nFirst line.\n\nIntroduction\nSecond line."
	p := &TextParser{}
	got, err := p.Extract(strings.NewReader(input), "notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != input {
		t.Errorf("expected %q, got %q", input, got)
	}
}

func TestTextParser_EmptyInput(t *testing.T) {
	p := &TextParser{}
	got, err := p.Extract(strings.NewReader(""), "empty.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty text, got %q", got)
	}
}

func TestTextParser_NormalizesCRLF(t *testing.T) {
	p := &TextParser{}
	got, err := p.Extract(strings.NewReader("Results\r\nX is 4.\r\n"), "win.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Results\nX is 4." {
		t.Errorf("expected CRLF normalized, got %q", got)
	}
}

func TestTextParser_StripsBOM(t *testing.T) {
	p := &TextParser{}
	got, err := p.Extract(strings.NewReader("\ufeffAbstract\nbody"), "bom.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(got, "Abstract") {
		t.Errorf("expected BOM stripped, got %q", got)
	}
}

func TestCSVParser_RowsAsLines(t *testing.T) {
	input := "name,score\nalpha,1\nbeta,2\n"
	p := &CSVParser{}
	got, err := p.Extract(strings.NewReader(input), "scores.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Headers: name, score\nname: alpha, score: 1\nname: beta, score: 2"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestHTMLParser_BlocksAsLines(t *testing.T) {
	input := `<html><head><title>T</title><style>p{}</style></head><body>
<nav>menu</nav>
<h1>Abstract</h1>
<p>We study X.</p>
<div>Results</div>
<ul><li>X is 4.</li></ul>
<script>var a = 1;</script>
</body></html>`
	p := &HTMLParser{}
	got, err := p.Extract(strings.NewReader(input), "paper.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Abstract\nWe study X.\nResults\nX is 4."
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestForFile(t *testing.T) {
	tests := []struct {
		filename string
		wantErr  bool
	}{
		{"paper.pdf", false},
		{"paper.PDF", false},
		{"notes.txt", false},
		{"readme.md", false},
		{"page.htm", false},
		{"data.csv", false},
		{"report.docx", false},
		{"image.png", true},
		{"noext", true},
	}
	for _, tt := range tests {
		_, err := ForFile(tt.filename, Options{})
		if (err != nil) != tt.wantErr {
			t.Errorf("ForFile(%q): expected error=%v, got %v", tt.filename, tt.wantErr, err)
		}
		if IsSupportedExtension(tt.filename) == tt.wantErr {
			t.Errorf("IsSupportedExtension(%q): expected %v", tt.filename, !tt.wantErr)
		}
	}
}

func TestExtractText_Dispatches(t *testing.T) {
	got, err := ExtractText(strings.NewReader("Conclusion\ndone"), "a.txt", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Conclusion\ndone" {
		t.Errorf("expected text passthrough, got %q", got)
	}

	if _, err := ExtractText(strings.NewReader("x"), "a.exe", Options{}); err == nil {
		t.Error("expected error for unsupported extension")
	}
}
