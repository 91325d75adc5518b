package prompt

import (
	"strings"
	"testing"

	"github.com/kailas-cloud/okp/internal/domain/document"
)

func TestBuildContext_Empty(t *testing.T) {
	if got := BuildContext(nil, 0); got != "" {
		t.Errorf("BuildContext(nil) = %q, want empty", got)
	}
	if got := BuildContext(nil, 100); got != "" {
		t.Errorf("BuildContext(nil, 100) = %q, want empty", got)
	}
}

func TestBuildContext_FullHeader(t *testing.T) {
	docs := []document.Document{document.New(document.Fields{
		Title:        "Installing",
		Snippet:      "Run the installer",
		URLSlug:      "documentation/ocp/install",
		DocumentKind: "documentation",
		Product:      "OpenShift Container Platform",
		Version:      "4.16",
	})}

	want := "[1] Installing (documentation, OpenShift Container Platform, v4.16)\n" +
		"Run the installer\nSource: /documentation/ocp/install"
	if got := BuildContext(docs, 0); got != want {
		t.Errorf("got:\n%q\nwant:\n%q", got, want)
	}
}

func TestBuildContext_MinimalEntry(t *testing.T) {
	docs := []document.Document{document.New(document.Fields{Title: "Bare"})}
	if got := BuildContext(docs, 0); got != "[1] Bare\n" {
		t.Errorf("got %q", got)
	}
}

func TestBuildContext_SecurityAdvisory(t *testing.T) {
	tests := []struct {
		name   string
		fields document.Fields
		want   string
	}{
		{
			name: "advisory with distinct synopsis and snippet",
			fields: document.Fields{
				Title: "RHSA-2024:1", Severity: "Important", AdvisoryType: "Security Advisory",
				Synopsis: "Important: kernel update", Snippet: "fixes CVE-2024-1",
			},
			want: "[1] RHSA-2024:1 [Important]\nImportant: kernel update\nfixes CVE-2024-1",
		},
		{
			name: "advisory with identical synopsis and snippet",
			fields: document.Fields{
				Title: "RHSA-2024:2", AdvisoryType: "Security Advisory",
				Synopsis: "same", Snippet: "same",
			},
			want: "[1] RHSA-2024:2\nsame",
		},
		{
			name:   "synopsis without advisory type wins over snippet",
			fields: document.Fields{Title: "CVE", Synopsis: "syn", Snippet: "snip", Severity: "Low"},
			want:   "[1] CVE [Low]\nsyn",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := BuildContext([]document.Document{document.New(tc.fields)}, 0)
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestBuildContext_NumberingAndSeparator(t *testing.T) {
	docs := []document.Document{
		document.New(document.Fields{Title: "A", Snippet: "a"}),
		document.New(document.Fields{Title: "B", Snippet: "b"}),
	}
	if got := BuildContext(docs, 0); got != "[1] A\na\n\n[2] B\nb" {
		t.Errorf("got %q", got)
	}
}

func TestBuildContext_BudgetKeepsFirstEntry(t *testing.T) {
	docs := []document.Document{
		document.New(document.Fields{Title: "Long", Snippet: strings.Repeat("x", 200)}),
		document.New(document.Fields{Title: "Next", Snippet: "y"}),
	}
	got := BuildContext(docs, 10)
	if !strings.HasPrefix(got, "[1] Long") {
		t.Errorf("first entry must always be kept, got %q", got)
	}
	if strings.Contains(got, "[2]") {
		t.Errorf("second entry should be dropped, got %q", got)
	}
}

func TestBuildContext_BudgetGreedy(t *testing.T) {
	docs := []document.Document{
		document.New(document.Fields{Title: "A", Snippet: "a"}), // "[1] A\na" = 7 runes, cost 9
		document.New(document.Fields{Title: "B", Snippet: "b"}), // cost 9
		document.New(document.Fields{Title: "C", Snippet: "c"}), // cost 9
	}
	if got := BuildContext(docs, 18); got != "[1] A\na\n\n[2] B\nb" {
		t.Errorf("budget 18: got %q", got)
	}
	if got := BuildContext(docs, 17); got != "[1] A\na" {
		t.Errorf("budget 17: got %q", got)
	}
	if got := BuildContext(docs, 27); strings.Count(got, "\n\n") != 2 {
		t.Errorf("budget 27 should keep all three, got %q", got)
	}
}

func TestBuildContext_CountsRunes(t *testing.T) {
	docs := []document.Document{
		document.New(document.Fields{Title: "Ä", Snippet: "é"}), // 7 runes, 9 bytes
		document.New(document.Fields{Title: "B", Snippet: "b"}),
	}
	if got := BuildContext(docs, 18); !strings.Contains(got, "[2] B") {
		t.Errorf("length must be counted in characters, got %q", got)
	}
}
