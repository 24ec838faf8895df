package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestPipeline_Prepare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		src          Source
		wantContains []string
		wantExcludes []string
	}{
		{
			name:         "HTML passes through",
			src:          Source{Content: "<html><head></head><body><p>hi</p></body></html>"},
			wantContains: []string{"<p>hi</p>"},
			wantExcludes: []string{"<style>", "<base"},
		},
		{
			name: "Markdown converted with highlights",
			src:  Source{Content: "# Report\n\n==urgent== item", Markdown: true},
			wantContains: []string{
				"<title>Report</title>",
				"<mark>urgent</mark>",
			},
			wantExcludes: []string{markOpen, markClose},
		},
		{
			name:         "Markdown front matter sets the title",
			src:          Source{Content: "---\ntitle: Board Pack\n---\n# Agenda", Markdown: true},
			wantContains: []string{"<title>Board Pack</title>", `<h1 id="agenda">Agenda</h1>`},
			wantExcludes: []string{"title: Board Pack"},
		},
		{
			name:         "CSS injected into head",
			src:          Source{Content: "# T", Markdown: true, CSS: "h1 { color: navy; }"},
			wantContains: []string{"<style>h1 { color: navy; }</style></head>"},
		},
		{
			name:         "base URL injected",
			src:          Source{Content: "<html><head></head><body></body></html>", BaseURL: "https://example.com/app/"},
			wantContains: []string{`<base href="https://example.com/app/">`},
		},
		{
			name:         "relative paths rewritten",
			src:          Source{Content: `<img src="img/logo.png">`, SourceDir: "docs"},
			wantContains: []string{`src="file://`},
			wantExcludes: []string{`src="img/logo.png"`},
		},
	}

	p := New()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := p.Prepare(context.Background(), tt.src)
			if err != nil {
				t.Fatalf("Prepare() error = %v", err)
			}
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("Prepare() missing %q in:\n%s", want, got)
				}
			}
			for _, exclude := range tt.wantExcludes {
				if strings.Contains(got, exclude) {
					t.Errorf("Prepare() should not contain %q in:\n%s", exclude, got)
				}
			}
		})
	}
}

func TestPipeline_Prepare_ContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Prepare(ctx, Source{Content: "# x", Markdown: true})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Prepare() error = %v, want context.Canceled", err)
	}
}

type failingConverter struct{}

func (failingConverter) ToHTML(ctx context.Context, doc MarkdownDoc) (string, error) {
	return "", ErrHTMLConversion
}

func TestPipeline_Prepare_ConversionError(t *testing.T) {
	t.Parallel()

	p := New()
	p.converter = failingConverter{}

	_, err := p.Prepare(context.Background(), Source{Content: "# x", Markdown: true})
	if !errors.Is(err, ErrHTMLConversion) {
		t.Errorf("Prepare() error = %v, want ErrHTMLConversion", err)
	}
}
