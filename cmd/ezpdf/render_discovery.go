package main

import (
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/alnah/go-ezpdf/internal/fileutil"
)

// inputKind tells renderFile how to load a job.
type inputKind int

const (
	inputFile inputKind = iota
	inputURL
	inputStdin
)

// stdinArg is the positional argument that reads the document from stdin.
const stdinArg = "-"

// Supported file extensions.
var (
	htmlExtensions     = []string{".html", ".htm"}
	markdownExtensions = []string{".md", ".markdown"}
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// renderJob is a single document to render.
type renderJob struct {
	Input      string // file path, URL, or "-"
	Kind       inputKind
	OutputPath string
}

// discoverJobs expands positional inputs into jobs.
// output is either a .pdf file (single input only) or a directory.
// defaultDir applies when output is empty; empty defaultDir writes next
// to each input (or to the working directory for URLs).
// With markdown set, files with any extension are accepted.
func discoverJobs(inputs []string, output, defaultDir string, markdown bool) ([]renderJob, error) {
	if len(inputs) == 0 {
		return nil, ErrNoInput
	}

	outputFile := ""
	outputDir := defaultDir
	if output != "" {
		if fileutil.HasExtension(output, ".pdf") {
			outputFile = output
			outputDir = ""
		} else {
			outputDir = output
		}
	}
	if outputFile != "" && len(inputs) > 1 {
		return nil, fmt.Errorf("%w: %s is a file but %d inputs were given", ErrOutputTarget, outputFile, len(inputs))
	}

	var jobs []renderJob
	for _, input := range inputs {
		switch {
		case input == stdinArg:
			if outputFile == "" {
				return nil, fmt.Errorf("%w: reading stdin requires -o file.pdf", ErrOutputTarget)
			}
			jobs = append(jobs, renderJob{Input: input, Kind: inputStdin, OutputPath: outputFile})

		case fileutil.IsURL(input):
			out := outputFile
			if out == "" {
				out = filepath.Join(outputDir, urlOutputName(input))
			}
			jobs = append(jobs, renderJob{Input: input, Kind: inputURL, OutputPath: out})

		default:
			found, err := discoverFiles(input, outputFile, outputDir, markdown)
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, found...)
		}
	}

	if len(jobs) == 0 {
		return nil, fmt.Errorf("%w: no .html or .md files in %s", ErrNoInput, strings.Join(inputs, ", "))
	}
	return jobs, nil
}

// discoverFiles handles a single file or walks a directory recursively.
func discoverFiles(input, outputFile, outputDir string, markdown bool) ([]renderJob, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadInput, err)
	}

	if !info.IsDir() {
		if !markdown && !isSupportedFile(input) {
			return nil, fmt.Errorf("%w: %s (want .html, .htm, .md or .markdown)", ErrUnsupportedInput, input)
		}
		out := outputFile
		if out == "" {
			out = fileutil.PDFPath(input, outputDir)
		}
		return []renderJob{{Input: input, Kind: inputFile, OutputPath: out}}, nil
	}

	if outputFile != "" {
		return nil, fmt.Errorf("%w: %s is a file but %s is a directory", ErrOutputTarget, outputFile, input)
	}

	var jobs []renderJob
	err = filepath.WalkDir(input, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isSupportedFile(path) {
			return nil
		}
		jobs = append(jobs, renderJob{
			Input:      path,
			Kind:       inputFile,
			OutputPath: resolveOutputPath(path, outputDir, input),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walking %s: %v", ErrReadInput, input, err)
	}
	return jobs, nil
}

// resolveOutputPath mirrors the input tree under outputDir.
// Empty outputDir writes the PDF next to the input.
func resolveOutputPath(inputPath, outputDir, baseInputDir string) string {
	if outputDir == "" {
		return fileutil.PDFPath(inputPath, "")
	}
	rel, err := filepath.Rel(baseInputDir, inputPath)
	if err != nil {
		return fileutil.PDFPath(inputPath, outputDir)
	}
	return fileutil.PDFPath(filepath.Join(outputDir, rel), "")
}

func isSupportedFile(path string) bool {
	return fileutil.HasExtension(path, htmlExtensions...) || isMarkdownFile(path)
}

func isMarkdownFile(path string) bool {
	return fileutil.HasExtension(path, markdownExtensions...)
}

// urlOutputName derives a file name from host and path:
// https://example.com/docs/intro.html -> example.com-docs-intro.pdf
func urlOutputName(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "page.pdf"
	}

	name := u.Host + strings.TrimSuffix(u.Path, "/")
	if fileutil.HasExtension(name, htmlExtensions...) {
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	name = strings.Trim(unsafeNameChars.ReplaceAllString(name, "-"), "-.")
	if name == "" {
		name = "page"
	}
	return name + ".pdf"
}
