// Package pdfinfo inspects rendered PDF documents.
package pdfinfo

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrInvalidPDF indicates the data could not be parsed as a PDF.
var ErrInvalidPDF = errors.New("invalid PDF")

func init() {
	// pdfcpu would otherwise create a config dir under the user's home.
	api.DisableConfigDir()
}

// newConfiguration returns a relaxed pdfcpu configuration: browsers emit
// valid PDFs, but strict mode rejects harmless quirks.
func newConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// PageCount returns the number of pages in data.
func PageCount(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: empty input", ErrInvalidPDF)
	}
	n, err := api.PageCount(bytes.NewReader(data), newConfiguration())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	return n, nil
}

// Validate checks that data is a well-formed PDF.
func Validate(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty input", ErrInvalidPDF)
	}
	if err := api.Validate(bytes.NewReader(data), newConfiguration()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	return nil
}
