package ezpdf

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Page size constants.
const (
	PageSizeLetter = "letter"
	PageSizeLegal  = "legal"
	PageSizeA3     = "a3"
	PageSizeA4     = "a4"
	PageSizeA5     = "a5"
)

// Orientation constants.
const (
	OrientationPortrait  = "portrait"
	OrientationLandscape = "landscape"
)

// Margin bounds in inches.
const (
	MinMargin     = 0.0
	MaxMargin     = 3.0
	DefaultMargin = "0.5in"
)

// pageSizesInches maps page size names to width x height (portrait).
var pageSizesInches = map[string]struct {
	width  float64
	height float64
}{
	PageSizeLetter: {width: 8.5, height: 11},
	PageSizeLegal:  {width: 8.5, height: 14},
	PageSizeA3:     {width: 11.69, height: 16.54},
	PageSizeA4:     {width: 8.27, height: 11.69},
	PageSizeA5:     {width: 5.83, height: 8.27},
}

var lengthPattern = regexp.MustCompile(`^\s*([0-9]+(?:\.[0-9]+)?)\s*([a-zA-Z]*)\s*$`)

// PageSettings is a convenience builder for common PDFOptions.
type PageSettings struct {
	Size            string // "letter", "legal", "a3", "a4", "a5"
	Orientation     string // "portrait", "landscape"
	Margin          string // applied to all sides: "0.5in", "10mm", "1cm", "36pt", "48px"
	PrintBackground bool
}

// DefaultPageSettings returns US Letter portrait with half-inch margins.
func DefaultPageSettings() *PageSettings {
	return &PageSettings{
		Size:            PageSizeLetter,
		Orientation:     OrientationPortrait,
		Margin:          DefaultMargin,
		PrintBackground: true,
	}
}

// Validate checks that page settings are valid.
// Returns nil if p is nil (nil means use defaults).
// Empty fields are valid and fall back to defaults.
func (p *PageSettings) Validate() error {
	if p == nil {
		return nil
	}

	if p.Size != "" {
		if _, ok := pageSizesInches[strings.ToLower(p.Size)]; !ok {
			return fmt.Errorf("%w: %q", ErrInvalidPageSize, p.Size)
		}
	}

	switch strings.ToLower(p.Orientation) {
	case "", OrientationPortrait, OrientationLandscape:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOrientation, p.Orientation)
	}

	if p.Margin != "" {
		margin, err := ParseLength(p.Margin)
		if err != nil {
			return err
		}
		if margin < MinMargin || margin > MaxMargin {
			return fmt.Errorf("%w: %s (must be between %.2fin and %.2fin)", ErrInvalidMargin, p.Margin, MinMargin, MaxMargin)
		}
	}

	return nil
}

// ToPDFOptions converts the settings to print options.
// A nil receiver yields DefaultPageSettings.
func (p *PageSettings) ToPDFOptions() (*PDFOptions, error) {
	if p == nil {
		p = DefaultPageSettings()
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	size := pageSizesInches[PageSizeLetter]
	if p.Size != "" {
		size = pageSizesInches[strings.ToLower(p.Size)]
	}

	margin, err := ParseLength(DefaultMargin)
	if err != nil {
		return nil, err
	}
	if p.Margin != "" {
		if margin, err = ParseLength(p.Margin); err != nil {
			return nil, err
		}
	}

	return &PDFOptions{
		Landscape:       strings.EqualFold(p.Orientation, OrientationLandscape),
		PrintBackground: p.PrintBackground,
		PaperWidth:      floatPtr(size.width),
		PaperHeight:     floatPtr(size.height),
		MarginTop:       floatPtr(margin),
		MarginBottom:    floatPtr(margin),
		MarginLeft:      floatPtr(margin),
		MarginRight:     floatPtr(margin),
	}, nil
}

// ParseLength converts a CSS-like length to inches.
// A bare number is taken as inches.
func ParseLength(value string) (float64, error) {
	matches := lengthPattern.FindStringSubmatch(value)
	if len(matches) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMargin, value)
	}

	amount, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidMargin, value, err)
	}

	switch unit := strings.ToLower(matches[2]); unit {
	case "", "in":
		return amount, nil
	case "cm":
		return amount / 2.54, nil
	case "mm":
		return amount / 25.4, nil
	case "pt":
		return amount / 72.0, nil
	case "px":
		return amount / 96.0, nil
	default:
		return 0, fmt.Errorf("%w: unsupported unit %q", ErrInvalidMargin, unit)
	}
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}
