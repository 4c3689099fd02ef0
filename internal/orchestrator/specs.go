package orchestrator

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"rendition-server/internal/asset"
	"rendition-server/internal/transcode"
)

// DefaultRenditions is the rendition list used when none is configured.
const DefaultRenditions = "360p=640x360,720p=1280x720"

// ErrNoRenditions is returned when a job is started with an empty spec list.
var ErrNoRenditions = errors.New("no renditions configured")

// ParseRenditionSpecs parses a comma separated list of label=WIDTHxHEIGHT
// entries, e.g. "360p=640x360,720p=1280x720". Order is preserved.
func ParseRenditionSpecs(s string) ([]RenditionSpec, error) {
	var specs []RenditionSpec
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		label, size, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("rendition %q: expected label=WIDTHxHEIGHT", entry)
		}
		w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(size)), "x")
		if !ok {
			return nil, fmt.Errorf("rendition %q: expected WIDTHxHEIGHT", entry)
		}
		width, err := strconv.Atoi(w)
		if err != nil {
			return nil, fmt.Errorf("rendition %q: width: %w", entry, err)
		}
		height, err := strconv.Atoi(h)
		if err != nil {
			return nil, fmt.Errorf("rendition %q: height: %w", entry, err)
		}

		specs = append(specs, RenditionSpec{
			Label: strings.TrimSpace(label),
			Size:  transcode.Dimensions{Width: width, Height: height},
		})
	}

	if err := ValidateSpecs(specs); err != nil {
		return nil, err
	}
	return specs, nil
}

// MustParseRenditionSpecs is ParseRenditionSpecs for static lists.
func MustParseRenditionSpecs(s string) []RenditionSpec {
	specs, err := ParseRenditionSpecs(s)
	if err != nil {
		panic(err)
	}
	return specs
}

// ValidateSpecs checks that specs is non-empty, labels are unique and usable
// as file names, and dimensions are positive and even (libx264 rejects odd
// frame sizes for 4:2:0 output).
func ValidateSpecs(specs []RenditionSpec) error {
	if len(specs) == 0 {
		return ErrNoRenditions
	}
	seen := make(map[string]struct{}, len(specs))
	for _, spec := range specs {
		if !asset.ID(spec.Label).Valid() || strings.Contains(spec.Label, ".") {
			return fmt.Errorf("rendition label %q is not a valid name", spec.Label)
		}
		if _, dup := seen[spec.Label]; dup {
			return fmt.Errorf("duplicate rendition label %q", spec.Label)
		}
		seen[spec.Label] = struct{}{}

		if spec.Size.Width <= 0 || spec.Size.Height <= 0 {
			return fmt.Errorf("rendition %q: dimensions must be positive", spec.Label)
		}
		if spec.Size.Width%2 != 0 || spec.Size.Height%2 != 0 {
			return fmt.Errorf("rendition %q: dimensions must be even", spec.Label)
		}
	}
	return nil
}
