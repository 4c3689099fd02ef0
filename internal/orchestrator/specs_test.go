package orchestrator

import (
	"errors"
	"testing"
)

func TestParseRenditionSpecs_default(t *testing.T) {
	specs, err := ParseRenditionSpecs(DefaultRenditions)
	if err != nil {
		t.Fatalf("ParseRenditionSpecs: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("expected 2 specs, got %d", len(specs))
	}
	if specs[0].Label != "360p" || specs[0].Size.Width != 640 || specs[0].Size.Height != 360 {
		t.Errorf("unexpected first spec %+v", specs[0])
	}
	if specs[1].Label != "720p" || specs[1].Size.Width != 1280 || specs[1].Size.Height != 720 {
		t.Errorf("unexpected second spec %+v", specs[1])
	}
}

func TestParseRenditionSpecs_preserves_order_and_whitespace(t *testing.T) {
	specs, err := ParseRenditionSpecs(" 1080p = 1920X1080 , 240p=426x240,")
	if err != nil {
		t.Fatalf("ParseRenditionSpecs: %v", err)
	}
	if len(specs) != 2 || specs[0].Label != "1080p" || specs[1].Label != "240p" {
		t.Fatalf("order not preserved: %+v", specs)
	}
	if specs[0].Size.Width != 1920 || specs[0].Size.Height != 1080 {
		t.Errorf("unexpected size %+v", specs[0].Size)
	}
}

func TestParseRenditionSpecs_errors(t *testing.T) {
	for _, in := range []string{
		"",
		"360p",
		"360p=640",
		"360p=abcx360",
		"360p=640x360,360p=1280x720",
		"../x=640x360",
		"a.b=640x360",
		"odd=641x360",
		"zero=0x360",
	} {
		if _, err := ParseRenditionSpecs(in); err == nil {
			t.Errorf("ParseRenditionSpecs(%q): expected error", in)
		}
	}
}

func TestValidateSpecs_empty(t *testing.T) {
	if err := ValidateSpecs(nil); !errors.Is(err, ErrNoRenditions) {
		t.Errorf("expected ErrNoRenditions, got %v", err)
	}
}
