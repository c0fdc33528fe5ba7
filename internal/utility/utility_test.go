package utility

import (
	"regexp"
	"strconv"
	"testing"
)

func TestRandomColorHex_Format(t *testing.T) {
	hexPattern := regexp.MustCompile(`^#[0-9a-f]{6}$`)

	for i := 0; i < 100; i++ {
		color := RandomColorHex()
		if !hexPattern.MatchString(color) {
			t.Errorf("RandomColorHex() = %q, want matching #rrggbb pattern", color)
		}
	}
}

func TestRandomColorHex_ComponentsInRange(t *testing.T) {
	// Each RGB component should land between 4 and 251
	for i := 0; i < 100; i++ {
		color := RandomColorHex()
		for c := 0; c < 3; c++ {
			v, err := strconv.ParseUint(color[1+2*c:3+2*c], 16, 8)
			if err != nil {
				t.Fatalf("parsing %q: %v", color, err)
			}
			if v < 4 || v > 251 {
				t.Errorf("component %d of %q = %d, want 4..251", c, color, v)
			}
		}
	}
}
