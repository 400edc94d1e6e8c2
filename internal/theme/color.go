package theme

import "fmt"

// ParseHexColor parses a "#rrggbb" or "#rrggbbaa" string into a
// premultiplied Color, for the YAML theme overlay.
func ParseHexColor(s string) (Color, error) {
	if len(s) != 7 && len(s) != 9 {
		return Color{}, fmt.Errorf("theme: invalid color %q: want #rrggbb or #rrggbbaa", s)
	}
	if s[0] != '#' {
		return Color{}, fmt.Errorf("theme: invalid color %q: must start with #", s)
	}
	var r, g, b, a uint8 = 0, 0, 0, 255
	var rr, gg, bb, aa int
	if _, err := fmt.Sscanf(s[1:3], "%02x", &rr); err != nil {
		return Color{}, fmt.Errorf("theme: invalid color %q: %w", s, err)
	}
	if _, err := fmt.Sscanf(s[3:5], "%02x", &gg); err != nil {
		return Color{}, fmt.Errorf("theme: invalid color %q: %w", s, err)
	}
	if _, err := fmt.Sscanf(s[5:7], "%02x", &bb); err != nil {
		return Color{}, fmt.Errorf("theme: invalid color %q: %w", s, err)
	}
	r, g, b = uint8(rr), uint8(gg), uint8(bb)
	if len(s) == 9 {
		if _, err := fmt.Sscanf(s[7:9], "%02x", &aa); err != nil {
			return Color{}, fmt.Errorf("theme: invalid color %q: %w", s, err)
		}
		a = uint8(aa)
	}
	return ColorFromRGBAStraight(r, g, b, a), nil
}
