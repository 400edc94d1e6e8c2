// Package theme holds the mutable visual configuration shared by the
// scene graph: colors, border width, title height and font description.
package theme

import "sync"

// Color is a premultiplied RGBA color in the 0..1 range.
type Color struct {
	R, G, B, A float32
}

// ColorFromRGBAStraight builds a premultiplied Color from straight-alpha
// 8-bit channels, the way the compositor's built-in palette is defined.
func ColorFromRGBAStraight(r, g, b, a uint8) Color {
	alpha := float32(a) / 255
	return Color{
		R: float32(r) / 255 * alpha,
		G: float32(g) / 255 * alpha,
		B: float32(b) / 255 * alpha,
		A: alpha,
	}
}

// ToRGBAPremultiplied returns the 8-bit premultiplied channels.
func (c Color) ToRGBAPremultiplied() [4]uint8 {
	toU8 := func(v float32) uint8 { return uint8(v * 255) }
	return [4]uint8{toU8(c.R), toU8(c.G), toU8(c.B), toU8(c.A)}
}

// Theme is mutable at runtime: requests from the external configuration
// module update it directly via the setters below.
type Theme struct {
	mu sync.RWMutex

	backgroundColor   Color
	titleColor        Color
	activeTitleColor  Color
	underlineColor    Color
	borderColor       Color
	lastActiveColor   Color
	titleHeight       int32
	borderWidth       int32
	font              string
}

// Default returns the built-in palette.
func Default() *Theme {
	return &Theme{
		backgroundColor:  ColorFromRGBAStraight(0x00, 0x10, 0x19, 255),
		lastActiveColor:  ColorFromRGBAStraight(0x5f, 0x67, 0x6a, 255),
		titleColor:       ColorFromRGBAStraight(0x22, 0x22, 0x22, 255),
		activeTitleColor: ColorFromRGBAStraight(0x28, 0x55, 0x77, 255),
		underlineColor:   ColorFromRGBAStraight(0x33, 0x33, 0x33, 255),
		borderColor:      ColorFromRGBAStraight(0x3f, 0x47, 0x4a, 255),
		titleHeight:      17,
		borderWidth:      4,
		font:             "monospace 8",
	}
}

func (t *Theme) TitleHeight() int32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.titleHeight
}

func (t *Theme) BorderWidth() int32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.borderWidth
}

func (t *Theme) Font() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.font
}

func (t *Theme) BackgroundColor() Color {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.backgroundColor
}

func (t *Theme) SetBorderWidth(px int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.borderWidth = px
}

func (t *Theme) SetTitleHeight(px int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.titleHeight = px
}

func (t *Theme) SetFont(font string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.font = font
}

// Overlay is the shape of the optional on-disk YAML theme override
// (internal/config loads it and applies it over Default()).
type Overlay struct {
	BackgroundColor  *string `yaml:"background_color,omitempty"`
	TitleColor       *string `yaml:"title_color,omitempty"`
	ActiveTitleColor *string `yaml:"active_title_color,omitempty"`
	BorderColor      *string `yaml:"border_color,omitempty"`
	TitleHeight      *int32  `yaml:"title_height,omitempty"`
	BorderWidth      *int32  `yaml:"border_width,omitempty"`
	Font             *string `yaml:"font,omitempty"`
}

// Apply layers a parsed Overlay onto the theme, leaving unset fields alone.
func (t *Theme) Apply(o Overlay) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if o.BackgroundColor != nil {
		c, err := ParseHexColor(*o.BackgroundColor)
		if err != nil {
			return err
		}
		t.backgroundColor = c
	}
	if o.TitleColor != nil {
		c, err := ParseHexColor(*o.TitleColor)
		if err != nil {
			return err
		}
		t.titleColor = c
	}
	if o.ActiveTitleColor != nil {
		c, err := ParseHexColor(*o.ActiveTitleColor)
		if err != nil {
			return err
		}
		t.activeTitleColor = c
	}
	if o.BorderColor != nil {
		c, err := ParseHexColor(*o.BorderColor)
		if err != nil {
			return err
		}
		t.borderColor = c
	}
	if o.TitleHeight != nil {
		t.titleHeight = *o.TitleHeight
	}
	if o.BorderWidth != nil {
		t.borderWidth = *o.BorderWidth
	}
	if o.Font != nil {
		t.font = *o.Font
	}
	return nil
}
