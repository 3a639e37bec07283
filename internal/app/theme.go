package app

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// ReadingRoomTheme darkens the chrome around the radiograph so the image
// dominates, the way diagnostic viewers are set up.
type ReadingRoomTheme struct{}

var _ fyne.Theme = (*ReadingRoomTheme)(nil)

func (t *ReadingRoomTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNameBackground:
		return color.NRGBA{R: 0x12, G: 0x14, B: 0x17, A: 0xFF}
	case theme.ColorNamePrimary:
		return color.NRGBA{R: 0x42, G: 0xA5, B: 0xF5, A: 0xFF}
	case theme.ColorNameSelection:
		return color.NRGBA{R: 0x42, G: 0xA5, B: 0xF5, A: 0x60}
	case theme.ColorNameScrollBar:
		return color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xFF}
	default:
		return theme.DefaultTheme().Color(name, theme.VariantDark)
	}
}

func (t *ReadingRoomTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *ReadingRoomTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *ReadingRoomTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameScrollBar:
		return 16
	case theme.SizeNameScrollBarSmall:
		return 12
	default:
		return theme.DefaultTheme().Size(name)
	}
}
