package mainwindow

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// BookfoldTheme darkens the chrome around the camera view and uses the mark
// color as the primary accent.
type BookfoldTheme struct{}

var _ fyne.Theme = (*BookfoldTheme)(nil)

func (t *BookfoldTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary:
		return color.NRGBA{R: 0xFF, G: 0x40, B: 0x81, A: 0xFF}
	case theme.ColorNameFocus:
		return color.NRGBA{R: 0xFF, G: 0xD7, B: 0x00, A: 0x80}
	default:
		return theme.DefaultTheme().Color(name, theme.VariantDark)
	}
}

func (t *BookfoldTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *BookfoldTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *BookfoldTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameText:
		return 15
	default:
		return theme.DefaultTheme().Size(name)
	}
}
