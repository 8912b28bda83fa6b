package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// readingTheme scales text for reading long passages and keeps disabled
// entries legible
type readingTheme struct {
	baseFontSize float32
	isDark       bool
}

func newReadingTheme(baseFontSize int, isDark bool) fyne.Theme {
	return &readingTheme{
		baseFontSize: float32(baseFontSize),
		isDark:       isDark,
	}
}

func (t *readingTheme) Color(name fyne.ThemeColorName, _ fyne.ThemeVariant) color.Color {
	variant := theme.VariantLight
	if t.isDark {
		variant = theme.VariantDark
	}
	if name == theme.ColorNameDisabled {
		return theme.DefaultTheme().Color(theme.ColorNameForeground, variant)
	}
	return theme.DefaultTheme().Color(name, variant)
}

func (t *readingTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *readingTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *readingTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameText:
		return t.baseFontSize
	case theme.SizeNameHeadingText:
		return t.baseFontSize * 1.5
	case theme.SizeNameSubHeadingText:
		return t.baseFontSize * 1.2
	case theme.SizeNameCaptionText:
		return t.baseFontSize * 0.85
	case theme.SizeNameLineSpacing:
		return theme.DefaultTheme().Size(name) * 1.5
	default:
		return theme.DefaultTheme().Size(name)
	}
}
