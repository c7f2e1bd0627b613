package ui

import (
	"image/color"

	"charm.land/lipgloss/v2"
)

// Palette holds the colors the grid view uses.
type Palette struct {
	Accent     color.Color
	Muted      color.Color
	HeaderFG   color.Color
	HeaderBG   color.Color
	SelectedFG color.Color
	SelectedBG color.Color
	ChipFG     color.Color
	ChipBG     color.Color
	Error      color.Color
	Success    color.Color
	Border     color.Color
}

// DefaultPalette is the dark palette.
func DefaultPalette() Palette {
	return Palette{
		Accent:     lipgloss.Color("81"),
		Muted:      lipgloss.Color("244"),
		HeaderFG:   lipgloss.Color("81"),
		HeaderBG:   lipgloss.Color("236"),
		SelectedFG: lipgloss.Color("250"),
		SelectedBG: lipgloss.Color("24"),
		ChipFG:     lipgloss.Color("230"),
		ChipBG:     lipgloss.Color("60"),
		Error:      lipgloss.Color("203"),
		Success:    lipgloss.Color("114"),
		Border:     lipgloss.Color("238"),
	}
}

// Styles are the rendered styles derived from a palette.
type Styles struct {
	Title      lipgloss.Style
	Muted      lipgloss.Style
	Chip       lipgloss.Style
	ChipActive lipgloss.Style
	Popover    lipgloss.Style
	Cursor     lipgloss.Style
	Error      lipgloss.Style
	Success    lipgloss.Style
	Key        lipgloss.Style
}

// NewStyles builds styles for p. With noColor only attributes that survive
// monochrome terminals are used.
func NewStyles(p Palette, noColor bool) Styles {
	border := lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1)
	if noColor {
		return Styles{
			Title:      lipgloss.NewStyle().Bold(true),
			Muted:      lipgloss.NewStyle(),
			Chip:       lipgloss.NewStyle(),
			ChipActive: lipgloss.NewStyle().Reverse(true),
			Popover:    border,
			Cursor:     lipgloss.NewStyle().Reverse(true),
			Error:      lipgloss.NewStyle().Bold(true),
			Success:    lipgloss.NewStyle(),
			Key:        lipgloss.NewStyle().Bold(true),
		}
	}
	return Styles{
		Title:      lipgloss.NewStyle().Bold(true).Foreground(p.HeaderFG).Background(p.HeaderBG),
		Muted:      lipgloss.NewStyle().Foreground(p.Muted),
		Chip:       lipgloss.NewStyle().Foreground(p.ChipFG).Background(p.ChipBG),
		ChipActive: lipgloss.NewStyle().Foreground(p.ChipFG).Background(p.ChipBG).Reverse(true),
		Popover:    border.BorderForeground(p.Border),
		Cursor:     lipgloss.NewStyle().Foreground(p.SelectedFG).Background(p.SelectedBG),
		Error:      lipgloss.NewStyle().Foreground(p.Error),
		Success:    lipgloss.NewStyle().Foreground(p.Success),
		Key:        lipgloss.NewStyle().Foreground(p.Accent),
	}
}
