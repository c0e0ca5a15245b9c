package core

import "errors"

// ColorToken is one of the fixed palette entries assignable to a type.
type ColorToken string

const (
	ColorBlu    ColorToken = "blu"
	ColorGiallo ColorToken = "giallo"
	ColorVerde  ColorToken = "verde"
	ColorRosa   ColorToken = "rosa"
	ColorRosso  ColorToken = "rosso"
)

var ErrUnknownColor = errors.New("unknown color")

// PaletteEntry maps a color token to its two derived presentation attributes.
type PaletteEntry struct {
	Token   ColorToken
	Name    string
	Color   string // foreground tint class
	BgColor string // background tint class
}

// Palette is the fixed set of assignable colors, in display order.
var Palette = []PaletteEntry{
	{Token: ColorBlu, Name: "Blu", Color: "text-chart-1", BgColor: "bg-chart-1"},
	{Token: ColorGiallo, Name: "Giallo", Color: "text-chart-2", BgColor: "bg-chart-2"},
	{Token: ColorVerde, Name: "Verde", Color: "text-chart-3", BgColor: "bg-chart-3"},
	{Token: ColorRosa, Name: "Rosa", Color: "text-chart-4", BgColor: "bg-chart-4"},
	{Token: ColorRosso, Name: "Rosso", Color: "text-chart-5", BgColor: "bg-chart-5"},
}

func (c ColorToken) Validate() error {
	for _, p := range Palette {
		if p.Token == c {
			return nil
		}
	}
	return ErrUnknownColor
}

// Entry returns the palette entry for the token, falling back to the first
// palette color for unknown tokens so stale rows still render.
func (c ColorToken) Entry() PaletteEntry {
	for _, p := range Palette {
		if p.Token == c {
			return p
		}
	}
	return Palette[0]
}

// DefaultTypes is the seed set of activity types for a fresh installation.
var DefaultTypes = []ActivityType{
	{ID: "meeting", Label: "Riunione", Color: ColorBlu},
	{ID: "task", Label: "Compito", Color: ColorGiallo},
	{ID: "deadline", Label: "Scadenza", Color: ColorRosso},
	{ID: "event", Label: "Evento", Color: ColorVerde},
	{ID: "reminder", Label: "Promemoria", Color: ColorRosa},
}
