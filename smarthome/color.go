package smarthome

import "strings"

// basicColors maps a plain color word to its hue/saturation, grounded on
// smart_home_controller.py's basic_colors table.
var basicColors = map[string]HSColor{
	"blue":    {240, 100},
	"red":     {0, 100},
	"green":   {120, 100},
	"yellow":  {60, 100},
	"orange":  {30, 100},
	"purple":  {280, 100},
	"pink":    {330, 100},
	"cyan":    {180, 100},
	"magenta": {300, 100},
	"white":   {0, 0},
	"warm":    {30, 50},
	"cool":    {200, 30},
}

// ambientPalette is a named creative lighting scheme: a description plus a
// cycle of hue/saturation pairs distributed round-robin across targets.
type ambientPalette struct {
	Colors      []HSColor
	Description string
}

// ambientColors ports the ambient_color_commands table verbatim (hue/sat
// values and descriptions unchanged).
var ambientColors = map[string]ambientPalette{
	"sunset": {
		Colors:      []HSColor{{20, 100}, {35, 90}, {10, 95}},
		Description: "warm sunset oranges and reds",
	},
	"sunrise": {
		Colors:      []HSColor{{35, 80}, {45, 70}, {25, 90}},
		Description: "warm sunrise golden tones",
	},
	"ocean": {
		Colors:      []HSColor{{180, 70}, {200, 85}, {160, 60}},
		Description: "ocean blues and teals",
	},
	"christmas": {
		Colors:      []HSColor{{0, 100}, {120, 100}, {0, 100}},
		Description: "festive red and green",
	},
	"rainbow": {
		Colors:      []HSColor{{0, 100}, {60, 100}, {120, 100}, {180, 100}, {240, 100}, {300, 100}},
		Description: "rainbow spectrum colors",
	},
	"forest": {
		Colors:      []HSColor{{120, 80}, {100, 70}, {140, 60}},
		Description: "forest greens",
	},
	"fire": {
		Colors:      []HSColor{{10, 100}, {25, 95}, {0, 100}},
		Description: "warm fire flickering tones",
	},
}

// ambientOrder fixes iteration order for deterministic fast-path matching
// (map iteration in Go is randomised, and "sunset" must win over a
// coincidental "fire" substring match in the same query, matching the
// source's dict insertion order).
var ambientOrder = []string{"sunset", "sunrise", "ocean", "christmas", "rainbow", "forest", "fire"}

// sportsTeamPalettes is the hard-coded alternating-primary-color table for
// named sports teams (spec §4.5 "sports-team color palettes").
var sportsTeamPalettes = map[string]ambientPalette{
	"ravens": {
		Colors:      []HSColor{{270, 100}, {45, 100}, {270, 100}},
		Description: "Ravens purple and gold",
	},
	"orioles": {
		Colors:      []HSColor{{30, 100}, {30, 100}, {30, 100}},
		Description: "Orioles orange",
	},
	"steelers": {
		Colors:      []HSColor{{0, 0}, {45, 100}, {0, 0}},
		Description: "Steelers black and gold",
	},
}

var sportsTeamOrder = []string{"ravens", "orioles", "steelers"}

// matchAmbientColor returns the first ambient palette named in the query,
// in table order, so overlapping substrings resolve deterministically.
func matchAmbientColor(queryLower string) (string, ambientPalette, bool) {
	for _, name := range ambientOrder {
		if strings.Contains(queryLower, name) {
			return name, ambientColors[name], true
		}
	}
	return "", ambientPalette{}, false
}

func matchSportsTeam(queryLower string) (string, ambientPalette, bool) {
	for _, name := range sportsTeamOrder {
		if strings.Contains(queryLower, name) {
			return name, sportsTeamPalettes[name], true
		}
	}
	return "", ambientPalette{}, false
}

// matchBasicColor finds a plain color word, returning false when the query
// matched no entry.
func matchBasicColor(queryLower string) (string, HSColor, bool) {
	for name, hs := range basicColors {
		if strings.Contains(queryLower, name) {
			return name, hs, true
		}
	}
	return "", HSColor{}, false
}

// distributeColors assigns one color per target entity, cycling through
// the palette round-robin — the "all_individual" scope's semantics.
func distributeColors(palette []HSColor, targetCount int) []HSColor {
	if len(palette) == 0 || targetCount <= 0 {
		return nil
	}
	out := make([]HSColor, targetCount)
	for i := 0; i < targetCount; i++ {
		out[i] = palette[i%len(palette)]
	}
	return out
}

func hsColorsToParam(colors []HSColor) [][2]int {
	out := make([][2]int, len(colors))
	for i, c := range colors {
		out[i] = [2]int{c.Hue, c.Saturation}
	}
	return out
}
