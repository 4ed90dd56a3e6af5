package game

import (
	"fmt"
	"math/rand"
)

// Fixed display palette. Colors are assigned first-unused within an
// instance; once exhausted we fall back to a random hex color.
var colorPalette = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8", "#f58231",
	"#911eb4", "#46f0f0", "#f032e6", "#bcf60c", "#fabebe",
	"#008080", "#e6beff", "#9a6324", "#fffac8", "#800000",
	"#aaffc3", "#808000", "#ffd8b1", "#000075", "#808080",
}

func pickColor(in *Instance, rng *rand.Rand) string {
	used := make(map[string]bool, len(in.Players))
	for _, p := range in.Players {
		used[p.Color] = true
	}
	for _, c := range colorPalette {
		if !used[c] {
			return c
		}
	}
	return fmt.Sprintf("#%06x", rng.Intn(0x1000000))
}
