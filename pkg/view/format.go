// Package view holds the presentation helpers shared by the HTML pages and
// the CLI: name formatting and the per-type and per-stat lookup tables.
package view

import (
	"fmt"
	"strconv"
	"strings"
)

// SpriteBaseURL is where the front sprites of every species live.
const SpriteBaseURL = "https://raw.githubusercontent.com/PokeAPI/sprites/master/sprites/pokemon"

// Placeholder is shown for missing values.
const Placeholder = "—"

// FormatName turns an API name into a display name: "mr-mime" -> "Mr Mime".
func FormatName(name string) string {
	parts := strings.Split(name, "-")
	for i, p := range parts {
		parts[i] = Capitalize(p)
	}
	return strings.Join(parts, " ")
}

// Capitalize upper-cases the first letter of s.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// PaddedID formats an id as "#001".
func PaddedID(id int) string {
	return fmt.Sprintf("#%03d", id)
}

// Decimetres formats a height in decimetres as metres, e.g. 7 -> "0.7m".
func Decimetres(v int) string {
	return strconv.FormatFloat(float64(v)/10, 'f', 1, 64) + "m"
}

// Hectograms formats a weight in hectograms as kilograms, e.g. 69 -> "6.9kg".
func Hectograms(v int) string {
	return strconv.FormatFloat(float64(v)/10, 'f', 1, 64) + "kg"
}

// OneDecimal formats v with one fractional digit.
func OneDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// OptionalInt formats v, or Placeholder when nil.
func OptionalInt(v *int) string {
	if v == nil {
		return Placeholder
	}
	return strconv.Itoa(*v)
}

// Thousands formats n with comma separators, e.g. 1302 -> "1,302".
func Thousands(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// SpriteURL returns the front sprite of a species id.
func SpriteURL(id string) string {
	return SpriteBaseURL + "/" + id + ".png"
}
