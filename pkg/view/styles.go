package view

import "strconv"

// TypeStyle is the badge styling of an elemental type.
type TypeStyle struct {
	Background string
	Text       string
	Icon       string
}

// FallbackTypeStyle is used for types missing from TypeStyles.
var FallbackTypeStyle = TypeStyle{Background: "#A8A8A8", Text: "#fff", Icon: "⭕"}

// TypeStyles maps type names to badge styles.
var TypeStyles = map[string]TypeStyle{
	"normal":   {"#A8A8A8", "#fff", "⭐"},
	"fire":     {"#FF6B35", "#fff", "🔥"},
	"water":    {"#4488FF", "#fff", "💧"},
	"grass":    {"#4CAF50", "#fff", "🌿"},
	"electric": {"#FFD700", "#333", "⚡"},
	"ice":      {"#40C4FF", "#333", "❄️"},
	"fighting": {"#D32F2F", "#fff", "🥊"},
	"poison":   {"#9C27B0", "#fff", "☠️"},
	"ground":   {"#D4A54A", "#fff", "🌍"},
	"flying":   {"#7986CB", "#fff", "🪶"},
	"psychic":  {"#EC407A", "#fff", "🔮"},
	"bug":      {"#8BC34A", "#fff", "🐛"},
	"rock":     {"#8D6E63", "#fff", "🪨"},
	"ghost":    {"#7B1FA2", "#fff", "👻"},
	"dragon":   {"#3949AB", "#fff", "🐉"},
	"dark":     {"#4E342E", "#fff", "🌑"},
	"steel":    {"#90A4AE", "#fff", "⚙️"},
	"fairy":    {"#F06292", "#fff", "✨"},
}

// StyleFor returns the badge style of a type.
func StyleFor(typeName string) TypeStyle {
	if s, ok := TypeStyles[typeName]; ok {
		return s
	}
	return FallbackTypeStyle
}

// TypeGradients maps the primary type to the detail header background.
var TypeGradients = map[string]string{
	"normal":   "linear-gradient(135deg, #9E9E9E, #616161)",
	"fire":     "linear-gradient(135deg, #FF8A65, #c0392b)",
	"water":    "linear-gradient(135deg, #64B5F6, #1565C0)",
	"grass":    "linear-gradient(135deg, #81C784, #2E7D32)",
	"electric": "linear-gradient(135deg, #FFF176, #F9A825)",
	"ice":      "linear-gradient(135deg, #80DEEA, #0097A7)",
	"fighting": "linear-gradient(135deg, #EF9A9A, #B71C1C)",
	"poison":   "linear-gradient(135deg, #CE93D8, #6A1B9A)",
	"ground":   "linear-gradient(135deg, #FFCC80, #E65100)",
	"flying":   "linear-gradient(135deg, #B39DDB, #311B92)",
	"psychic":  "linear-gradient(135deg, #F48FB1, #880E4F)",
	"bug":      "linear-gradient(135deg, #C5E1A5, #33691E)",
	"rock":     "linear-gradient(135deg, #BCAAA4, #4E342E)",
	"ghost":    "linear-gradient(135deg, #9575CD, #311B92)",
	"dragon":   "linear-gradient(135deg, #7986CB, #1A237E)",
	"dark":     "linear-gradient(135deg, #78909C, #263238)",
	"steel":    "linear-gradient(135deg, #90A4AE, #37474F)",
	"fairy":    "linear-gradient(135deg, #F48FB1, #AD1457)",
}

// GradientFor returns the header gradient for a primary type, falling back
// to the normal gradient.
func GradientFor(primaryType string) string {
	if g, ok := TypeGradients[primaryType]; ok {
		return g
	}
	return TypeGradients["normal"]
}

// MaxStat is the upper bound of a base stat bar.
const MaxStat = 255

// StatOrder is the display order of base stats.
var StatOrder = []string{"hp", "attack", "defense", "special-attack", "special-defense", "speed"}

// StatStyle is the label and bar colour of a stat.
type StatStyle struct {
	Label string
	Color string
}

// StatStyles maps stat names to their bar style.
var StatStyles = map[string]StatStyle{
	"hp":              {"HP", "#EF5350"},
	"attack":          {"Attack", "#FF8A65"},
	"defense":         {"Defense", "#FFD54F"},
	"special-attack":  {"Sp. Atk", "#5C6BC0"},
	"special-defense": {"Sp. Def", "#66BB6A"},
	"speed":           {"Speed", "#EC407A"},
}

// StatStyleFor returns the style of a stat; unknown stats use their raw name
// and a neutral colour.
func StatStyleFor(stat string) StatStyle {
	if s, ok := StatStyles[stat]; ok {
		return s
	}
	return StatStyle{Label: stat, Color: "#90A4AE"}
}

// StatPercent returns the bar width for value as a percentage string with
// one decimal, capped at 100.
func StatPercent(value int) string {
	pct := float64(value) / MaxStat * 100
	if pct > 100 {
		pct = 100
	}
	return strconv.FormatFloat(pct, 'f', 1, 64)
}
