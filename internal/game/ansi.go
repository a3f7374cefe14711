package game

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	AnsiReset     = "\x1b[0m"
	AnsiBold      = "\x1b[1m"
	AnsiDim       = "\x1b[2m"
	AnsiItalic    = "\x1b[3m"
	AnsiUnderline = "\x1b[4m"
	AnsiRed       = "\x1b[31m"
	AnsiBlue      = "\x1b[34m"
	AnsiCyan      = "\x1b[36m"
	AnsiYellow    = "\x1b[33m"
	AnsiGreen     = "\x1b[32m"
	AnsiMagenta   = "\x1b[35m"
)

// Style wraps text with the provided ANSI attributes.
func Style(text string, attrs ...string) string {
	if len(attrs) == 0 {
		return text
	}
	return strings.Join(attrs, "") + text + AnsiReset
}

// HighlightName formats player names consistently.
func HighlightName(name string) string {
	return Style(name, AnsiBold, AnsiCyan)
}

// HighlightNames formats each name in the slice.
func HighlightNames(list []string) []string {
	out := make([]string, len(list))
	for i, name := range list {
		out[i] = HighlightName(name)
	}
	return out
}

// Trim normalises a telnet input line. Text is composed to NFC so names
// typed with combining marks match their stored form, other whitespace
// becomes a plain space, and control or format characters are dropped.
func Trim(s string) string {
	return strings.TrimSpace(strings.Map(cleanRune, norm.NFC.String(s)))
}

func cleanRune(r rune) rune {
	switch {
	case r == ' ':
		return r
	case r == '\r':
		return -1
	case unicode.IsSpace(r):
		return ' '
	case unicode.IsControl(r), unicode.Is(unicode.Cf, r), !unicode.IsPrint(r):
		return -1
	}
	return r
}

// Ansi ensures output strings end with a reset sequence.
func Ansi(c string) string {
	if strings.Contains(c, "\x1b[") && !strings.HasSuffix(c, AnsiReset) {
		return c + AnsiReset
	}
	return c
}

// Prompt renders the standard player prompt, naming the dimension the
// player stands in.
func Prompt(p *Player) string {
	return Ansi(Style("\r\n["+p.Location.World+"] > ", AnsiBold, AnsiYellow))
}
