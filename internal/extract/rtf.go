package extract

import (
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// destinations whose content is formatting data, not document text
var rtfSkipDestinations = map[string]bool{
	"fonttbl":    true,
	"colortbl":   true,
	"stylesheet": true,
	"info":       true,
	"pict":       true,
	"header":     true,
	"footer":     true,
	"listtable":  true,
	"themedata":  true,
	"datastore":  true,
}

type rtfGroup struct {
	skip   bool
	ucSkip int
}

// extractRTF strips control words and groups, keeping paragraph breaks.
func extractRTF(src string) string {
	var (
		out     strings.Builder
		stack   = []rtfGroup{{ucSkip: 1}}
		pending int // fallback chars to drop after a \uN escape
	)
	top := func() *rtfGroup { return &stack[len(stack)-1] }
	emit := func(s string) {
		if pending > 0 {
			pending--
			return
		}
		if !top().skip {
			out.WriteString(s)
		}
	}

	for i := 0; i < len(src); i++ {
		c := src[i]
		switch c {
		case '{':
			stack = append(stack, *top())
			// {\*\dest ...} groups are optional destinations
			if strings.HasPrefix(src[i+1:], `\*`) {
				top().skip = true
			}
		case '}':
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case '\\':
			if i+1 >= len(src) {
				break
			}
			next := src[i+1]
			switch {
			case next == '\\' || next == '{' || next == '}':
				emit(string(next))
				i++
			case next == '\'':
				if i+3 < len(src) {
					if b, err := strconv.ParseUint(src[i+2:i+4], 16, 8); err == nil {
						emit(string(charmap.Windows1252.DecodeByte(byte(b))))
					}
					i += 3
				}
			case next == '~':
				emit(" ")
				i++
			case next == '-' || next == '_':
				i++
			case isASCIILetter(next):
				j := i + 1
				for j < len(src) && isASCIILetter(src[j]) {
					j++
				}
				word := src[i+1 : j]
				k := j
				if k < len(src) && (src[k] == '-' || isASCIIDigit(src[k])) {
					k++
					for k < len(src) && isASCIIDigit(src[k]) {
						k++
					}
				}
				param := src[j:k]
				if k < len(src) && src[k] == ' ' {
					k++
				}
				i = k - 1
				handleRTFWord(word, param, top(), emit, &pending)
			default:
				i++
			}
		case '\r', '\n':
		default:
			emit(string(c))
		}
	}
	return strings.TrimSpace(out.String())
}

func handleRTFWord(word, param string, g *rtfGroup, emit func(string), pending *int) {
	if rtfSkipDestinations[word] {
		g.skip = true
		return
	}
	switch word {
	case "par", "line", "sect", "page":
		emit("\n")
	case "tab":
		emit("\t")
	case "uc":
		if n, err := strconv.Atoi(param); err == nil {
			g.ucSkip = n
		}
	case "u":
		n, err := strconv.Atoi(param)
		if err != nil {
			return
		}
		if n < 0 {
			n += 65536
		}
		emit(string(rune(n)))
		*pending = g.ucSkip
	}
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isASCIIDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
