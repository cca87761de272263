package stylize

import (
	"regexp"
	"strings"
)

// DefaultMarker is the suffix token inserted at sentence boundaries.
const DefaultMarker = "냥!"

// sentenceBoundary matches one terminal punctuation mark and the whitespace after it.
var sentenceBoundary = regexp.MustCompile(`([.!?])\s*`)

// Stylizer inserts a marker before every sentence-ending punctuation mark
// and after any trailing fragment that has none.
type Stylizer struct {
	marker string
}

func New(marker string) *Stylizer {
	if marker == "" {
		marker = DefaultMarker
	}
	return &Stylizer{marker: marker}
}

func (s *Stylizer) Marker() string {
	return s.marker
}

// Transform rewrites text so each sentence carries the marker.
//
//	"Hi. Bye!"  -> "Hi 냥!. Bye 냥!!"
//	"no stop"   -> "no stop 냥!"
//
// Consecutive marks ("?!") are separate tokens and each receives a marker.
func (s *Stylizer) Transform(text string) string {
	tokens := split(text)
	out := make([]string, 0, len(tokens))

	for i, tok := range tokens {
		switch {
		case isTerminal(tok):
			if len(out) == 0 {
				// nothing to attach to, the segment keeps its leading space
				out = append(out, " "+s.marker+tok)
				continue
			}
			out[len(out)-1] += " " + s.marker + tok
		case i+1 < len(tokens) && isTerminal(tokens[i+1]):
			// marker is attached when the punctuation token is reached
			out = append(out, tok)
		default:
			out = append(out, tok+" "+s.marker)
		}
	}

	return strings.Join(out, " ")
}

var defaultStylizer = New(DefaultMarker)

// Transform applies the default marker.
func Transform(text string) string {
	return defaultStylizer.Transform(text)
}

// split breaks text on terminal punctuation, keeping each mark as its own
// token and dropping empty pieces. Whitespace following a mark is consumed.
func split(text string) []string {
	var tokens []string
	last := 0
	for _, m := range sentenceBoundary.FindAllStringSubmatchIndex(text, -1) {
		if m[0] > last {
			tokens = append(tokens, text[last:m[0]])
		}
		tokens = append(tokens, text[m[2]:m[3]])
		last = m[1]
	}
	if last < len(text) {
		tokens = append(tokens, text[last:])
	}
	return tokens
}

func isTerminal(tok string) bool {
	return tok == "." || tok == "!" || tok == "?"
}
