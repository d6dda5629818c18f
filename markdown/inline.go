package markdown

import (
	"regexp"
	"strings"
)

var boldRe = regexp.MustCompile(`\*\*(.*?)\*\*`)

// ParseInline splits paragraph text into runs around bold spans, removing the
// markers themselves. The explicit break marker is normalized into a newline
// first. Only one level of emphasis exists: markers left unpaired on the line
// pass through as plain text, and since the pattern does not cross newlines a
// span never extends over a hard break.
func ParseInline(text string) []Run {
	text = strings.ReplaceAll(text, "<br>", "\n")

	var runs []Run
	last := 0
	for _, m := range boldRe.FindAllStringSubmatchIndex(text, -1) {
		if m[0] > last {
			runs = append(runs, Run{Text: text[last:m[0]]})
		}
		runs = append(runs, Run{Text: text[m[2]:m[3]], Bold: true})
		last = m[1]
	}
	if last < len(text) {
		runs = append(runs, Run{Text: text[last:]})
	}
	return runs
}
