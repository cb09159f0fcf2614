package term

import "strings"

// wrapWithPipe wraps text at word boundaries and prefixes each line with
// "| ", indented by the given prefix. Empty input yields a single bare pipe.
func wrapWithPipe(text, indent string, width int) string {
	if width < 40 {
		width = 40
	}
	if strings.TrimSpace(text) == "" {
		return indent + "|"
	}

	var out []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			out = append(out, indent+"|")
			continue
		}
		for _, wrapped := range wrapLine(line, width-len(indent)-2) {
			out = append(out, indent+"| "+wrapped)
		}
	}
	return strings.Join(out, "\n")
}

// wrapLine greedily wraps one line at word boundaries. Words longer than the
// width are kept intact.
func wrapLine(line string, width int) []string {
	words := strings.Fields(line)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	current := words[0]
	for _, w := range words[1:] {
		if len(current)+1+len(w) > width {
			lines = append(lines, current)
			current = w
			continue
		}
		current += " " + w
	}
	return append(lines, current)
}
