package term

import (
	"fmt"
	"io"
)

// clearRegion moves the cursor up over the previously drawn region and
// erases from there to the end of the screen, so the next render overwrites
// it in place.
func clearRegion(w io.Writer, lines int) error {
	if lines <= 0 {
		return nil
	}
	_, err := fmt.Fprintf(w, "\x1b[%dA\x1b[0J", lines)
	return err
}

// countLines counts the newline-terminated lines in rendered output.
func countLines(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			n++
		}
	}
	return n
}
