package observability

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	colorReset    = "\033[0m"
	colorNeonCyan = "\033[96m"
)

const banner = `
    __              __
   / /_  ____  ____/ /_______/ /__
  / __ \/ __ \/ __  / ___/ __  //_/
 / /_/ / /_/ / /_/ (__  ) /_/ ,<
/_.___/\__,_/\__,_/____/\__,_/|_|

  >> institutions / hospitals / restaurants / web <<
`

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func termWidth(f *os.File) int {
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 80
	}
	return w
}

// PrintBanner writes the centered, colored banner to stdout when it is a
// terminal and does nothing otherwise.
func PrintBanner() {
	if !IsTerminal(os.Stdout) {
		return
	}
	writeBanner(os.Stdout, termWidth(os.Stdout), true)
}

func writeBanner(w io.Writer, width int, color bool) {
	for _, l := range strings.Split(banner, "\n") {
		padding := (width - len(l)) / 2
		if padding < 0 {
			padding = 0
		}
		if color {
			fmt.Fprintf(w, "%s%s%s\n", strings.Repeat(" ", padding), colorNeonCyan+l, colorReset)
		} else {
			fmt.Fprintf(w, "%s%s\n", strings.Repeat(" ", padding), l)
		}
	}
}
