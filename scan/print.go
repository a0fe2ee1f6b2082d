package scan

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/pathmessages/pathmessages"
)

var (
	messageStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f5d445"))
	typeStyle    = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#f05c07"))
	locStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#5fafd7"))
)

// ColorEnabled reports whether output to f should be styled.
func ColorEnabled(f *os.File, noColor bool) bool {
	if noColor || f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// PrintFinding writes a human readable block for f to w.
func PrintFinding(w io.Writer, f pathmessages.Finding, color bool) {
	message, typ := f.Message, f.Type
	file, line := f.File, strconv.Itoa(f.Line)
	if color {
		message = messageStyle.Render(message)
		typ = typeStyle.Render(typ)
		file = locStyle.Render(file)
		line = locStyle.Render(line)
	}

	fmt.Fprintf(w, "%-12s %s\n", "Message:", message)
	fmt.Fprintf(w, "%-12s %s\n", "Type:", typ)
	fmt.Fprintf(w, "%-12s %s\n", "File:", file)
	fmt.Fprintf(w, "%-12s %s\n", "Line:", line)
	fmt.Fprintf(w, "%-12s %s\n", "Fingerprint:", f.Fingerprint())
	fmt.Fprintln(w)
}
