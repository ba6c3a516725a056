package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
)

var statusStyles = map[statusKind]struct {
	word  string
	color string
}{
	statusInfo:  {"info", ansiCyan},
	statusOK:    {"ok", ansiGreen},
	statusWarn:  {"warn", ansiYellow},
	statusError: {"error", ansiRed},
}

const (
	statusLabelWidth = 16
	sectionWidth     = 44
)

// renderStatusLine formats one "label  status  message" row of the status
// and deps reports. Color wraps the whole line so padding stays stable.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	style := statusStyles[kind]
	line := strings.TrimRight(
		fmt.Sprintf("  %-*s %-6s %s", statusLabelWidth, label, style.word, message), " ")
	if colorize && style.color != "" {
		return style.color + line + ansiReset
	}
	return line
}

// renderSectionHeader draws a ruled section divider for the status report.
func renderSectionHeader(title string, colorize bool) []string {
	title = strings.TrimSpace(title)
	rule := sectionWidth - len(title) - 4
	if rule < 3 {
		rule = 3
	}
	line := fmt.Sprintf("-- %s %s", title, strings.Repeat("-", rule))
	if colorize {
		line = ansiCyan + line + ansiReset
	}
	return []string{line}
}

// shouldColorize enables ANSI output only for real terminals, honoring the
// NO_COLOR convention.
func shouldColorize(writer io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
