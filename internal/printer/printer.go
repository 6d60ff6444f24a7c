// Package printer renders user-facing CLI output with consistent colors.
package printer

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

func init() {
	// Force color output even when not connected to TTY.
	// Users can disable with the NO_COLOR environment variable.
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green   = color.New(color.FgGreen)
	yellow  = color.New(color.FgYellow)
	red     = color.New(color.FgRed, color.Bold)
	cyan    = color.New(color.FgCyan)
	magenta = color.New(color.FgMagenta, color.Bold)
)

// Success prints a success message in green with a checkmark prefix.
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		green.Printf("✓ %s", msg)
	} else {
		green.Print(msg)
	}
}

// Info prints an informational message in the default color.
func Info(format string, a ...any) {
	fmt.Printf(format, a...)
}

// Warning prints a warning message in yellow with a warning prefix.
func Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "⚠️") {
		yellow.Printf("⚠️  %s", msg)
	} else {
		yellow.Print(msg)
	}
}

// Step prints a step message with emphasis, used in multi-step operations.
func Step(format string, a ...any) {
	cyan.Printf("→ %s", fmt.Sprintf(format, a...))
}

// CaseID renders a case identifier with emphasis so operators can spot it
// in a wall of output.
func CaseID(id string) string {
	return magenta.Sprint(id)
}

// SourceStatus prints one scheduler source line in a status listing.
func SourceStatus(name, priority, cooldown string) {
	fmt.Printf("  %-18s %-12s cooldown %s\n", cyan.Sprint(name), priority, cooldown)
}

// Error prints a formatted error with title, explanation, and suggestions
// to stderr, and returns a plain error for Cobra.
func Error(title string, explanation string, suggestions []string) error {
	red.Fprintf(os.Stderr, "%s\n\n", title)
	fmt.Fprintf(os.Stderr, "%s\n", explanation)

	if len(suggestions) > 0 {
		fmt.Fprintf(os.Stderr, "\n")
		if len(suggestions) == 1 {
			fmt.Fprintf(os.Stderr, "%s\n", suggestions[0])
		} else {
			fmt.Fprintf(os.Stderr, "Either:\n")
			for i, suggestion := range suggestions {
				fmt.Fprintf(os.Stderr, "  %d. %s\n", i+1, suggestion)
			}
		}
	}

	// The returned error is not printed again by Cobra due to SilenceErrors.
	return fmt.Errorf("%s", title)
}

// Println prints a plain message.
func Println(a ...any) {
	fmt.Println(a...)
}

// Printf prints a plain formatted message.
func Printf(format string, a ...any) {
	fmt.Printf(format, a...)
}
