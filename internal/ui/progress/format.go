package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/bnema/buildctl/internal/ui/styles"
)

// Output is where the Print helpers write
var Output io.Writer = os.Stdout

// FormatStep renders an indented step line
func FormatStep(state State, message string) string {
	return fmt.Sprintf("  %s %s", StyledIcon(state), StepStyle(state).Render(message))
}

// FormatWarning renders an indented warning line
func FormatWarning(message string) string {
	return fmt.Sprintf("  %s %s", warningIcon.Render(GetIcons().Warning), styles.WarningText.Render(message))
}

func PrintStep(state State, message string) {
	fmt.Fprintln(Output, FormatStep(state, message))
}

func PrintSuccess(message string) {
	PrintStep(StateComplete, message)
}

func PrintError(message string) {
	PrintStep(StateError, message)
}

func PrintWarning(message string) {
	fmt.Fprintln(Output, FormatWarning(message))
}

// PrintDetail prints a muted line under the previous step
func PrintDetail(detail string) {
	fmt.Fprintf(Output, "      %s\n", styles.MutedText.Render(detail))
}

// PrintSummary prints a muted closing line
func PrintSummary(format string, args ...any) {
	fmt.Fprintf(Output, "\n  %s\n", styles.MutedText.Render(fmt.Sprintf(format, args...)))
}
