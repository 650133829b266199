package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// PromptResult captures the outcome of an interactive confirmation.
type PromptResult struct {
	// Accepted is true when the user answered yes.
	Accepted bool
	// NonInteractive is true when no terminal was attached, so no prompt
	// was shown.
	NonInteractive bool
}

// confirm asks the user a yes/no question on the terminal. When stdin is
// not a terminal the prompt is skipped and the answer is No, so scripted
// runs never destroy data without an explicit --force.
func confirm(in *os.File, out io.Writer, question string) PromptResult {
	if !isTerminal(in) {
		return PromptResult{Accepted: false, NonInteractive: true}
	}

	fmt.Fprintf(out, "%s [y/N]: ", question)

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return PromptResult{Accepted: false}
	}

	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return PromptResult{Accepted: answer == "y" || answer == "yes"}
}
