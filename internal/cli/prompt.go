package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// PromptResult contains the result of a user prompt interaction.
type PromptResult struct {
	// Accepted is true if the user accepted the prompt (typed "y" or "yes").
	Accepted bool
	// Cancelled is true if reading the answer failed.
	Cancelled bool
}

// Confirm asks a yes/no question on writer and reads the answer from reader.
// The default, on empty input or EOF, is "No".
func Confirm(writer io.Writer, reader io.Reader, question string) PromptResult {
	fmt.Fprintf(writer, "? %s [y/N] ", question)

	scanner := bufio.NewScanner(reader)
	if !scanner.Scan() {
		if scanner.Err() != nil {
			return PromptResult{Cancelled: true}
		}
		return PromptResult{Accepted: false}
	}

	switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
	case "y", "yes":
		return PromptResult{Accepted: true}
	default:
		return PromptResult{Accepted: false}
	}
}

// confirmDestructive returns true when assumeYes is set, and otherwise asks on an
// interactive stdin. Without a terminal it declines.
func confirmDestructive(writer io.Writer, question string, assumeYes bool) bool {
	if assumeYes {
		return true
	}
	if !isTerminal(os.Stdin) {
		fmt.Fprintln(writer, "Refusing without confirmation; pass --yes to proceed.")
		return false
	}
	return Confirm(writer, os.Stdin, question).Accepted
}
