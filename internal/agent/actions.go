package agent

import (
	"strings"
)

// actionAddendum is appended to executor prompts when local actions are
// enabled. The model requests at most one action per attempt.
const actionAddendum = `You may carry out the step with a local shell command. To do so, include
exactly one line of the form:

ACTION: <shell command>

The command runs on the user's machine and its output is appended to your
report. Only request an action when the step requires one.`

// parseAction extracts the command from the first ACTION line, if any.
func parseAction(output string) (string, bool) {
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(trimmed, "ACTION:"); ok {
			cmd := strings.TrimSpace(rest)
			if cmd != "" {
				return cmd, true
			}
		}
	}
	return "", false
}
