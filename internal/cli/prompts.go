package cli

import (
	"errors"
	"io"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// errQuit is returned by PromptForQuestion when the user leaves the chat.
var errQuit = errors.New("quit")

// PromptForQuestion reads one line of chat input.
func PromptForQuestion() (string, error) {
	var question string
	prompt := &survey.Input{
		Message: "You:",
		Help:    "Ask about a stock, e.g. \"What is the RSI of MSFT?\". Commands: /history, /reset, exit",
	}

	err := survey.AskOne(prompt, &question)
	if errors.Is(err, terminal.InterruptErr) || errors.Is(err, io.EOF) {
		return "", errQuit
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(question), nil
}
