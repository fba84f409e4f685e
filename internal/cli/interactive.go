package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dyike/StockPilot/config"
	"github.com/dyike/StockPilot/internal/assistant"
)

// lineAction is what the chat loop does after one line of input.
type lineAction int

const (
	actionContinue lineAction = iota
	actionQuit
)

func runChat(cmd *cobra.Command, a *app) error {
	ctx := cmd.Context()
	sess, err := a.newSession(ctx)
	if err != nil {
		return reportFatal(a, err)
	}

	updates := make(chan config.Config, 1)
	if a.mgr != nil {
		err := a.mgr.Watch(ctx, keepLatest(updates))
		if err != nil {
			a.logger.Warn().Err(err).Msg("config watch disabled")
		}
	}

	printWelcome(a.out, a.cfg)
	for {
		line, err := PromptForQuestion()
		if err == errQuit {
			printInfo(a.out, "Goodbye!")
			return nil
		}
		if err != nil {
			return err
		}

		select {
		case next := <-updates:
			a.applyConfig(ctx, sess, next)
		default:
		}

		if handleLine(ctx, a, sess, line) == actionQuit {
			printInfo(a.out, "Goodbye!")
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// keepLatest returns a callback that leaves only the newest config in updates
// and never blocks the caller.
func keepLatest(updates chan config.Config) func(config.Config) {
	return func(c config.Config) {
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- c:
		default:
		}
	}
}

// handleLine runs a chat command or a conversation turn. Turn errors are
// shown and the session carries on.
func handleLine(ctx context.Context, a *app, sess *assistant.Session, line string) lineAction {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "":
		return actionContinue
	case "exit", "quit":
		return actionQuit
	case "/reset":
		sess.Reset()
		printInfo(a.out, "Conversation cleared.")
		return actionContinue
	case "/history":
		printHistory(a.out, sess.History())
		return actionContinue
	}

	reply, err := sess.Turn(ctx, line)
	if err != nil {
		printError(a.out, err)
		return actionContinue
	}
	printReply(a.out, reply)
	return actionContinue
}
