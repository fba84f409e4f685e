package assistant

import (
	"context"
	"errors"
	"fmt"

	"github.com/dyike/StockPilot/config"
	"github.com/dyike/StockPilot/internal/chart"
	"github.com/dyike/StockPilot/internal/dataflows"
	"github.com/dyike/StockPilot/internal/indicators"
	"github.com/dyike/StockPilot/internal/tools"
)

// ErrEmptyInput is returned for a blank user message.
var ErrEmptyInput = errors.New("empty input")

const (
	StageInitial  = "initial"
	StageFollowup = "followup"
)

// ModelAPIError wraps a failed chat completion. Stage tells whether the
// tool-selecting request or the followup request failed.
type ModelAPIError struct {
	Stage string
	Err   error
}

func (e *ModelAPIError) Error() string {
	return fmt.Sprintf("%s model request failed: %v", e.Stage, e.Err)
}

func (e *ModelAPIError) Unwrap() error {
	return e.Err
}

// Describe turns a Turn error into a sentence for the user.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var (
		unknownTool   *tools.UnknownToolError
		missingArg    *tools.MissingArgumentError
		malformed     *tools.MalformedToolCallError
		unknownTicker *dataflows.UnknownTickerError
		modelErr      *ModelAPIError
	)

	switch {
	case errors.Is(err, ErrEmptyInput):
		return "Please type a question."
	case errors.Is(err, config.ErrCredentialMissing):
		return "No API key is configured. Set it in the environment or in the API key file."
	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out. Please try again."
	case errors.As(err, &unknownTool):
		return fmt.Sprintf("The model asked for a tool that does not exist (%s).", unknownTool.Name)
	case errors.As(err, &missingArg):
		return fmt.Sprintf("The model called %s without the %q argument.", missingArg.Tool, missingArg.Argument)
	case errors.As(err, &malformed):
		return fmt.Sprintf("The model sent arguments for %s that could not be read: %s.", malformed.Tool, malformed.Reason)
	case errors.As(err, &unknownTicker):
		return fmt.Sprintf("No price data was found for %s.", unknownTicker.Ticker)
	case errors.Is(err, dataflows.ErrInvalidTicker):
		return "That does not look like a valid ticker symbol."
	case errors.Is(err, indicators.ErrInvalidWindow):
		return "The window must be a positive number of days."
	case errors.Is(err, indicators.ErrInsufficientData), errors.Is(err, chart.ErrInsufficientData):
		return "There is not enough price history to compute that."
	case errors.As(err, &modelErr):
		return fmt.Sprintf("The language model request failed: %v", modelErr.Err)
	default:
		return fmt.Sprintf("Something went wrong: %v", err)
	}
}
