package cli

import (
	"fmt"
	"io"
	"strings"

	markdown "github.com/MichaelMure/go-term-markdown"
	"github.com/charmbracelet/lipgloss"
	"github.com/cloudwego/eino/schema"
	gomarkdown "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/parser"

	"github.com/dyike/StockPilot/config"
	"github.com/dyike/StockPilot/internal/assistant"
	"github.com/dyike/StockPilot/internal/tools"
)

const lineWidth = 80

// UI styles
var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7C3AED")).
		Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#3B82F6")).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#3B82F6")).
		Padding(0, 2).
		Width(lineWidth)

	toolCallStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#8B5CF6"))

	imageStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981")).
		Bold(true)

	infoStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B7280"))

	errorStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#EF4444")).
		Bold(true)

	roleStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#F59E0B")).
		Bold(true)
)

func printWelcome(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf(
		"StockPilot | model: %s (%s) | data: %s",
		cfg.ChatModel, cfg.LLMProvider, cfg.MarketDataProvider)))
	fmt.Fprintln(w, infoStyle.Render("Ask about any stock. /history shows the conversation, /reset clears it, exit leaves."))
	fmt.Fprintln(w)
}

// renderMarkdown renders answer text for the terminal.
func renderMarkdown(text string) string {
	p := parser.NewWithExtensions(markdown.Extensions())
	doc := p.Parse([]byte(text))
	return string(gomarkdown.Render(doc, markdown.NewRenderer(lineWidth, 2)))
}

func printReply(w io.Writer, reply *assistant.Reply) {
	if reply == nil {
		return
	}
	if reply.Tool != "" {
		fmt.Fprintln(w, toolCallStyle.Render("tool: "+reply.Tool))
	}
	if reply.ImagePath != "" {
		fmt.Fprintln(w, imageStyle.Render("Chart saved to "+reply.ImagePath))
		return
	}
	fmt.Fprint(w, renderMarkdown(reply.Text))
	fmt.Fprintln(w)
}

func printError(w io.Writer, err error) {
	fmt.Fprintln(w, errorStyle.Render("✗ "+assistant.Describe(err)))
}

func printInfo(w io.Writer, msg string) {
	fmt.Fprintln(w, infoStyle.Render(msg))
}

func printCheck(w io.Writer, label string, err error) {
	if err != nil {
		fmt.Fprintf(w, "%-32s %s\n", label, errorStyle.Render("✗ "+err.Error()))
		return
	}
	fmt.Fprintf(w, "%-32s %s\n", label, imageStyle.Render("✓"))
}

func printHistory(w io.Writer, msgs []*schema.Message) {
	if len(msgs) == 0 {
		printInfo(w, "No messages yet.")
		return
	}
	for i, m := range msgs {
		fmt.Fprintf(w, "%2d %s %s\n", i+1, roleStyle.Render(historyRole(m)), historyText(m))
	}
}

func historyRole(m *schema.Message) string {
	if m.Role == schema.Tool && m.ToolName != "" {
		return fmt.Sprintf("%s(%s)", m.Role, m.ToolName)
	}
	return string(m.Role)
}

func historyText(m *schema.Message) string {
	if len(m.ToolCalls) > 0 {
		calls := make([]string, 0, len(m.ToolCalls))
		for _, c := range m.ToolCalls {
			calls = append(calls, fmt.Sprintf("%s(%s)", c.Function.Name, c.Function.Arguments))
		}
		return toolCallStyle.Render("calls " + strings.Join(calls, ", "))
	}
	return m.Content
}

func printTools(w io.Writer, specs []tools.ToolSpec) {
	fmt.Fprintln(w, titleStyle.Render("Available tools"))
	for _, s := range specs {
		params := make([]string, 0, len(s.Params))
		for _, p := range s.Params {
			params = append(params, fmt.Sprintf("%s %s", p.Name, p.Type))
		}
		fmt.Fprintf(w, "  %s(%s)\n", toolCallStyle.Render(s.Name), strings.Join(params, ", "))
		fmt.Fprintf(w, "      %s\n", s.Description)
	}
}

func printConfig(w io.Writer, cfg *config.Config, path string) {
	fmt.Fprintln(w, titleStyle.Render("Current StockPilot Configuration"))
	if path != "" {
		fmt.Fprintf(w, "Config File:          %s\n", path)
	}
	fmt.Fprintf(w, "Data Directory:       %s\n", cfg.DataDir)
	fmt.Fprintf(w, "Chart Path:           %s\n", cfg.ChartPath)
	fmt.Fprintf(w, "Log File:             %s\n", cfg.LogPath())
	fmt.Fprintln(w)
	fmt.Fprintf(w, "LLM Provider:         %s\n", cfg.LLMProvider)
	fmt.Fprintf(w, "Chat Model:           %s\n", cfg.ChatModel)
	fmt.Fprintf(w, "Backend URL:          %s\n", valueOr(cfg.BackendURL, "(provider default)"))
	fmt.Fprintf(w, "API Key:              %s\n", configured(cfg.APIKey != ""))
	fmt.Fprintf(w, "API Key File:         %s\n", cfg.APIKeyFile)
	fmt.Fprintf(w, "Model Timeout:        %s\n", cfg.ModelTimeout)
	fmt.Fprintf(w, "System Prompt:        %s\n", valueOr(cfg.SystemPrompt, "(none)"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Market Data:          %s\n", cfg.MarketDataProvider)
	fmt.Fprintf(w, "Market Timeout:       %s\n", cfg.MarketDataTimeout)
	fmt.Fprintf(w, "RSI Period:           %d\n", cfg.RSIPeriod)
	fmt.Fprintf(w, "Finnhub API:          %s\n", configured(cfg.FinnhubAPIKey != ""))
	fmt.Fprintf(w, "Longport API:         %s\n", configured(cfg.LongportAppKey != "" && cfg.LongportAccessToken != ""))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Debug Mode:           %t\n", cfg.Debug)
	fmt.Fprintf(w, "Log Level:            %s\n", cfg.LogLevel)
}

func configured(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
