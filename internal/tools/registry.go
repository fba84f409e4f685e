// Package tools declares the function tools offered to the chat model and
// executes the calls the model makes against them.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/tool"
	t_utils "github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/dyike/StockPilot/internal/dataflows"
	"github.com/dyike/StockPilot/internal/indicators"
)

// ToolKind tags each registered tool with the computation it performs.
type ToolKind int

const (
	KindPrice ToolKind = iota
	KindSMA
	KindEMA
	KindRSI
	KindMACD
	KindPlot
)

type ParamSpec struct {
	Name        string
	Type        schema.DataType
	Description string
	Required    bool
}

// ToolSpec is the declarative description of a tool as advertised to the model.
type ToolSpec struct {
	Kind        ToolKind
	Name        string
	Description string
	Params      []ParamSpec
}

// Param returns the declared parameter with the given name.
func (s ToolSpec) Param(name string) (ParamSpec, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}

// ToolInfo converts the spec into the eino schema sent with a model request.
func (s ToolSpec) ToolInfo() *schema.ToolInfo {
	params := make(map[string]*schema.ParameterInfo, len(s.Params))
	for _, p := range s.Params {
		params[p.Name] = &schema.ParameterInfo{
			Type:     p.Type,
			Desc:     p.Description,
			Required: p.Required,
		}
	}
	return &schema.ToolInfo{
		Name:        s.Name,
		Desc:        s.Description,
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}
}

// TickerArgs is the argument record of the single-ticker tools.
type TickerArgs struct {
	Ticker string `json:"ticker"`
}

// WindowArgs is the argument record of the moving-average tools.
type WindowArgs struct {
	Ticker string `json:"ticker"`
	Window int    `json:"window"`
}

// Result is the outcome of one tool invocation. ImagePath is only set by the
// chart tool.
type Result struct {
	Text      string
	ImagePath string
}

func (r Result) String() string {
	if r.ImagePath != "" {
		return r.ImagePath
	}
	return r.Text
}

type Options struct {
	ChartPath    string
	RSIPeriod    int
	FetchTimeout time.Duration
	Logger       zerolog.Logger
}

// Registry holds the fixed tool set and the collaborators the tools call.
type Registry struct {
	provider dataflows.Provider
	opts     Options
	logger   zerolog.Logger
	specs    []ToolSpec
	byName   map[string]ToolSpec
}

func NewRegistry(provider dataflows.Provider, opts Options) *Registry {
	if opts.RSIPeriod <= 0 {
		opts.RSIPeriod = indicators.DefaultRSIPeriod
	}
	if opts.ChartPath == "" {
		opts.ChartPath = "stock.png"
	}

	specs := marketToolSpecs()
	byName := make(map[string]ToolSpec, len(specs))
	for _, s := range specs {
		byName[s.Name] = s
	}

	return &Registry{
		provider: provider,
		opts:     opts,
		logger:   opts.Logger.With().Str("component", "tools").Logger(),
		specs:    specs,
		byName:   byName,
	}
}

// List returns the registered tool specs in declaration order.
func (r *Registry) List() []ToolSpec {
	out := make([]ToolSpec, len(r.specs))
	copy(out, r.specs)
	return out
}

func (r *Registry) Lookup(name string) (ToolSpec, bool) {
	s, ok := r.byName[name]
	return s, ok
}

func (r *Registry) ToolInfos() []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(r.specs))
	for _, s := range r.specs {
		infos = append(infos, s.ToolInfo())
	}
	return infos
}

// Invoke decodes argsJSON against the named tool's parameters and runs it.
func (r *Registry) Invoke(ctx context.Context, name, argsJSON string) (Result, error) {
	spec, ok := r.byName[name]
	if !ok {
		return Result{}, &UnknownToolError{Name: name}
	}

	fields, err := spec.decode(argsJSON)
	if err != nil {
		return Result{}, err
	}

	switch spec.Kind {
	case KindSMA, KindEMA:
		return r.execute(ctx, spec, WindowArgs{
			Ticker: fields.str("ticker"),
			Window: fields.integer("window"),
		})
	default:
		return r.execute(ctx, spec, TickerArgs{Ticker: fields.str("ticker")})
	}
}

// Tools wraps every registered tool as an eino invokable tool.
func (r *Registry) Tools() []tool.BaseTool {
	out := make([]tool.BaseTool, 0, len(r.specs))
	for _, spec := range r.specs {
		out = append(out, r.einoTool(spec))
	}
	return out
}

func (r *Registry) einoTool(spec ToolSpec) tool.BaseTool {
	switch spec.Kind {
	case KindSMA, KindEMA:
		return t_utils.NewTool[WindowArgs, string](spec.ToolInfo(),
			func(ctx context.Context, in WindowArgs) (string, error) {
				res, err := r.execute(ctx, spec, in)
				if err != nil {
					return "", err
				}
				return res.String(), nil
			})
	default:
		return t_utils.NewTool[TickerArgs, string](spec.ToolInfo(),
			func(ctx context.Context, in TickerArgs) (string, error) {
				res, err := r.execute(ctx, spec, in)
				if err != nil {
					return "", err
				}
				return res.String(), nil
			})
	}
}

type argValues map[string]any

func (a argValues) str(name string) string {
	s, _ := a[name].(string)
	return s
}

func (a argValues) integer(name string) int {
	n, _ := a[name].(int)
	return n
}

// decode checks raw against the declared parameters. Undeclared keys are
// dropped.
func (s ToolSpec) decode(raw string) (argValues, error) {
	if strings.TrimSpace(raw) == "" {
		raw = "{}"
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, &MalformedToolCallError{Tool: s.Name, Reason: "arguments are not a JSON object", Err: err}
	}

	values := make(argValues, len(s.Params))
	for _, p := range s.Params {
		v, ok := obj[p.Name]
		if !ok || string(v) == "null" {
			if p.Required {
				return nil, &MissingArgumentError{Tool: s.Name, Argument: p.Name}
			}
			continue
		}

		switch p.Type {
		case schema.Integer:
			var f float64
			if err := json.Unmarshal(v, &f); err != nil {
				return nil, &MalformedToolCallError{Tool: s.Name, Reason: fmt.Sprintf("%q must be an integer", p.Name), Err: err}
			}
			if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
				return nil, &MalformedToolCallError{Tool: s.Name, Reason: fmt.Sprintf("%q must be an integer, got %v", p.Name, f)}
			}
			values[p.Name] = int(f)
		default:
			var str string
			if err := json.Unmarshal(v, &str); err != nil {
				return nil, &MalformedToolCallError{Tool: s.Name, Reason: fmt.Sprintf("%q must be a string", p.Name), Err: err}
			}
			if strings.TrimSpace(str) == "" && p.Required {
				return nil, &MissingArgumentError{Tool: s.Name, Argument: p.Name}
			}
			values[p.Name] = str
		}
	}
	return values, nil
}
