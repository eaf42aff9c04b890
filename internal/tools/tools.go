// Package tools exposes the approximation operations as JSON tool calls.
// Each caller works in a session created by set_function; a session holds
// one Approximator and so one derivative cache.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/njchilds90/gotaylor/report"
	"github.com/njchilds90/gotaylor/symbolic"
	"github.com/njchilds90/gotaylor/taylor"
)

// ============================================================
// Wire types
// ============================================================

type Request struct {
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params"`
}

type Response struct {
	Result interface{} `json:"result,omitempty"`
	LaTeX  string      `json:"latex,omitempty"`
	String string      `json:"string,omitempty"`
	Error  string      `json:"error,omitempty"`
}

func failure(err error) Response { return Response{Error: err.Error()} }

// ============================================================
// Handler
// ============================================================

// Handler dispatches tool calls. It is safe for concurrent use.
type Handler struct {
	logger     *zap.Logger
	approxOpts []taylor.Option
	generator  *report.Generator
	outputDir  string
	maxSess    int

	mu       sync.Mutex
	sessions map[string]*taylor.Approximator
}

type Option func(*Handler)

func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithApproximatorOptions applies opts to every session's Approximator.
func WithApproximatorOptions(opts ...taylor.Option) Option {
	return func(h *Handler) { h.approxOpts = append(h.approxOpts, opts...) }
}

func WithGenerator(g *report.Generator) Option {
	return func(h *Handler) { h.generator = g }
}

// WithOutputDir sets the directory that receives one report subdirectory
// per session.
func WithOutputDir(dir string) Option {
	return func(h *Handler) { h.outputDir = dir }
}

// WithMaxSessions caps the number of open sessions. set_function fails for
// a new session once the cap is reached.
func WithMaxSessions(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxSess = n
		}
	}
}

func NewHandler(opts ...Option) *Handler {
	h := &Handler{
		logger:    zap.NewNop(),
		outputDir: "taylor_output",
		maxSess:   1000,
		sessions:  make(map[string]*taylor.Approximator),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.generator == nil {
		h.generator = report.NewGenerator(report.WithLogger(h.logger))
	}
	h.approxOpts = append(h.approxOpts, taylor.WithLogger(h.logger))
	return h
}

// Sessions returns the number of open sessions.
func (h *Handler) Sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func (h *Handler) session(id string) (*taylor.Approximator, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	a, ok := h.sessions[id]
	if !ok {
		return nil, fmt.Errorf("unknown session: %s", id)
	}
	return a, nil
}

// ============================================================
// Parameters
// ============================================================

type params map[string]interface{}

func (p params) string(key string) (string, error) {
	v, ok := p[key]
	if !ok {
		return "", fmt.Errorf("missing param: %s", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("param %s must be a string", key)
	}
	return s, nil
}

func (p params) number(key string) (float64, error) {
	v, ok := p[key]
	if !ok {
		return 0, fmt.Errorf("missing param: %s", key)
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("param %s must be a number", key)
	}
	return f, nil
}

func (p params) integer(key string) (int, error) {
	f, err := p.number(key)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("param %s must be an integer", key)
	}
	if math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("param %s is out of range", key)
	}
	return int(f), nil
}

func (p params) boolean(key string) (bool, error) {
	v, ok := p[key]
	if !ok {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("param %s must be a boolean", key)
	}
	return b, nil
}

// numbers reads an optional array of numbers.
func (p params) numbers(key string) ([]float64, error) {
	v, ok := p[key]
	if !ok {
		return nil, nil
	}
	raw, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("param %s must be array", key)
	}
	out := make([]float64, len(raw))
	for i, r := range raw {
		f, ok := r.(float64)
		if !ok {
			return nil, fmt.Errorf("param %s[%d] must be number", key, i)
		}
		out[i] = f
	}
	return out, nil
}

func (p params) integers(key string) ([]int, error) {
	fs, err := p.numbers(key)
	if err != nil {
		return nil, err
	}
	if fs == nil {
		return nil, fmt.Errorf("missing param: %s", key)
	}
	out := make([]int, len(fs))
	for i, f := range fs {
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("param %s[%d] must be integer", key, i)
		}
		if math.Abs(f) > math.MaxInt32 {
			return nil, fmt.Errorf("param %s[%d] is out of range", key, i)
		}
		out[i] = int(f)
	}
	return out, nil
}

// function reads the formula either as source text in "function" or as an
// expression tree in "expr", given as the object form or its JSON text.
func (p params) function() (string, error) {
	v, ok := p["expr"]
	if !ok {
		return p.string("function")
	}
	if _, both := p["function"]; both {
		return "", fmt.Errorf("pass either function or expr, not both")
	}
	var (
		e   symbolic.Expr
		err error
	)
	switch raw := v.(type) {
	case map[string]interface{}:
		e, err = symbolic.FromJSON(raw)
	case string:
		e, err = symbolic.DecodeJSON(raw)
	default:
		return "", fmt.Errorf("param expr must be an object or a JSON string")
	}
	if err != nil {
		return "", fmt.Errorf("invalid expr: %w", err)
	}
	return e.String(), nil
}

// point reads the session, x0 and order shared by most tools.
func (h *Handler) point(p params) (a *taylor.Approximator, x0 float64, order int, err error) {
	id, err := p.string("session")
	if err != nil {
		return nil, 0, 0, err
	}
	if a, err = h.session(id); err != nil {
		return nil, 0, 0, err
	}
	if x0, err = p.number("x0"); err != nil {
		return nil, 0, 0, err
	}
	if order, err = p.integer("order"); err != nil {
		return nil, 0, 0, err
	}
	return a, x0, order, nil
}

// finite maps NaN and infinities to nil since JSON cannot carry them.
func finite(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

// ============================================================
// Dispatch
// ============================================================

// Handle runs one tool call. Failures are reported in Response.Error.
func (h *Handler) Handle(ctx context.Context, req Request) Response {
	p := params(req.Params)
	if p == nil {
		p = params{}
	}
	h.logger.Debug("tool call", zap.String("tool", req.Tool))

	switch req.Tool {
	case "set_function":
		return h.setFunction(p)
	case "approximate":
		return h.approximate(ctx, p)
	case "evaluate":
		return h.evaluate(p)
	case "report":
		return h.report(ctx, p)
	case "close_session":
		id, err := p.string("session")
		if err != nil {
			return failure(err)
		}
		h.mu.Lock()
		_, ok := h.sessions[id]
		delete(h.sessions, id)
		h.mu.Unlock()
		if !ok {
			return failure(fmt.Errorf("unknown session: %s", id))
		}
		return Response{Result: map[string]interface{}{"session": id, "closed": true}}
	case "tool_spec":
		return Response{Result: json.RawMessage(ToolSpec()), String: ToolSpec()}
	}
	return Response{Error: fmt.Sprintf("unknown tool: %s", req.Tool)}
}

// setFunction opens a session, or replaces the function of an existing one
// when a session is given.
func (h *Handler) setFunction(p params) Response {
	src, err := p.function()
	if err != nil {
		return failure(err)
	}
	var (
		id string
		a  *taylor.Approximator
	)
	if _, given := p["session"]; given {
		if id, err = p.string("session"); err != nil {
			return failure(err)
		}
		if a, err = h.session(id); err != nil {
			return failure(err)
		}
	} else {
		if h.Sessions() >= h.maxSess {
			return failure(fmt.Errorf("session limit reached (%d)", h.maxSess))
		}
		id, a = uuid.NewString(), taylor.NewApproximator(h.approxOpts...)
	}
	if err := a.SetFunction(src); err != nil {
		return failure(err)
	}
	fn, _ := a.Function()

	h.mu.Lock()
	if _, open := h.sessions[id]; !open && len(h.sessions) >= h.maxSess {
		h.mu.Unlock()
		return failure(fmt.Errorf("session limit reached (%d)", h.maxSess))
	}
	h.sessions[id] = a
	h.mu.Unlock()
	h.logger.Info("function set", zap.String("session", id), zap.String("function", src))

	return Response{
		Result: map[string]interface{}{
			"session":  id,
			"function": fn.Source(),
			"expr":     symbolic.ToMap(fn.Expr()),
		},
		LaTeX:  symbolic.LaTeX(fn.Expr()),
		String: fn.String(),
	}
}

func (h *Handler) approximate(ctx context.Context, p params) Response {
	a, x0, order, err := h.point(p)
	if err != nil {
		return failure(err)
	}
	parallel, err := p.boolean("parallel")
	if err != nil {
		return failure(err)
	}
	var approx *taylor.Approximation
	if parallel {
		approx, err = a.ParallelSeries(ctx, x0, order)
	} else {
		approx, err = a.Series(x0, order)
	}
	if err != nil {
		return failure(err)
	}

	terms := make([]string, len(approx.Terms))
	for i, t := range approx.Terms {
		terms[i] = t.Expr.String()
	}
	result := map[string]interface{}{
		"x0":              approx.X0,
		"order":           approx.Order,
		"terms":           terms,
		"series":          symbolic.ToMap(approx.Polynomial),
		"parallel":        approx.Parallel,
		"elapsed_seconds": approx.Elapsed.Seconds(),
	}
	resp := Response{Result: result, String: approx.String(), LaTeX: symbolic.LaTeX(approx.Polynomial)}
	if simplified, ok := approx.Simplified(); ok {
		result["simplified"] = simplified.String()
		resp.LaTeX = symbolic.LaTeX(simplified)
	}
	return resp
}

func (h *Handler) evaluate(p params) Response {
	a, x0, order, err := h.point(p)
	if err != nil {
		return failure(err)
	}
	points, err := p.numbers("points")
	if err != nil {
		return failure(err)
	}
	if len(points) == 0 {
		return failure(fmt.Errorf("missing param: points"))
	}
	rows, err := a.Evaluate(x0, order, points)
	if err != nil {
		return failure(err)
	}

	out := make([]map[string]interface{}, len(rows))
	for i, r := range rows {
		row := map[string]interface{}{
			"x":      r.X,
			"exact":  finite(r.Exact),
			"approx": finite(r.Approx),
			"error":  finite(r.Error),
			"bound":  finite(r.Bound),
		}
		if r.Err != nil {
			row["error_message"] = r.Err.Error()
		}
		if r.BoundErr != nil {
			row["bound_message"] = r.BoundErr.Error()
		}
		out[i] = row
	}
	return Response{Result: out}
}

func (h *Handler) report(ctx context.Context, p params) Response {
	id, err := p.string("session")
	if err != nil {
		return failure(err)
	}
	a, err := h.session(id)
	if err != nil {
		return failure(err)
	}
	x0, err := p.number("x0")
	if err != nil {
		return failure(err)
	}
	orders, err := p.integers("orders")
	if err != nil {
		return failure(err)
	}
	points, err := p.numbers("points")
	if err != nil {
		return failure(err)
	}

	dir := filepath.Join(h.outputDir, id)
	path, err := h.generator.Generate(ctx, a, x0, report.NormalizeOrders(orders...), points, dir)
	if err != nil {
		return failure(err)
	}
	return Response{
		Result: map[string]interface{}{
			"report":             path,
			"approximation_plot": filepath.Join(dir, report.ApproximationPlotFile),
			"error_plot":         filepath.Join(dir, report.ErrorPlotFile),
		},
		String: path,
	}
}

// ============================================================
// Schema
// ============================================================

// ToolSpec returns the JSON schema of every tool.
func ToolSpec() string {
	tools := []map[string]interface{}{
		ts("set_function", "Parse f(x) and open a session. Give function as text or expr as an expression tree. Pass session to replace the function of an existing one", []string{}, map[string]string{"function": "string", "expr": "object", "session": "string"}),
		ts("approximate", "Taylor polynomial of the given order around x0. Optional: parallel", []string{"session", "x0", "order"}, map[string]string{"session": "string", "x0": "number", "order": "integer", "parallel": "boolean"}),
		ts("evaluate", "Exact value, approximation, error and Lagrange bound at each point", []string{"session", "x0", "order", "points"}, map[string]string{"session": "string", "x0": "number", "order": "integer", "points": "array"}),
		ts("report", "Write the text report and both plots for several orders", []string{"session", "x0", "orders"}, map[string]string{"session": "string", "x0": "number", "orders": "array", "points": "array"}),
		ts("close_session", "Drop a session and its derivative cache", []string{"session"}, map[string]string{"session": "string"}),
		ts("tool_spec", "Return this tool schema", []string{}, map[string]string{}),
	}
	b, _ := json.MarshalIndent(map[string]interface{}{"tools": tools}, "", "  ")
	return string(b)
}

func ts(name, description string, required []string, props map[string]string) map[string]interface{} {
	properties := map[string]interface{}{}
	for k, typ := range props {
		properties[k] = map[string]interface{}{"type": typ}
	}
	return map[string]interface{}{
		"name":        name,
		"description": description,
		"inputSchema": map[string]interface{}{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}
