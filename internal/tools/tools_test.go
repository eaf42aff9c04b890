package tools_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gonum.org/v1/plot/vg"

	"github.com/njchilds90/gotaylor/internal/tools"
	"github.com/njchilds90/gotaylor/report"
	"github.com/njchilds90/gotaylor/symbolic"
)

func newHandler(t *testing.T, opts ...tools.Option) *tools.Handler {
	t.Helper()
	logger := zaptest.NewLogger(t)
	plots := report.PlotOptions{Points: 40, Width: 3 * vg.Inch, Height: 2 * vg.Inch, LogScale: true}
	return tools.NewHandler(append([]tools.Option{
		tools.WithLogger(logger),
		tools.WithOutputDir(t.TempDir()),
		tools.WithGenerator(report.NewGenerator(report.WithPlotOptions(plots))),
	}, opts...)...)
}

// call decodes body the way the server does, so numbers arrive as float64.
func call(t *testing.T, h *tools.Handler, body string) tools.Response {
	t.Helper()
	var req tools.Request
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	return h.Handle(context.Background(), req)
}

func openSession(t *testing.T, h *tools.Handler, fn string) string {
	t.Helper()
	resp := call(t, h, fmt.Sprintf(`{"tool":"set_function","params":{"function":%q}}`, fn))
	require.Empty(t, resp.Error)
	result := resp.Result.(map[string]interface{})
	id, _ := result["session"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestSetFunction(t *testing.T) {
	h := newHandler(t)
	resp := call(t, h, `{"tool":"set_function","params":{"function":"sin(x)"}}`)
	require.Empty(t, resp.Error)
	assert.Equal(t, "sin(x)", resp.String)
	assert.Equal(t, `\sin\left(x\right)`, resp.LaTeX)
	result := resp.Result.(map[string]interface{})
	assert.Equal(t, "sin(x)", result["function"])
	assert.Equal(t, 1, h.Sessions())

	// Replacing the function keeps the session.
	id := result["session"].(string)
	resp = call(t, h, fmt.Sprintf(`{"tool":"set_function","params":{"function":"cos(x)","session":%q}}`, id))
	require.Empty(t, resp.Error)
	assert.Equal(t, id, resp.Result.(map[string]interface{})["session"])
	assert.Equal(t, 1, h.Sessions())
}

func TestSetFunction_Errors(t *testing.T) {
	h := newHandler(t)
	assert.Contains(t, call(t, h, `{"tool":"set_function","params":{}}`).Error, "missing param: function")
	assert.Contains(t, call(t, h, `{"tool":"set_function","params":{"function":"sin(x"}}`).Error, "invalid function")
	assert.Contains(t, call(t, h, `{"tool":"set_function","params":{"function":"x","session":"nope"}}`).Error, "unknown session")
	assert.Equal(t, 0, h.Sessions())
}

func TestSetFunction_FromExpr(t *testing.T) {
	h := newHandler(t)
	want := symbolic.MustParse("x^2 + sin(x)")

	tree, err := json.Marshal(symbolic.ToMap(want))
	require.NoError(t, err)
	resp := call(t, h, `{"tool":"set_function","params":{"expr":`+string(tree)+`}}`)
	require.Empty(t, resp.Error)
	assert.Equal(t, want.String(), resp.String)

	text, err := symbolic.ToJSON(want)
	require.NoError(t, err)
	resp = call(t, h, fmt.Sprintf(`{"tool":"set_function","params":{"expr":%q}}`, text))
	require.Empty(t, resp.Error)
	id := resp.Result.(map[string]interface{})["session"].(string)

	resp = call(t, h, fmt.Sprintf(`{"tool":"approximate","params":{"session":%q,"x0":0,"order":3,"parallel":true}}`, id))
	require.Empty(t, resp.Error)
	assert.Equal(t, true, resp.Result.(map[string]interface{})["parallel"])
	assert.Equal(t, 2, h.Sessions())
}

func TestSetFunction_ExprErrors(t *testing.T) {
	h := newHandler(t)
	cases := []struct{ params, want string }{
		{`{"expr":{"type":"sym","name":"y"}}`, "unknown symbol(s) y"},
		{`{"expr":{"type":"frob"}}`, "invalid expr"},
		{`{"expr":"{not json"}`, "invalid expr"},
		{`{"expr":42}`, "must be an object"},
		{`{"expr":{"type":"sym","name":"x"},"function":"x"}`, "not both"},
	}
	for _, c := range cases {
		resp := call(t, h, `{"tool":"set_function","params":`+c.params+`}`)
		assert.Contains(t, resp.Error, c.want, c.params)
	}
	assert.Equal(t, 0, h.Sessions())
}

func TestSetFunction_SessionLimit(t *testing.T) {
	h := newHandler(t, tools.WithMaxSessions(2))
	first := openSession(t, h, "x")
	openSession(t, h, "x^2")

	resp := call(t, h, `{"tool":"set_function","params":{"function":"x^3"}}`)
	assert.Equal(t, "session limit reached (2)", resp.Error)
	assert.Equal(t, 2, h.Sessions())

	// An open session can still change its function.
	resp = call(t, h, fmt.Sprintf(`{"tool":"set_function","params":{"function":"x^3","session":%q}}`, first))
	require.Empty(t, resp.Error)

	resp = call(t, h, fmt.Sprintf(`{"tool":"close_session","params":{"session":%q}}`, first))
	require.Empty(t, resp.Error)
	openSession(t, h, "x^4")
	assert.Equal(t, 2, h.Sessions())
}

func TestApproximate(t *testing.T) {
	h := newHandler(t)
	id := openSession(t, h, "exp(x)")

	for _, parallel := range []bool{false, true} {
		resp := call(t, h, fmt.Sprintf(`{"tool":"approximate","params":{"session":%q,"x0":0,"order":3,"parallel":%t}}`, id, parallel))
		require.Empty(t, resp.Error)
		assert.Equal(t, "1 + x + x^2/2 + x^3/6", resp.String)
		result := resp.Result.(map[string]interface{})
		assert.Equal(t, []string{"1", "x", "x^2/2", "x^3/6"}, result["terms"])
		assert.Equal(t, "1 + x + x^2/2 + x^3/6", result["simplified"])
		assert.Equal(t, parallel, result["parallel"])
	}
}

func TestApproximate_Errors(t *testing.T) {
	h := newHandler(t)
	id := openSession(t, h, "sin(x)")
	cases := []struct{ params, want string }{
		{`{"session":%q,"x0":0,"order":201}`, "invalid order"},
		{`{"session":%q,"x0":0,"order":1.5}`, "must be an integer"},
		{`{"session":%q,"x0":0,"order":1e300}`, "out of range"},
		{`{"session":%q,"x0":0,"order":-1e19}`, "out of range"},
		{`{"session":%q,"order":2}`, "missing param: x0"},
		{`{"session":%q,"x0":"0","order":2}`, "must be a number"},
		{`{"session":%q,"x0":0,"order":2,"parallel":"yes"}`, "must be a boolean"},
	}
	for _, c := range cases {
		resp := call(t, h, `{"tool":"approximate","params":`+fmt.Sprintf(c.params, id)+`}`)
		assert.Contains(t, resp.Error, c.want, c.params)
	}
	assert.Contains(t, call(t, h, `{"tool":"approximate","params":{"session":"nope","x0":0,"order":2}}`).Error, "unknown session")
}

func TestEvaluate(t *testing.T) {
	h := newHandler(t)
	id := openSession(t, h, "1/x")

	resp := call(t, h, fmt.Sprintf(`{"tool":"evaluate","params":{"session":%q,"x0":1,"order":2,"points":[0,2]}}`, id))
	require.Empty(t, resp.Error)
	rows := resp.Result.([]map[string]interface{})
	require.Len(t, rows, 2)

	assert.Nil(t, rows[0]["exact"])
	assert.Contains(t, rows[0], "error_message")
	assert.Equal(t, 0.5, rows[1]["exact"])
	assert.Equal(t, 1.0, rows[1]["approx"])
	assert.InDelta(t, 0.5, rows[1]["error"], 1e-12)

	// Rows must survive JSON encoding.
	_, err := json.Marshal(resp)
	assert.NoError(t, err)

	resp = call(t, h, fmt.Sprintf(`{"tool":"evaluate","params":{"session":%q,"x0":1,"order":2}}`, id))
	assert.Contains(t, resp.Error, "missing param: points")
}

func TestReport(t *testing.T) {
	h := newHandler(t)
	id := openSession(t, h, "sin(x)")

	resp := call(t, h, fmt.Sprintf(`{"tool":"report","params":{"session":%q,"x0":0,"orders":[3,1,3],"points":[-1,0,1]}}`, id))
	require.Empty(t, resp.Error)
	result := resp.Result.(map[string]interface{})
	for _, key := range []string{"report", "approximation_plot", "error_plot"} {
		_, err := os.Stat(result[key].(string))
		assert.NoError(t, err, key)
	}
	data, err := os.ReadFile(resp.String)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ORDER 1 APPROXIMATION")
	assert.Contains(t, string(data), "ORDER 3 APPROXIMATION")

	resp = call(t, h, fmt.Sprintf(`{"tool":"report","params":{"session":%q,"x0":0}}`, id))
	assert.Contains(t, resp.Error, "missing param: orders")

	resp = call(t, h, fmt.Sprintf(`{"tool":"report","params":{"session":%q,"x0":0,"orders":[2,1e300]}}`, id))
	assert.Contains(t, resp.Error, "param orders[1] is out of range")
}

func TestCloseSession(t *testing.T) {
	h := newHandler(t)
	id := openSession(t, h, "x^2")
	resp := call(t, h, fmt.Sprintf(`{"tool":"close_session","params":{"session":%q}}`, id))
	require.Empty(t, resp.Error)
	assert.Equal(t, 0, h.Sessions())
	resp = call(t, h, fmt.Sprintf(`{"tool":"close_session","params":{"session":%q}}`, id))
	assert.Contains(t, resp.Error, "unknown session")
}

func TestToolSpec(t *testing.T) {
	var spec struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal([]byte(tools.ToolSpec()), &spec))
	names := make([]string, len(spec.Tools))
	for i, tool := range spec.Tools {
		names[i] = tool.Name
	}
	assert.Equal(t, []string{"set_function", "approximate", "evaluate", "report", "close_session", "tool_spec"}, names)

	resp := call(t, newHandler(t), `{"tool":"tool_spec"}`)
	assert.Empty(t, resp.Error)
	assert.JSONEq(t, tools.ToolSpec(), resp.String)
}

func TestUnknownTool(t *testing.T) {
	resp := call(t, newHandler(t), `{"tool":"integrate","params":{}}`)
	assert.Equal(t, "unknown tool: integrate", resp.Error)
}

func TestHandler_ConcurrentSessions(t *testing.T) {
	h := newHandler(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := tools.Request{Tool: "set_function", Params: map[string]interface{}{"function": fmt.Sprintf("x^%d", i+1)}}
			resp := h.Handle(context.Background(), req)
			if resp.Error != "" {
				t.Errorf("want no error, got %s", resp.Error)
				return
			}
			id := resp.Result.(map[string]interface{})["session"].(string)
			req = tools.Request{Tool: "approximate", Params: map[string]interface{}{"session": id, "x0": 1.0, "order": float64(i + 1)}}
			if resp := h.Handle(context.Background(), req); resp.Error != "" {
				t.Errorf("want no error, got %s", resp.Error)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 8, h.Sessions())
}
