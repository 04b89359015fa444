package script

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// ─── Mock Dependencies ──────────────────────────────────────────────

type call struct {
	name string
	args []any
}

type recordingPrimitives struct {
	mu         sync.Mutex
	calls      []call
	publishErr error
}

func (p *recordingPrimitives) record(name string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call{name: name, args: args})
}

func (p *recordingPrimitives) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.calls))
	for i, c := range p.calls {
		out[i] = c.name
	}
	return out
}

func (p *recordingPrimitives) Say(text, voice string, _ map[string]any) bool {
	p.record("say", text, voice)
	return true
}

func (p *recordingPrimitives) Play(sound string, background bool) bool {
	p.record("play", sound, background)
	return true
}

func (p *recordingPrimitives) StopSound(sound string, instance int) {
	p.record("stop", sound, instance)
}

func (p *recordingPrimitives) Publish(topic, message string) error {
	p.record("publish", topic, message)
	return p.publishErr
}

func (p *recordingPrimitives) Eyes(intensity float64, d time.Duration) {
	p.record("eyes", intensity, d)
}

// ─── Interpreter ────────────────────────────────────────────────────

func TestInterpreter_RunsPrimitivesInOrder(t *testing.T) {
	prims := &recordingPrimitives{}
	in := NewInterpreter(prims, time.Second, nil)

	err := in.Run(context.Background(),
		`play("creak.wav", true); pause(0.01); say("Oh. It is you, {{.member_name}}.")`,
		map[string]any{"member_name": "Bob"})
	require.NoError(t, err)

	assert.Equal(t, []string{"play", "say"}, prims.names())
	assert.Equal(t, []any{"creak.wav", true}, prims.calls[0].args)
	assert.Equal(t, []any{"Oh. It is you, {{.member_name}}.", ""}, prims.calls[1].args)
}

func TestInterpreter_StateVariables(t *testing.T) {
	prims := &recordingPrimitives{}
	in := NewInterpreter(prims, time.Second, nil)

	state := map[string]any{
		"hour":       float64(15),
		"member":     "Alice",
		"arrival":    true,
		"count":      int64(3),
		"not-an-id":  "skipped",
		"random":     0.5,
		"boot_time":  time.Now(),
		"door_1":     struct{}{},
	}
	err := in.Run(context.Background(), `
if arrival && hour > 12 && count == 3 {
	sayAs("narrator", member)
}
publish("nh/test", get("member").(string))
`, state)
	require.NoError(t, err)

	require.Len(t, prims.calls, 2)
	assert.Equal(t, []any{"Alice", "narrator"}, prims.calls[0].args)
	assert.Equal(t, []any{"nh/test", "Alice"}, prims.calls[1].args)
}

func TestInterpreter_RandomHelpers(t *testing.T) {
	prims := &recordingPrimitives{}
	in := NewInterpreter(prims, time.Second, nil)
	in.random = func() float64 { return 0.75 }
	in.intN = func(n int) int { return n - 1 }

	err := in.Run(context.Background(), `
if random() == 0.75 && randInt(1, 6) == 6 {
	say(choose("a", "b", "c"))
}
eyes(1, 0.5)
stop("cuckoo.wav")
`, nil)
	require.NoError(t, err)

	require.Len(t, prims.calls, 3)
	assert.Equal(t, []any{"c", ""}, prims.calls[0].args)
	assert.Equal(t, []any{1.0, 500 * time.Millisecond}, prims.calls[1].args)
	assert.Equal(t, []any{"cuckoo.wav", 0}, prims.calls[2].args)
}

func TestInterpreter_NoStandardLibrary(t *testing.T) {
	in := NewInterpreter(&recordingPrimitives{}, time.Second, nil)

	err := in.Run(context.Background(), `os.Exit(1)`, nil)
	assert.ErrorIs(t, err, ErrCompile)
}

func TestInterpreter_CompileError(t *testing.T) {
	in := NewInterpreter(&recordingPrimitives{}, time.Second, nil)

	err := in.Run(context.Background(), `say(`, nil)
	assert.ErrorIs(t, err, ErrCompile)
}

func TestInterpreter_PublishFailureIsFalse(t *testing.T) {
	prims := &recordingPrimitives{publishErr: errors.New("offline")}
	in := NewInterpreter(prims, time.Second, nil)

	err := in.Run(context.Background(), `if !publish("a", "b") { say("failed") }`, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"publish", "say"}, prims.names())
}

func TestInterpreter_CancelledPauseStopsActing(t *testing.T) {
	tests := []struct {
		name    string
		program string
	}{
		{"long pause", `say("before"); pause(10); say("after")`},
		{"busy loop", "say(\"before\")\nn := 0\nfor {\n\tn++\n\tif n < 0 {\n\t\tsay(\"after\")\n\t}\n}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

			prims := &recordingPrimitives{}
			in := NewInterpreter(prims, 50*time.Millisecond, nil)

			start := time.Now()
			err := in.Run(context.Background(), tt.program, nil)

			assert.ErrorIs(t, err, context.DeadlineExceeded)
			assert.Less(t, time.Since(start), 5*time.Second)

			// The abandoned program stops without acting again.
			time.Sleep(50 * time.Millisecond)
			assert.Equal(t, []string{"say"}, prims.names())
		})
	}
}

func TestInterpreter_PanicIsReported(t *testing.T) {
	in := NewInterpreter(&recordingPrimitives{}, time.Second, nil)

	err := in.Run(context.Background(), `panic("boom")`, nil)
	assert.ErrorIs(t, err, ErrPanic)
}

// ─── Evaluator ──────────────────────────────────────────────────────

func TestEvaluator(t *testing.T) {
	vars := map[string]any{
		"day_period":         "night",
		"special_day":        "",
		"hour":               float64(9),
		"minute":             float64(0),
		"temperature_median": 8.5,
		"arrival":            true,
		"uptime":             int64(7200),
	}

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"empty is true", "", true},
		{"whitespace is true", "   ", true},
		{"string equality", `day_period == "night"`, true},
		{"string inequality", `day_period != "night"`, false},
		{"empty string check", `special_day != ""`, false},
		{"numeric and bool", `minute == 0 && temperature_median < 10.0 && arrival`, true},
		{"integer state", `uptime > 3600`, true},
		{"unknown variable", `nobody == 1`, false},
		{"not boolean", `hour + 1`, false},
		{"statement injection", `true }; func init() { panic("x") }; func f() bool { return true`, false},
		{"syntax error", `hour ==`, false},
	}

	e := NewEvaluator(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Evaluate(tt.expr, vars, "test"))
		})
	}
}

func TestEvaluator_CheckReportsErrors(t *testing.T) {
	e := NewEvaluator(nil)

	_, err := e.Check(`missing > 1`, nil)
	assert.ErrorIs(t, err, ErrCompile)

	ok, err := e.Check(`1 < 2`, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluator_RunawayConditionIsAbandoned(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	e := NewEvaluator(nil)
	e.timeout = 50 * time.Millisecond

	start := time.Now()
	ok, err := e.Check(`func() bool { for {} }()`, nil)

	assert.False(t, ok)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.False(t, e.Evaluate(`func() bool { for {} }()`, nil, "runaway"))
}

// ─── Render ─────────────────────────────────────────────────────────

func TestRender(t *testing.T) {
	vars := map[string]any{"member_name": "Bob", "absence_message": "Long time no see."}

	tests := []struct {
		name    string
		tmpl    string
		want    string
		wantErr bool
	}{
		{"plain text untouched", "Hello there.", "Hello there.", false},
		{"substitution", "Hello {{.member_name}}. {{.absence_message}}", "Hello Bob. Long time no see.", false},
		{"missing key is empty", "Hi {{.nobody}}!", "Hi !", false},
		{"json directive kept", `{"voice": "narrator"}Hello {{.member_name}}`, `{"voice": "narrator"}Hello Bob`, false},
		{"bad template", "Hi {{.member_name", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.tmpl, vars)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeclarations(t *testing.T) {
	got := declarations(map[string]any{
		"b":     true,
		"f":     1.5,
		"i":     7,
		"s":     `say "hi"`,
		"type":  "keyword",
		"log":   "reserved",
		"x-y":   "bad",
		"nan":   struct{}{},
	}, map[string]bool{"log": true})

	want := "var b bool = true\n" +
		"var f float64 = 1.5\n" +
		"var i int = 7\n" +
		"var s string = \"say \\\"hi\\\"\"\n"
	assert.Equal(t, want, got)
}
