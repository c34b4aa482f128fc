package render

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeEngine struct {
	name string
	fn   func(ctx context.Context, markup string) ([]byte, error)
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) Render(ctx context.Context, markup string) ([]byte, error) {
	return f.fn(ctx, markup)
}

func okEngine(name string, size int) *fakeEngine {
	return &fakeEngine{name: name, fn: func(context.Context, string) ([]byte, error) {
		return bytes.Repeat([]byte("x"), size), nil
	}}
}

func failEngine(name string, err error) *fakeEngine {
	return &fakeEngine{name: name, fn: func(context.Context, string) ([]byte, error) {
		return nil, err
	}}
}

const sampleMarkup = `<html><body><h1>Abstract Summary</h1><p>Rupees One Only</p></body></html>`

func TestChain_FirstSuccessWins(t *testing.T) {
	boom := errors.New("boom")
	chain := NewChain([]Engine{failEngine("a", boom), okEngine("b", 2048), okEngine("c", 2048)})

	res := chain.Render(context.Background(), "Summary", sampleMarkup)

	if res.EngineUsed != "b" {
		t.Errorf("EngineUsed = %q, want b", res.EngineUsed)
	}
	if res.Fallback() || res.Suspect || res.Err != nil {
		t.Errorf("unexpected flags: fallback=%v suspect=%v err=%v", res.Fallback(), res.Suspect, res.Err)
	}
	if len(res.Attempts) != 1 || !errors.Is(res.Attempts[0], boom) {
		t.Errorf("Attempts = %v, want one wrapping boom", res.Attempts)
	}
	if res.SizeBytes != 2048 {
		t.Errorf("SizeBytes = %d, want 2048", res.SizeBytes)
	}
}

func TestChain_AttemptFailures(t *testing.T) {
	tests := []struct {
		name    string
		engine  Engine
		wantErr string
	}{
		{
			name: "timeout",
			engine: &fakeEngine{name: "slow", fn: func(ctx context.Context, _ string) ([]byte, error) {
				<-ctx.Done()
				time.Sleep(10 * time.Millisecond)
				return []byte("late"), nil
			}},
			wantErr: "timed out",
		},
		{
			name: "panic",
			engine: &fakeEngine{name: "panicky", fn: func(context.Context, string) ([]byte, error) {
				panic("engine exploded")
			}},
			wantErr: "panic: engine exploded",
		},
		{
			name:    "empty output",
			engine:  okEngine("empty", 0),
			wantErr: "empty output",
		},
		{
			name:    "error",
			engine:  failEngine("broken", errors.New("missing binary")),
			wantErr: "missing binary",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := NewChain([]Engine{tt.engine, okEngine("good", 4096)}, WithTimeout(30*time.Millisecond))

			res := chain.Render(context.Background(), "Doc", sampleMarkup)

			if res.EngineUsed != "good" {
				t.Fatalf("EngineUsed = %q, want good", res.EngineUsed)
			}
			if len(res.Attempts) != 1 {
				t.Fatalf("Attempts = %v, want 1", res.Attempts)
			}
			var ee *EngineError
			if !errors.As(res.Attempts[0], &ee) || ee.Engine != tt.engine.Name() {
				t.Fatalf("attempt error = %v, want EngineError for %s", res.Attempts[0], tt.engine.Name())
			}
			if !strings.Contains(res.Attempts[0].Error(), tt.wantErr) {
				t.Errorf("attempt error = %q, want it to contain %q", res.Attempts[0], tt.wantErr)
			}
		})
	}
}

func TestChain_TimeoutWrapsDeadline(t *testing.T) {
	slow := &fakeEngine{name: "slow", fn: func(ctx context.Context, _ string) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	chain := NewChain([]Engine{slow}, WithTimeout(10*time.Millisecond))

	res := chain.Render(context.Background(), "Doc", sampleMarkup)

	if !errors.Is(res.Err, context.DeadlineExceeded) {
		t.Errorf("Err = %v, want deadline exceeded", res.Err)
	}
	if !res.Fallback() {
		t.Errorf("EngineUsed = %q, want fallback", res.EngineUsed)
	}
}

func TestChain_AllFailUsesFallback(t *testing.T) {
	chain := NewChain([]Engine{
		failEngine("a", errors.New("first")),
		failEngine("b", errors.New("second")),
	})

	res := chain.Render(context.Background(), "Deviation Statement", sampleMarkup)

	if !res.Fallback() {
		t.Fatalf("EngineUsed = %q, want %q", res.EngineUsed, FallbackEngine)
	}
	if !bytes.HasPrefix(res.Bytes, []byte("%PDF")) {
		t.Error("fallback output does not start with a PDF header")
	}
	if res.Err == nil || !strings.Contains(res.Err.Error(), "first") || !strings.Contains(res.Err.Error(), "second") {
		t.Errorf("Err = %v, want both attempt errors", res.Err)
	}
	if len(res.Attempts) != 2 {
		t.Errorf("Attempts = %d, want 2", len(res.Attempts))
	}
}

func TestChain_NoEngines(t *testing.T) {
	res := NewChain(nil).Render(context.Background(), "Doc", sampleMarkup)

	if !errors.Is(res.Err, ErrNoEngines) {
		t.Errorf("Err = %v, want ErrNoEngines", res.Err)
	}
	if len(res.Bytes) == 0 || !res.Fallback() {
		t.Errorf("want non-empty fallback output, got %d bytes from %q", len(res.Bytes), res.EngineUsed)
	}
}

func TestChain_SuspectOutput(t *testing.T) {
	res := NewChain([]Engine{okEngine("tiny", 10)}).Render(context.Background(), "Doc", sampleMarkup)

	if !res.Suspect {
		t.Error("Suspect = false, want true for 10 bytes")
	}
	if res.EngineUsed != "tiny" {
		t.Errorf("EngineUsed = %q, want tiny", res.EngineUsed)
	}

	res = NewChain([]Engine{okEngine("tiny", 10)}, WithMinOutputBytes(5)).Render(context.Background(), "Doc", sampleMarkup)
	if res.Suspect {
		t.Error("Suspect = true with a 5 byte minimum")
	}
}

func TestChain_SanitizesUTF8(t *testing.T) {
	var got string
	capture := &fakeEngine{name: "capture", fn: func(_ context.Context, markup string) ([]byte, error) {
		got = markup
		return bytes.Repeat([]byte("x"), 2048), nil
	}}

	NewChain([]Engine{capture}).Render(context.Background(), "Doc", "<p>ok\xff\xfe</p>")

	if !strings.Contains(got, "�") || strings.Contains(got, "\xff") {
		t.Errorf("engine received %q, want invalid bytes replaced", got)
	}
}

func TestChain_MalformedMarkupNeverEmpty(t *testing.T) {
	inputs := []string{
		"",
		"<html><body><table><tr><td>unclosed",
		"plain text with no tags",
		"<p>\xff\xfe</p>",
		"<<<>>>",
	}
	chain := NewChain([]Engine{failEngine("a", errors.New("nope"))})
	for _, in := range inputs {
		res := chain.Render(context.Background(), "Doc", in)
		if len(res.Bytes) == 0 {
			t.Errorf("Render(%q) returned empty output", in)
		}
	}
}

func TestChain_Engines(t *testing.T) {
	chain := NewChain([]Engine{okEngine("a", 1), okEngine("b", 1)})
	got := strings.Join(chain.Engines(), ",")
	if got != "a,b" {
		t.Errorf("Engines() = %q, want a,b", got)
	}
}

func TestFPDF_Render(t *testing.T) {
	markup := `<html><head><style>body{color:red}</style></head><body>
<h1>Abstract Summary</h1>
<table><tr><th>Item</th><th>Amount</th></tr><tr><td>1 &lt;earth&gt;</td><td><b>32,463.00</b></td></tr></table>
<p>Rupees Thirty-two Thousand Only</p></body></html>`

	out, err := NewFPDF().Render(context.Background(), markup)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Error("output does not start with a PDF header")
	}
}

func TestFPDF_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewFPDF().Render(ctx, sampleMarkup); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestFlatten(t *testing.T) {
	markup := `<h1>Bill</h1><table><tr><th>A</th><th>B</th></tr><tr><td>1 &lt;x&gt;</td><td><b>2</b></td></tr></table>`

	got := flatten(markup)

	want := []block{
		{level: 1, text: "Bill", inline: "Bill"},
		{text: "A | B", inline: "<b>A</b> | <b>B</b>"},
		{text: "1 <x> | 2", inline: "1 ‹x› | <b>2</b>"},
	}
	if len(got) != len(want) {
		t.Fatalf("flatten() = %+v, want %d blocks", got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("block %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
