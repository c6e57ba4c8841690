package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestNewFanoutHandlerCollapses(t *testing.T) {
	inner := slog.NewJSONHandler(&bytes.Buffer{}, nil)

	if _, ok := newFanoutHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every sink is nil")
	}
	if h := newFanoutHandler(nil, inner, nil); h != inner {
		t.Fatalf("expected the lone sink unwrapped, got %T", h)
	}
}

func TestFanoutHandlerRoutesByLevel(t *testing.T) {
	cases := []struct {
		name      string
		log       func(*slog.Logger)
		wantInfo  bool
		wantDebug bool
	}{
		{"debug reaches debug sink only", func(l *slog.Logger) { l.Debug("tts request") }, false, true},
		{"info reaches both", func(l *slog.Logger) { l.Info("draft announced") }, true, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var infoBuf, debugBuf bytes.Buffer
			h := newFanoutHandler(
				slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
				slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
			)
			tc.log(slog.New(h))
			if got := infoBuf.Len() > 0; got != tc.wantInfo {
				t.Errorf("info sink wrote=%v, want %v", got, tc.wantInfo)
			}
			if got := debugBuf.Len() > 0; got != tc.wantDebug {
				t.Errorf("debug sink wrote=%v, want %v", got, tc.wantDebug)
			}
		})
	}
}

func TestFanoutHandlerEnabledWhenAnySinkIs(t *testing.T) {
	h := newFanoutHandler(
		slog.NewJSONHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn}),
		slog.NewJSONHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("info should be disabled")
	}
	if !h.Enabled(context.Background(), slog.LevelWarn) {
		t.Fatal("warn should be enabled")
	}
}

func TestFanoutHandlerDerivedHandlersKeepAttrs(t *testing.T) {
	var a, b bytes.Buffer
	h := newFanoutHandler(slog.NewJSONHandler(&a, nil), slog.NewJSONHandler(&b, nil))
	logger := slog.New(h).With(slog.String(FieldComponent, "watcher")).WithGroup("draft")
	logger.Info("draft seen", slog.String("stem", "hiring"))

	for name, buf := range map[string]*bytes.Buffer{"first": &a, "second": &b} {
		out := buf.String()
		if !strings.Contains(out, `"component":"watcher"`) || !strings.Contains(out, `"draft":{"stem":"hiring"}`) {
			t.Errorf("%s sink missing attrs: %s", name, out)
		}
	}
}

func TestFanoutHandlerJoinsErrors(t *testing.T) {
	errA := errors.New("disk full")
	errB := errors.New("pipe closed")
	h := newFanoutHandler(failingHandler{errA}, failingHandler{errB})

	err := h.Handle(context.Background(), slog.NewRecord(time.Time{}, slog.LevelInfo, "x", 0))
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("expected both sink errors, got %v", err)
	}
}

func TestJSONReplacerMasksSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newJSONHandler(&buf, new(slog.LevelVar), false))
	logger.Info("medium request",
		slog.String("integration_token", "tok"),
		slog.String("authorization", "Bearer tok"),
		slog.Int("max_tokens", 2000),
	)
	out := buf.String()
	if strings.Contains(out, "tok\"") {
		t.Fatalf("secret leaked: %s", out)
	}
	if !strings.Contains(out, `"max_tokens":2000`) {
		t.Fatalf("non-secret field masked: %s", out)
	}
	if !strings.Contains(out, `"level":"info"`) || !strings.Contains(out, `"msg":"medium request"`) {
		t.Fatalf("unexpected schema: %s", out)
	}
}

type failingHandler struct{ err error }

func (failingHandler) Enabled(context.Context, slog.Level) bool    { return true }
func (f failingHandler) Handle(context.Context, slog.Record) error { return f.err }
func (f failingHandler) WithAttrs([]slog.Attr) slog.Handler        { return f }
func (f failingHandler) WithGroup(string) slog.Handler             { return f }
