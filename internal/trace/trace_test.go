package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"off":     LevelOff,
		"ERROR":   LevelError,
		"request": LevelRequest,
		"detail":  LevelDetail,
		"debug":   LevelDebug,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestLevelFiltering(t *testing.T) {
	cases := []struct {
		level Level
		kind  Kind
		scope Scope
		want  bool
	}{
		{LevelOff, KindError, ScopeServer, false},
		{LevelError, KindError, ScopeStep, true},
		{LevelError, KindPoint, ScopeServer, false},
		{LevelRequest, KindSpanBegin, ScopeRequest, true},
		{LevelRequest, KindSpanBegin, ScopeToolchain, false},
		{LevelDetail, KindSpanEnd, ScopeToolchain, true},
		{LevelDetail, KindSpanEnd, ScopeStep, false},
		{LevelDebug, KindPoint, ScopeStep, true},
	}
	for _, tc := range cases {
		if got := tc.level.ShouldEmit(tc.kind, tc.scope); got != tc.want {
			t.Fatalf("%v.ShouldEmit(%v, %v) = %v, want %v", tc.level, tc.kind, tc.scope, got, tc.want)
		}
	}
}

func TestStreamTracerNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelRequest, Mode: ModeStream, Format: FormatNDJSON, Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	span := Begin(tr, ScopeRequest, "POST /compile", 0)
	span.WithExtra("status", "200")
	span.End("ok")
	// filtered out at request level
	Begin(tr, ScopeStep, "build", span.ID()).End("")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 events, got %d:\n%s", len(lines), buf.String())
	}
	var end struct {
		Kind   string            `json:"kind"`
		Scope  string            `json:"scope"`
		Name   string            `json:"name"`
		Detail string            `json:"detail"`
		Extra  map[string]string `json:"extra"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &end); err != nil {
		t.Fatalf("invalid ndjson %q: %v", lines[1], err)
	}
	if end.Kind != "end" || end.Scope != "request" || end.Name != "POST /compile" || end.Detail != "ok" {
		t.Fatalf("unexpected end event %#v", end)
	}
	if end.Extra["status"] != "200" {
		t.Fatalf("missing extra: %#v", end.Extra)
	}
}

func TestTextFormatSortsExtras(t *testing.T) {
	ev := &Event{
		Time:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Kind:  KindPoint,
		Scope: ScopeServer,
		Name:  "listening",
		Extra: map[string]string{"b": "2", "a": "1"},
	}
	got := string(FormatEvent(ev, FormatText))
	if !strings.Contains(got, "• listening {a=1, b=2}") {
		t.Fatalf("unexpected text event %q", got)
	}
}

func TestErrorPointPassesErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelError, FormatText)
	Point(tr, ScopeServer, "ignored", "")
	Error(tr, ScopeStep, "build", errors.New("exit status 1"), "file", "a.move")
	Error(tr, ScopeStep, "build", nil)
	out := buf.String()
	if strings.Contains(out, "ignored") {
		t.Fatalf("point should be filtered: %q", out)
	}
	if !strings.Contains(out, "! build (exit status 1) {file=a.move}") {
		t.Fatalf("missing error event: %q", out)
	}
}

func TestRingTracerWrapsInOrder(t *testing.T) {
	ring := NewRingTracer(3, LevelDebug)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		Point(ring, ScopeStep, name, "")
	}
	snap := ring.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 events, got %d", len(snap))
	}
	for i, want := range []string{"c", "d", "e"} {
		if snap[i].Name != want {
			t.Fatalf("snapshot[%d] = %q, want %q", i, snap[i].Name, want)
		}
	}
	var buf bytes.Buffer
	if err := ring.Dump(&buf, FormatText); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if strings.Count(buf.String(), "\n") != 3 {
		t.Fatalf("unexpected dump %q", buf.String())
	}
}

func TestBothModeFindsRing(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelDebug, Mode: ModeBoth, Output: &buf, RingSize: 8})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	Point(tr, ScopeServer, "started", "")
	ring, ok := FindRing(tr)
	if !ok {
		t.Fatalf("expected ring tracer")
	}
	if got := ring.Snapshot(); len(got) != 1 || got[0].Name != "started" {
		t.Fatalf("unexpected ring contents %#v", got)
	}
	if !strings.Contains(buf.String(), "started") {
		t.Fatalf("stream output missing event: %q", buf.String())
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestNopAndContext(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil || tr.Enabled() {
		t.Fatalf("expected disabled tracer, got %v %v", tr, err)
	}
	span := Begin(tr, ScopeRequest, "x", 7)
	if span.ID() != 7 || span.End("") != 0 {
		t.Fatalf("inert span should pass parent through")
	}

	if FromContext(context.Background()) != Nop {
		t.Fatalf("missing tracer should be Nop")
	}
	ring := NewRingTracer(4, LevelDebug)
	ctx := WithTracer(context.Background(), ring)
	if FromContext(ctx) != Tracer(ring) {
		t.Fatalf("tracer not propagated")
	}
	live := Begin(ring, ScopeRequest, "req", 0)
	ctx = WithSpan(ctx, live)
	if CurrentSpan(ctx) != live.ID() {
		t.Fatalf("span not propagated")
	}
}

func TestHeartbeatStop(t *testing.T) {
	ring := NewRingTracer(16, LevelRequest)
	hb := StartHeartbeat(ring, time.Millisecond)
	deadline := time.Now().Add(2 * time.Second)
	for len(ring.Snapshot()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	hb.Stop()
	hb.Stop()
	if len(ring.Snapshot()) == 0 {
		t.Fatalf("expected at least one heartbeat")
	}
	var nilBeat *Heartbeat
	nilBeat.Stop()
	if StartHeartbeat(Nop, time.Second) != nil {
		t.Fatalf("disabled tracer should not start heartbeat")
	}
}
