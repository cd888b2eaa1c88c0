package logger

import (
	"bytes"
	"os"
	"strings"
	"sync"
	"testing"
)

// capture routes output to a buffer with the given verbosity and restores
// the defaults when the test ends.
func capture(t *testing.T, verboseOn bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(verboseOn)
	t.Cleanup(func() {
		SetVerbose(false)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestSetVerbose(t *testing.T) {
	capture(t, false)
	if IsVerbose() {
		t.Fatal("verbose should start off")
	}
	SetVerbose(true)
	if !IsVerbose() {
		t.Fatal("SetVerbose(true) did not stick")
	}
}

func TestLines(t *testing.T) {
	tests := []struct {
		name string
		emit func()
		want string
	}{
		{"debug", func() { Debug("loaded %d chunks from %s", 12, "a.pdf") }, "[DEBUG] loaded 12 chunks from a.pdf\n"},
		{"info", func() { Info("index ready") }, "[INFO] index ready\n"},
		{"warn", func() { Warn("skipping %q", "scan.pdf") }, "[WARN] skipping \"scan.pdf\"\n"},
		{"section", func() { Section("Retrieval") }, "\n=== Retrieval ===\n"},
		{"attrs", func() {
			With("component", "index").Debug("built", "chunks", 3, "model", "nomic embed")
		}, "[DEBUG] built component=index chunks=3 model=\"nomic embed\"\n"},
		{"group", func() { With().WithGroup("llm").Info("call", "tokens", 12) }, "[INFO] call llm.tokens=12\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := capture(t, true)
			tt.emit()
			if got := buf.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestQuietByDefault(t *testing.T) {
	buf := capture(t, false)

	Debug("d")
	Info("i")
	Warn("w")
	Section("s")
	With("k", "v").Warn("hidden")

	if buf.Len() > 0 {
		t.Errorf("expected nothing, got %q", buf.String())
	}
}

func TestConcurrentLogging(t *testing.T) {
	buf := capture(t, true)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Debug("worker %d", i)
		}()
	}
	wg.Wait()

	if n := strings.Count(buf.String(), "\n"); n != 20 {
		t.Errorf("expected 20 whole lines, got %d", n)
	}
}
