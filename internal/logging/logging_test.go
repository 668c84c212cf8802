package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Warn)

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("low-level lines leaked: %q", out)
	}
	if !strings.Contains(out, "level=warn") || !strings.Contains(out, "msg=shown") {
		t.Fatalf("warn line missing: %q", out)
	}
}

func TestLoggerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Info)

	logger.Info("save failed", F("id", "conv a"), F("count", 3))

	out := buf.String()
	if !strings.Contains(out, `id="conv a"`) {
		t.Fatalf("value not quoted: %q", out)
	}
	if !strings.Contains(out, "count=3") {
		t.Fatalf("numeric value mangled: %q", out)
	}
}

func TestWithCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Info).With(F("component", "session"))

	logger.Info("started")
	if !strings.Contains(buf.String(), "component=session") {
		t.Fatalf("bound field missing: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   Debug,
		"WARN":    Warn,
		"warning": Warn,
		"error":   Error,
		"":        Info,
		"bogus":   Info,
	}
	for raw, want := range cases {
		if got := ParseLevel(raw); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", raw, got, want)
		}
	}
}
