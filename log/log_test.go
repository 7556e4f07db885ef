package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerWritesThroughHandler(t *testing.T) {
	var buf bytes.Buffer
	l := New("component", "test")
	l.SetHandler(StreamHandler(&buf, LogfmtFormat()))

	l.Info("hello", "key", "value")

	out := buf.String()
	if !strings.Contains(out, "msg=hello") {
		t.Fatalf("expected msg=hello in output, got %q", out)
	}
	if !strings.Contains(out, "component=test") {
		t.Fatalf("expected inherited context in output, got %q", out)
	}
	if !strings.Contains(out, "key=value") {
		t.Fatalf("expected call-site context in output, got %q", out)
	}
}

func TestLvlFilterHandler(t *testing.T) {
	var buf bytes.Buffer
	l := New()
	l.SetHandler(LvlFilterHandler(LvlWarn, StreamHandler(&buf, LogfmtFormat())))

	l.Debug("suppressed")
	l.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "suppressed") {
		t.Fatalf("debug record should have been filtered: %q", out)
	}
	if !strings.Contains(out, "kept") {
		t.Fatalf("warn record should have passed: %q", out)
	}
}

func TestLvlFromString(t *testing.T) {
	cases := map[string]Lvl{
		"trace": LvlTrace,
		"debug": LvlDebug,
		"info":  LvlInfo,
		"warn":  LvlWarn,
		"error": LvlError,
		"crit":  LvlCrit,
	}
	for s, want := range cases {
		got, err := LvlFromString(s)
		if err != nil {
			t.Fatalf("LvlFromString(%q): %v", s, err)
		}
		if got != want {
			t.Fatalf("LvlFromString(%q) = %v, want %v", s, got, want)
		}
	}
	if _, err := LvlFromString("bogus"); err == nil {
		t.Fatal("LvlFromString(bogus) succeeded, want error")
	}
}
