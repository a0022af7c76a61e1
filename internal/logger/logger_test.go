package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "WARN", "text")
	defer InitWithWriter(&buf, "INFO", "text")

	Debug("debug message")
	Info("info message")
	Warn("warn message")

	out := buf.String()
	if strings.Contains(out, "debug message") {
		t.Error("debug message should be filtered at WARN level")
	}
	if strings.Contains(out, "info message") {
		t.Error("info message should be filtered at WARN level")
	}
	if !strings.Contains(out, "warn message") {
		t.Error("warn message should be logged at WARN level")
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "json")
	defer InitWithWriter(&buf, "INFO", "text")

	Info("hello", "key", "value")

	out := buf.String()
	if !strings.Contains(out, `"msg":"hello"`) {
		t.Errorf("expected JSON output, got %q", out)
	}
	if !strings.Contains(out, `"key":"value"`) {
		t.Errorf("expected structured field in output, got %q", out)
	}
}

func TestInvalidLevelIgnored(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text")

	SetLevel("NOPE")
	Info("still works")

	if !strings.Contains(buf.String(), "still works") {
		t.Error("invalid level should leave configuration untouched")
	}
}
