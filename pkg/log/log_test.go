package log

import (
	"bytes"
	"strings"
	"testing"
)

func newTestLogger(t *testing.T, name string) (*Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	SetOutput(buf)
	return ForService(name), buf
}

func TestPrefixInfo(t *testing.T) {
	SetGlobalDebug(false)

	const name = "prefix_service_test"
	l, buf := newTestLogger(t, name)

	l.Infof("loaded %d records", 3)
	out := buf.String()

	if !strings.Contains(out, "INFO ["+name+">]") {
		t.Fatalf("expected level and prefix in output, got: %q", out)
	}
	if !strings.Contains(out, "loaded 3 records") {
		t.Fatalf("expected message in output, got: %q", out)
	}
}

func TestWithFields(t *testing.T) {
	const name = "fields_service_test"
	l, buf := newTestLogger(t, name)

	l.With("request_id", "abc", "endpoint", "traits").Warnf("slow query")
	out := buf.String()

	if !strings.Contains(out, "slow query request_id=abc endpoint=traits") {
		t.Fatalf("expected fields after message, got: %q", out)
	}

	buf.Reset()
	l.Infof("plain")
	if strings.Contains(buf.String(), "request_id") {
		t.Fatalf("With must not modify the parent logger, got: %q", buf.String())
	}
}

func TestWithOddFields(t *testing.T) {
	l, buf := newTestLogger(t, "odd_fields_test")

	l.With("dangling").Infof("msg")
	if !strings.Contains(buf.String(), "msg dangling=") {
		t.Fatalf("expected dangling key rendered with empty value, got: %q", buf.String())
	}
}

func TestDebugPerService(t *testing.T) {
	SetGlobalDebug(false)

	const name = "debug_service_specific"
	DisableDebugFor(name)
	l, buf := newTestLogger(t, name)

	l.Debugf("should not appear")
	if strings.Contains(buf.String(), "should not appear") {
		t.Fatalf("debug message appeared while debug disabled")
	}

	EnableDebugFor(name)
	defer DisableDebugFor(name)
	l.Debugf("visible now")
	if !strings.Contains(buf.String(), "visible now") {
		t.Fatalf("expected debug message after enabling per-service debug; got: %q", buf.String())
	}
}

func TestDebugGlobal(t *testing.T) {
	SetGlobalDebug(false)

	const name = "debug_service_global"
	DisableDebugFor(name)
	l, buf := newTestLogger(t, name)

	l.Debugf("hidden")
	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("debug message appeared while global debug disabled")
	}

	SetGlobalDebug(true)
	defer SetGlobalDebug(false)

	l.Debugf("global visible")
	if !strings.Contains(buf.String(), "global visible") {
		t.Fatalf("expected debug message after enabling global debug; got: %q", buf.String())
	}
}
