package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_EnvironmentGating(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		level       string
		wantDebug   bool
		wantInfo    bool
		wantWarn    bool
		wantError   bool
	}{
		{name: "development logs everything", environment: Development, wantDebug: true, wantInfo: true, wantWarn: true, wantError: true},
		{name: "production keeps warnings and errors", environment: Production, wantWarn: true, wantError: true},
		{name: "test keeps errors only", environment: Test, wantError: true},
		{name: "unknown environment defaults to info", environment: "staging", wantInfo: true, wantWarn: true, wantError: true},
		{name: "explicit level wins over environment", environment: Production, level: DEBUG, wantDebug: true, wantInfo: true, wantWarn: true, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(Config{Level: tt.level, Output: &buf, Environment: tt.environment})

			log.Debug("debug message")
			log.Info("info message")
			log.Warn("warn message")
			log.Error("error message")

			out := buf.String()
			checks := []struct {
				msg  string
				want bool
			}{
				{"debug message", tt.wantDebug},
				{"info message", tt.wantInfo},
				{"warn message", tt.wantWarn},
				{"error message", tt.wantError},
			}
			for _, c := range checks {
				if got := strings.Contains(out, c.msg); got != c.want {
					t.Errorf("%q logged = %v, want %v", c.msg, got, c.want)
				}
			}
		})
	}
}

func TestNew_ServiceAttributeAndFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: INFO, Output: &buf, Service: "carrierhub"})

	log.With("order_id", "order_1").Info("Checkout opened")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", buf.String(), err)
	}
	if record[SERVICE] != "carrierhub" {
		t.Errorf("service = %v, want carrierhub", record[SERVICE])
	}
	if record["order_id"] != "order_1" {
		t.Errorf("order_id = %v, want order_1", record["order_id"])
	}

	buf.Reset()
	New(Config{Level: INFO, Format: TEXT, Output: &buf}).Info("plain")
	if !strings.Contains(buf.String(), "msg=plain") {
		t.Errorf("text format output = %q", buf.String())
	}
}

func TestDiscard(t *testing.T) {
	log := Discard()
	if log.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Discard() should not enable debug records")
	}
}
