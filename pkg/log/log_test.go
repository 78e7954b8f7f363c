package log

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func restoreDefault(t *testing.T) {
	t.Cleanup(func() {
		if err := Setup(Options{}); err != nil {
			t.Fatalf("Setup: %v", err)
		}
	})
}

func TestSetup(t *testing.T) {
	restoreDefault(t)

	tests := []struct {
		name         string
		opts         Options
		wantEncoding string
		wantLevel    zapcore.Level
	}{
		{"defaults", Options{}, EncodingConsole, zapcore.InfoLevel},
		{"prod is json", Options{Service: "paper", Env: "prod", Level: "warn"}, EncodingJSON, zapcore.WarnLevel},
		{"explicit encoding wins", Options{Env: "prod", Encoding: EncodingConsole, Level: "debug"}, EncodingConsole, zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Setup(tt.opts); err != nil {
				t.Fatalf("Setup: %v", err)
			}

			if l.logEncoding != tt.wantEncoding || l.level.Level() != tt.wantLevel {
				t.Errorf("got %s at %s, want %s at %s", l.logEncoding, l.level.Level(), tt.wantEncoding, tt.wantLevel)
			}
		})
	}
}

func TestSetupKeepsLoggerOnBadOptions(t *testing.T) {
	restoreDefault(t)

	before := l

	if err := Setup(Options{Level: "loud"}); err == nil {
		t.Error("expected an error for an unknown level")
	}

	if err := Setup(Options{Encoding: "xml"}); err == nil {
		t.Error("expected an error for an unknown encoding")
	}

	if l != before {
		t.Error("logger replaced by invalid options")
	}
}
