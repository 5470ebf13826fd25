package app

import "testing"

func TestDetermineLogLevel(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   string
	}{
		{name: "default", config: Config{}, want: "info"},
		{name: "verbose", config: Config{Verbose: true}, want: "debug"},
		{name: "quiet", config: Config{Quiet: true}, want: "warn"},
		{name: "verbose and quiet", config: Config{Verbose: true, Quiet: true}, want: "warn"},
		{name: "explicit wins", config: Config{Verbose: true, LogLevel: "error"}, want: "error"},
		{name: "explicit is case insensitive", config: Config{LogLevel: "DEBUG"}, want: "debug"},
		{name: "invalid explicit", config: Config{LogLevel: "loud"}, want: "info"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := determineLogLevel(&tt.config); got != tt.want {
				t.Errorf("determineLogLevel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewLogger_Level(t *testing.T) {
	logger := NewLogger(&Config{Quiet: true, LogOutput: "discard"})
	if got := logger.GetLevel().String(); got != "warn" {
		t.Errorf("logger level = %q, want warn", got)
	}
}
