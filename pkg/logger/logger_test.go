package logx

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Not parallel: swaps the global logger.
func TestInitLevels(t *testing.T) {
	var buf bytes.Buffer
	prev := Output
	Output = &buf
	t.Cleanup(func() {
		Output = prev
		Init()
	})

	Init(Config{Debug: true})
	if log.Logger.GetLevel() != zerolog.DebugLevel {
		t.Fatalf("level = %s, want debug", log.Logger.GetLevel())
	}
	log.Debug().Str("source", "Planner").Msg("planned")
	if !strings.Contains(buf.String(), `"source":"Planner"`) {
		t.Fatalf("expected JSON field in output, got %q", buf.String())
	}

	Init()
	if log.Logger.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("level = %s, want info", log.Logger.GetLevel())
	}
}

func TestNewLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		conf Config
		want zerolog.Level
	}{
		{name: "empty", conf: Config{}, want: zerolog.InfoLevel},
		{name: "warn", conf: Config{Level: " WARN "}, want: zerolog.WarnLevel},
		{name: "unknown", conf: Config{Level: "chatty"}, want: zerolog.InfoLevel},
		{name: "debug wins", conf: Config{Level: "error", Debug: true}, want: zerolog.DebugLevel},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := New(&bytes.Buffer{}, tc.conf).GetLevel(); got != tc.want {
				t.Fatalf("level = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestNewWarnSuppressesInfo(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := New(&buf, Config{Level: "warn"})
	l.Info().Msg("hidden")
	l.Warn().Msg("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}
