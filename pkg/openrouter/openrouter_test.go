package openrouter

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtraFields(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cfg  Config
		want map[string]any
	}{
		{
			name: "no reasoning",
			cfg:  Config{Model: "google/gemini-3-flash-preview"},
			want: nil,
		},
		{
			name: "high reasoning",
			cfg:  Config{Model: "google/gemini-3-pro-preview", ReasoningEffort: " HIGH "},
			want: map[string]any{"reasoning": map[string]any{"effort": "high"}},
		},
		{
			name: "blacklisted model ignores effort",
			cfg:  Config{Model: "x-ai/grok-4.1-fast", ReasoningEffort: "high"},
			want: map[string]any{"reasoning": map[string]any{"exclude": true, "effort": "none"}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if diff := cmp.Diff(tc.want, tc.cfg.ExtraFields()); diff != "" {
				t.Fatalf("ExtraFields() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	t.Parallel()

	if NewClient(Config{BaseURL: "http://localhost"}) != nil {
		t.Fatal("expected nil client without api key")
	}
	if NewClient(Config{APIKey: "k", BaseURL: "http://localhost/"}) == nil {
		t.Fatal("expected client with api key")
	}
}
