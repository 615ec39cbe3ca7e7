package observability

import "testing"

func TestSampleRatioDefaultsAndClamps(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{"", 0.1},
		{"not-a-number", 0.1},
		{"0.5", 0.5},
		{"-3", 0},
		{"7", 1},
	}
	for _, tc := range cases {
		t.Setenv("OTEL_SAMPLER_RATIO", tc.raw)
		if got := sampleRatio(); got != tc.want {
			t.Fatalf("sampleRatio(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestOtlpHeadersParsing(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "api-key=secret, malformed, =novalue, team=graph")
	got := otlpHeaders()
	if len(got) != 2 || got["api-key"] != "secret" || got["team"] != "graph" {
		t.Fatalf("unexpected headers: %v", got)
	}

	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "")
	if got := otlpHeaders(); got != nil {
		t.Fatalf("empty env should yield nil headers, got %v", got)
	}
}

func TestOtelDisabledByDefault(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "")
	if otelEnabled() {
		t.Fatalf("tracing enabled with no env set")
	}
	t.Setenv("OTEL_ENABLED", "true")
	if !otelEnabled() {
		t.Fatalf("OTEL_ENABLED=true not honored")
	}
}
