package tracing

import (
	"strings"
	"testing"
)

func TestCreateSampler(t *testing.T) {
	tests := []struct {
		name     string
		strategy string
		ratio    float64
		wantDesc string
		wantErr  bool
	}{
		{name: "always", strategy: SamplerAlways, wantDesc: "AlwaysOnSampler"},
		{name: "never", strategy: SamplerNever, wantDesc: "AlwaysOffSampler"},
		{name: "ratio", strategy: SamplerRatio, ratio: 0.25, wantDesc: "TraceIDRatioBased{0.25}"},
		{name: "ratio zero", strategy: SamplerRatio, ratio: 0, wantDesc: "TraceIDRatioBased"},
		{name: "ratio above one", strategy: SamplerRatio, ratio: 1.5, wantErr: true},
		{name: "ratio negative", strategy: SamplerRatio, ratio: -0.1, wantErr: true},
		{name: "unknown strategy", strategy: "sometimes", wantErr: true},
		{name: "empty strategy", strategy: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sampler, err := createSampler(tt.strategy, tt.ratio)
			if (err != nil) != tt.wantErr {
				t.Fatalf("createSampler() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			desc := sampler.Description()
			if !strings.HasPrefix(desc, "ParentBased{") {
				t.Errorf("Description() = %q, want parent-based sampler", desc)
			}
			if !strings.Contains(desc, tt.wantDesc) {
				t.Errorf("Description() = %q, want it to contain %q", desc, tt.wantDesc)
			}
		})
	}
}
