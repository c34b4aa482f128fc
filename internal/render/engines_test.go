package render

import (
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/billdocs/internal/config"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name    string
		names   []string
		want    string
		wantErr string
	}{
		{name: "default order", names: []string{"chrome", "wkhtmltopdf", "fpdf"}, want: "chrome,wkhtmltopdf,fpdf"},
		{name: "case and spaces", names: []string{" FPDF ", "Chrome"}, want: "fpdf,chrome"},
		{name: "blank entries skipped", names: []string{"", "fpdf", " "}, want: "fpdf"},
		{name: "unknown", names: []string{"prince"}, wantErr: "unknown render engine"},
		{name: "duplicate", names: []string{"fpdf", "FPDF"}, wantErr: "listed twice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engines, err := Build(tt.names, config.RenderConfig{})
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Build() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Build() error: %v", err)
			}
			got := make([]string, len(engines))
			for i, e := range engines {
				got[i] = e.Name()
			}
			if strings.Join(got, ",") != tt.want {
				t.Errorf("Build() = %v, want %s", got, tt.want)
			}
		})
	}
}

func TestFromConfig(t *testing.T) {
	chain, err := FromConfig(config.RenderConfig{
		Engines:        []string{"fpdf"},
		EngineTimeout:  5 * time.Second,
		MinOutputBytes: 200,
	})
	if err != nil {
		t.Fatalf("FromConfig() error: %v", err)
	}
	if chain.timeout != 5*time.Second || chain.minBytes != 200 {
		t.Errorf("chain timeout=%s minBytes=%d", chain.timeout, chain.minBytes)
	}
	if err := chain.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}

func TestNewWkhtmltopdf_DefaultBin(t *testing.T) {
	if got := NewWkhtmltopdf("").Bin; got != "wkhtmltopdf" {
		t.Errorf("Bin = %q, want wkhtmltopdf", got)
	}
}
