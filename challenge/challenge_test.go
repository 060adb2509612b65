package challenge

import (
	"strings"
	"testing"
)

func TestGenerateShape(t *testing.T) {
	tests := []struct {
		name       string
		gen        Generator
		wantPrefix string
		wantLen    int
	}{
		{"defaults", Generator{Prefix: DefaultPrefix}, "myt-", 6},
		{"custom length", Generator{Prefix: "hv-", Length: 10}, "hv-", 10},
		{"zero length falls back", Generator{}, "", DefaultLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 50; i++ {
				code, err := tt.gen.Generate()
				if err != nil {
					t.Fatalf("Generate() error = %v", err)
				}
				if !strings.HasPrefix(code, tt.wantPrefix) {
					t.Fatalf("code %q missing prefix %q", code, tt.wantPrefix)
				}
				body := strings.TrimPrefix(code, tt.wantPrefix)
				if len(body) != tt.wantLen {
					t.Fatalf("code %q random part length = %d, want %d", code, len(body), tt.wantLen)
				}
				for _, r := range body {
					if !strings.ContainsRune(Alphabet, r) {
						t.Fatalf("code %q contains %q outside alphabet", code, r)
					}
				}
			}
		})
	}
}

func TestGenerateIndependent(t *testing.T) {
	g := Generator{Prefix: DefaultPrefix, Length: 12}
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		code, err := g.Generate()
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if _, dup := seen[code]; dup {
			t.Fatalf("duplicate code %q after %d generations", code, i)
		}
		seen[code] = struct{}{}
	}
}
