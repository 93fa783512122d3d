package llm

import (
	"testing"
)

func TestNewProviderDisabled(t *testing.T) {
	p, err := NewProvider(Config{})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p != nil {
		t.Fatal("empty provider name must disable the fallback, got a provider")
	}
}

func TestNewProviderOpenAI(t *testing.T) {
	p, err := NewProvider(Config{Provider: "openai", APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p == nil || p.Name() != "openai" {
		t.Fatalf("provider = %v, want openai", p)
	}
}

func TestNewProviderOpenAIRequiresKey(t *testing.T) {
	if _, err := NewProvider(Config{Provider: "openai"}); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestNewProviderUnknown(t *testing.T) {
	if _, err := NewProvider(Config{Provider: "delphi"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestResponseIsNone(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"NONE", true},
		{"none", true},
		{"  None  ", true},
		{"nimodipine 60 mg q4h", false},
		{"none of the labs were abnormal", false},
		{"", false},
	}
	for _, tt := range tests {
		r := &ExtractResponse{Text: tt.text}
		if got := r.IsNone(); got != tt.want {
			t.Errorf("IsNone(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
