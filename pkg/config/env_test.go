package config

import (
	"testing"
)

func TestIsProductionLike(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"development", false},
		{"test", false},
		{"staging", true},
		{"production", true},
		{"Production", true},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			if got := IsProductionLike(tt.env); got != tt.want {
				t.Errorf("IsProductionLike(%q) = %v, want %v", tt.env, got, tt.want)
			}
		})
	}
}
