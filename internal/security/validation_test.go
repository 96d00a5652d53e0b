package security

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateBodySize(t *testing.T) {
	t.Parallel()

	if err := ValidateBodySize(make([]byte, 10), 10); err != nil {
		t.Errorf("at limit: %v", err)
	}
	if err := ValidateBodySize(make([]byte, 11), 10); !errors.Is(err, ErrBodyTooLarge) {
		t.Errorf("over limit = %v", err)
	}
	if err := ValidateBodySize(make([]byte, 1024), 0); err != nil {
		t.Errorf("default limit: %v", err)
	}
}

func TestValidateJSONDepth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		data  string
		limit int
		want  error
	}{
		{"flat", `{"items": [{"resource": "chat"}]}`, 3, nil},
		{"too deep", strings.Repeat("[", 5) + strings.Repeat("]", 5), 4, ErrJSONTooDeep},
		{"invalid", `{"items": `, 0, ErrInvalidJSON},
		{"empty", ``, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateJSONDepth([]byte(tt.data), tt.limit)
			if tt.want == nil && err != nil {
				t.Fatalf("err = %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}
