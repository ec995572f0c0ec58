package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type samplePayload struct {
	Title *string `json:"title" validate:"required,min=1"`
	Name  string  `json:"name,omitempty" validate:"omitempty,max=5"`
}

func TestValidateStruct(t *testing.T) {
	empty := ""
	ok := "write tests"

	tests := []struct {
		name    string
		payload samplePayload
		wantErr string
	}{
		{name: "valid", payload: samplePayload{Title: &ok}},
		{name: "missing title", payload: samplePayload{}, wantErr: "title is required"},
		{name: "empty title", payload: samplePayload{Title: &empty}, wantErr: "title must be at least 1 characters"},
		{name: "long name", payload: samplePayload{Title: &ok, Name: "toolong"}, wantErr: "name must be at most 5 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.payload)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}
