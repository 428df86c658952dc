package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSegment(t *testing.T) {
	tests := []struct {
		name    string
		segment string
		wantErr bool
	}{
		{name: "plain", segment: "weddings", wantErr: false},
		{name: "uuid", segment: "0b7f7f2e-6a0c-4c8e-9d2b-3f1a7c0d9e11", wantErr: false},
		{name: "temp id", segment: "tmp_abc", wantErr: false},
		{name: "empty", segment: "", wantErr: true},
		{name: "slash", segment: "a/b", wantErr: true},
		{name: "dot", segment: ".", wantErr: true},
		{name: "dotdot", segment: "..", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSegment(tt.segment)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateKey(t *testing.T) {
	assert.NoError(t, ValidateKey("tasks"))
	assert.Error(t, ValidateKey(""))
	assert.Error(t, ValidateKey("   "))
}
