package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want *int64
	}{
		{"", nil},
		{"   ", nil},
		{"12", ptr(1200)},
		{" 12 ", ptr(1200)},
		{"12.5", ptr(1250)},
		{"12,50", ptr(1250)},
		{"0.99", ptr(99)},
		{".5", ptr(50)},
		{"12.344", ptr(1234)},
		{"12.345", ptr(1235)},
		{"12.999", ptr(1300)},
		{"0", ptr(0)},
		{"12.", nil},
		{"-5", nil},
		{"abc", nil},
		{"1e3", nil},
		{"1.2.3", nil},
		{"1,2,3", nil},
		{"9999999999999", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParsePrice(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			if assert.NotNil(t, got) {
				assert.Equal(t, *tt.want, *got)
			}
		})
	}
}

func ptr(v int64) *int64 { return &v }
