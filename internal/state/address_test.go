package state

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAddress(t *testing.T) {
	valid := "0x" + strings.Repeat("a1", 20)

	testCases := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "lowercase hex", input: valid, want: valid},
		{name: "mixed case", input: "0xAbCdEf0123456789aBcDeF0123456789AbCdEf01", want: "0xAbCdEf0123456789aBcDeF0123456789AbCdEf01"},
		{name: "surrounding whitespace", input: "  " + valid + "\n", want: valid},
		{name: "missing prefix", input: strings.Repeat("a1", 20), wantErr: true},
		{name: "uppercase prefix", input: "0X" + strings.Repeat("a1", 20), wantErr: true},
		{name: "too short", input: "0x" + strings.Repeat("a", 39), wantErr: true},
		{name: "too long", input: "0x" + strings.Repeat("a", 41), wantErr: true},
		{name: "non hex", input: "0x" + strings.Repeat("g", 40), wantErr: true},
		{name: "free text", input: "not-an-address", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidateAddress(tc.input)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAddress)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
