package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"yaml", FormatYAML, false},
		{"yml", FormatYAML, false},
		{"", FormatYAML, false},
		{"json", FormatJSON, false},
		{" JSON ", FormatJSON, false},
		{"table", "", true},
		{"xml", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.input)
			continue
		}
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintJSON(&buf, map[string]int{"count": 3}))
	assert.Equal(t, "{\n  \"count\": 3\n}\n", buf.String())
}

func TestPrintYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintYAML(&buf, map[string]int{"count": 3}))
	assert.Equal(t, "count: 3\n", buf.String())
}
