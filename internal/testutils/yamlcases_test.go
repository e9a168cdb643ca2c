package testutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestHexBytes(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		want    HexBytes
		wantErr bool
	}{
		{name: "spaced", yaml: `"6E 01 00 FF"`, want: HexBytes{0x6E, 0x01, 0x00, 0xFF}},
		{name: "packed", yaml: `"6e0100ff"`, want: HexBytes{0x6E, 0x01, 0x00, 0xFF}},
		{name: "prefixed", yaml: `"0x6E0100FF"`, want: HexBytes{0x6E, 0x01, 0x00, 0xFF}},
		{name: "empty", yaml: `""`, want: HexBytes{}},
		{name: "odd length", yaml: `"6E0"`, wantErr: true},
		{name: "not hex", yaml: `"zz"`, wantErr: true},
		{name: "not a scalar", yaml: `[1, 2]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got HexBytes
			err := yaml.Unmarshal([]byte(tt.yaml), &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHexBytesString(t *testing.T) {
	assert.Equal(t, "6E 01 00 FF", HexBytes{0x6E, 0x01, 0x00, 0xFF}.String())

	out, err := yaml.Marshal(HexBytes{0x0A})
	require.NoError(t, err)
	assert.Equal(t, "0A\n", string(out))
}

func TestLoadYAMLCases(t *testing.T) {
	type testCase struct {
		Name string   `yaml:"name"`
		Raw  HexBytes `yaml:"raw"`
	}

	cases, err := LoadYAMLCases[testCase](`
		test_cases:
		  - name: battery
		    raw: "57"
		  - name: empty
		    raw: ""
	`)
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, "battery", cases[0].Name)
	assert.Equal(t, HexBytes{0x57}, cases[0].Raw)
	assert.Equal(t, HexBytes{}, cases[1].Raw)

	_, err = LoadYAMLCases[testCase]("other: 1\n")
	assert.Error(t, err)

	_, err = LoadYAMLCases[testCase]("test_cases: [")
	assert.Error(t, err)
}

func TestDedent(t *testing.T) {
	assert.Equal(t, "a:\n  b: 1\n\nc: 2", Dedent("    a:\n      b: 1\n\n    c: 2"))
	assert.Equal(t, "a:\n    b: 1", Dedent("\ta:\n\t\tb: 1"))
	assert.Equal(t, "flat", Dedent("flat"))
}
