package testutils

import (
	"encoding/hex"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// HexBytes is a payload written in fixtures as hex: "6E 01 00 FF",
// "6E0100FF" or "0x6E0100FF". An empty string is an empty payload.
type HexBytes []byte

// UnmarshalYAML decodes the hex forms HexBytes accepts.
func (h *HexBytes) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("line %d: hex payload must be a string: %w", node.Line, err)
	}
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	s = strings.Join(strings.Fields(s), "")
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("line %d: invalid hex payload %q: %w", node.Line, node.Value, err)
	}
	*h = b
	return nil
}

// MarshalYAML writes the spaced uppercase form.
func (h HexBytes) MarshalYAML() (any, error) {
	return h.String(), nil
}

func (h HexBytes) String() string {
	parts := make([]string, len(h))
	for i, b := range h {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, " ")
}

// LoadYAMLCases parses an inline YAML document with a "test_cases" array at
// the root. The content is dedented first so fixtures can be indented with
// the Go code around them.
func LoadYAMLCases[T any](content string) ([]T, error) {
	var scenario struct {
		TestCases []T `yaml:"test_cases"`
	}
	if err := yaml.Unmarshal([]byte(Dedent(content)), &scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML test cases: %w", err)
	}
	if len(scenario.TestCases) == 0 {
		return nil, fmt.Errorf("no test_cases found")
	}
	return scenario.TestCases, nil
}

// Dedent strips the common leading indentation, counting a tab as four
// spaces, and expands the remaining tabs.
func Dedent(s string) string {
	const tabWidth = 4
	tab := strings.Repeat(" ", tabWidth)
	lines := strings.Split(s, "\n")

	indentOf := func(line string) (width, bytes int) {
		for bytes < len(line) {
			switch line[bytes] {
			case ' ':
				width++
			case '\t':
				width += tabWidth
			default:
				return width, bytes
			}
			bytes++
		}
		return width, bytes
	}

	minIndent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if w, _ := indentOf(line); minIndent == -1 || w < minIndent {
			minIndent = w
		}
	}

	out := make([]string, len(lines))
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		w, n := indentOf(line)
		out[i] = strings.Repeat(" ", w-max(minIndent, 0)) + strings.ReplaceAll(line[n:], "\t", tab)
	}
	return strings.Join(out, "\n")
}
