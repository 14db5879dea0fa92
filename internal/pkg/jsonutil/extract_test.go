package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"plain object", `{"action":"BUY"}`, `{"action":"BUY"}`, true},
		{"fenced with tag", "Sure:\n```json\n{\"action\":\"SELL\"}\n```\nthanks", `{"action":"SELL"}`, true},
		{"prose around", `I think {"action":"HOLD","levels":[1,2]} is best`, `{"action":"HOLD","levels":[1,2]}`, true},
		{"brace inside string", `{"reasoning":"use } carefully","action":"BUY"}`, `{"reasoning":"use } carefully","action":"BUY"}`, true},
		{"array first", `[{"a":1}] trailing`, `[{"a":1}]`, true},
		{"unterminated", `{"action":"BUY"`, "", false},
		{"empty", "   ", "", false},
		{"no json", "HOLD for now", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractJSON(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
