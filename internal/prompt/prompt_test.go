package prompt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputVariables(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		want     []string
	}{
		{"three placeholders", "{a}, {b}, and {c}", []string{"a", "b", "c"}},
		{"no placeholders", "Hello there", []string{}},
		{"empty", "", []string{}},
		{"duplicates keep first occurrence", "{b} {a} {b}", []string{"b", "a"}},
		{"escaped braces", "{{literal}} {x} }}", []string{"x"}},
		{"attribute and index", "{user.name} {items[0]} {user}", []string{"user", "items"}},
		{"conversion and spec", "{price!r:>10} {when:%Y-%m-%d}", []string{"price", "when"}},
		{"nested spec", "{value:{width}.{precision}}", []string{"value", "width", "precision"}},
		{"positional", "{} {0} {name}", []string{"0", "name"}},
		{"index with brace", "{d[}]}", []string{"d"}},
		{"stray open", "Hello {name", []string{}},
		{"stray close", "Hello name}", []string{}},
		{"lone open at end", "Hello {", []string{}},
		{"brace in field name", "{a{b}}", []string{}},
		{"bad conversion", "{a!rx}", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, InputVariables(tt.template))
		})
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	_, err := Parse("}")
	assert.ErrorIs(t, err, ErrSingleClose)

	_, err = Parse("{")
	assert.ErrorIs(t, err, ErrSingleOpen)

	_, err = Parse("{abc")
	assert.ErrorIs(t, err, ErrUnclosed)

	_, err = Parse("{a!}")
	assert.ErrorIs(t, err, ErrNoConversion)
}

func TestValidate_WithoutNode(t *testing.T) {
	t.Parallel()

	resp := Validate(Request{Name: "prompt", Template: "{question}"})
	assert.Equal(t, []string{"question"}, resp.InputVariables)
	assert.Nil(t, resp.FrontendNode)
}

func TestValidate_SyncsTemplateFields(t *testing.T) {
	t.Parallel()

	var node map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{
		"template": {
			"template": {"type": "prompt", "value": "old"},
			"input_variables": {"type": "str", "value": []},
			"stale": {"type": "str", "value": "gone"},
			"kept": {"type": "str", "value": "keep me"}
		},
		"custom_fields": {"prompt": ["stale", "kept"], "other": ["x"]},
		"name": "PromptTemplate"
	}`), &node))

	resp := Validate(Request{Name: "prompt", Template: "{kept} then {fresh}", FrontendNode: node})
	assert.Equal(t, []string{"kept", "fresh"}, resp.InputVariables)

	tmpl := resp.FrontendNode["template"].(map[string]any)
	assert.NotContains(t, tmpl, "stale")
	assert.Contains(t, tmpl, "template")

	kept := tmpl["kept"].(map[string]any)
	assert.Equal(t, "keep me", kept["value"])
	assert.Equal(t, true, kept["multiline"])

	fresh := tmpl["fresh"].(map[string]any)
	assert.Equal(t, "", fresh["value"])
	assert.Equal(t, "str", fresh["type"])
	assert.Equal(t, []string{"Document", "BaseOutputParser"}, fresh["input_types"])

	assert.Equal(t, []string{"kept", "fresh"}, tmpl["input_variables"].(map[string]any)["value"])

	custom := resp.FrontendNode["custom_fields"].(map[string]any)
	assert.Equal(t, []string{"kept", "fresh"}, custom["prompt"])
	assert.Equal(t, []any{"x"}, custom["other"])
}

func TestValidate_CreatesMissingMaps(t *testing.T) {
	t.Parallel()

	resp := Validate(Request{Name: "p", Template: "{a}", FrontendNode: map[string]any{}})
	tmpl := resp.FrontendNode["template"].(map[string]any)
	assert.Contains(t, tmpl, "a")
	assert.Equal(t, []string{"a"}, resp.FrontendNode["custom_fields"].(map[string]any)["p"])
}
