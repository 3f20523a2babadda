package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name string `json:"name"`
}

func TestRenderer_EffectiveMode(t *testing.T) {
	var buf bytes.Buffer

	assert.Equal(t, ModeMarkdown, NewRenderer(&buf, &buf, ModeAuto).EffectiveMode(), "non-terminal writer")
	assert.Equal(t, ModeMarkdown, NewRenderer(&buf, &buf, "").EffectiveMode())
	assert.Equal(t, ModeText, NewRenderer(&buf, &buf, ModeText).EffectiveMode())
	assert.Equal(t, ModeJSON, NewRenderer(&buf, &buf, ModeJSON).EffectiveMode())
}

func TestRenderer_Table(t *testing.T) {
	rows := [][]any{{"a", 1}, {"b", 2}}
	records := []record{{"a"}, {"b"}}

	tests := []struct {
		name    string
		mode    Mode
		wantOut []string
	}{
		{"text", ModeText, []string{"Exports", "a", "b"}},
		{"markdown", ModeMarkdown, []string{"## Exports", "| a |"}},
		{"json", ModeJSON, []string{`"name": "a"`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			r := NewRenderer(&buf, &buf, tt.mode)
			require.NoError(t, r.Table("Exports", []string{"Name", "Count"}, rows, records))

			for _, want := range tt.wantOut {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestRenderer_JSONIsValid(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, &buf, ModeJSON)
	require.NoError(t, r.Table("", []string{"Name"}, nil, []record{{"x"}}))

	var got []record
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, []record{{"x"}}, got)
}

func TestRenderer_PrintlnSilentInJSON(t *testing.T) {
	var buf bytes.Buffer
	NewRenderer(&buf, &buf, ModeJSON).Println("hello")
	assert.Empty(t, buf.String())

	NewRenderer(&buf, &buf, ModeText).Println("hello")
	assert.Equal(t, "hello\n", buf.String())
}

func TestRenderer_SuccessAndWarnf(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRenderer(&out, &errOut, ModeText)

	r.Success("saved")
	r.Warnf("watching %s", "leapark.yaml")

	assert.Contains(t, out.String(), "saved")
	assert.Contains(t, errOut.String(), "watching leapark.yaml")
	assert.NotNil(t, r.Styles())

	out.Reset()
	NewRenderer(&out, &errOut, ModeJSON).Success("saved")
	assert.Empty(t, out.String())
}
