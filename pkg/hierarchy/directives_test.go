package hierarchy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDirectives(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "agent with options",
			args: []string{"-javaagent:/opt/tool.jar=verbose"},
			want: []string{"/opt/tool.jar"},
		},
		{
			name: "agent without options",
			args: []string{"-javaagent:/opt/tool.jar"},
			want: []string{"/opt/tool.jar"},
		},
		{
			name: "split on first separator only",
			args: []string{"-javaagent:/opt/tool.jar=a=b"},
			want: []string{"/opt/tool.jar"},
		},
		{
			name: "order kept and non-directives skipped",
			args: []string{"-Xms1g", "-javaagent:/b.jar", "-Dx=y", "-javaagent:/a.jar=1"},
			want: []string{"/b.jar", "/a.jar"},
		},
		{
			name: "prefix must lead",
			args: []string{" -javaagent:/x.jar", "-Dflag=-javaagent:/y.jar"},
			want: nil,
		},
		{
			name: "no args",
			args: nil,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDirectives(tt.args, DefaultAgentPrefix)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDirectives_Malformed(t *testing.T) {
	tests := []struct {
		name string
		arg  string
	}{
		{"empty path", "-javaagent:"},
		{"empty path with options", "-javaagent:=verbose"},
		{"blank path", "-javaagent:   =x"},
		{"nul byte", "-javaagent:/opt/t\x00ool.jar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDirectives([]string{"-javaagent:/fine.jar", tt.arg}, DefaultAgentPrefix)
			assert.Nil(t, got)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidDirective))

			var de *DirectiveError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.arg, de.Directive)
			assert.NotNil(t, de.Cause)
		})
	}
}

func TestArtifactLocation_Relative(t *testing.T) {
	loc, err := ArtifactLocation("agents/tool.jar")
	require.NoError(t, err)
	assert.True(t, len(loc) > len("agents/tool.jar"))
	assert.Contains(t, loc, "agents")
}
