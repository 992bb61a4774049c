package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/srcjs"
	"github.com/oxhq/srcjs/comments"
	"github.com/oxhq/srcjs/lowering"
)

type stubParser struct{}

type stubNode struct {
	class  string
	fields map[string]any
}

func (s *stubNode) Class() string         { return s.class }
func (s *stubNode) StartOffset() int      { return 0 }
func (s *stubNode) EndOffset() int        { return 0 }
func (s *stubNode) StartLine() int        { return 1 }
func (s *stubNode) StartColumn() int      { return 0 }
func (s *stubNode) Field(name string) any { return s.fields[name] }

func (stubParser) Parse(source, file string) (lowering.ParserNode, []comments.Comment, []error) {
	return &stubNode{class: "LocalVariableWriteNode", fields: map[string]any{
		"name":  "x",
		"value": &stubNode{class: "IntegerNode", fields: map[string]any{"value": "9"}},
	}}, nil, nil
}

func TestRootCommandHasSubcommands(t *testing.T) {
	root := NewRootCmd()
	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "convert")
	assert.Contains(t, names, "serve")
}

func TestConvertStdin(t *testing.T) {
	srcjs.InitParser(func() srcjs.Parser { return stubParser{} })
	defer srcjs.InitParser(nil)

	root := NewRootCmd()
	root.SetArgs([]string{"convert"})
	root.SetIn(strings.NewReader("x = 9"))
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "let x = 9;")
}

func TestConvertFlagsOverrideDefaults(t *testing.T) {
	cmd := newConvertCmd()
	require.NoError(t, cmd.Flags().Set("eslevel", "2016"))
	require.NoError(t, cmd.Flags().Set("comparison", "identity"))
	require.NoError(t, cmd.Flags().Set("width", "100"))

	flags := &convertFlags{eslevel: 2016, comparison: "identity", width: 100}
	opts := applyFlags(srcjs.DefaultOptions(), cmd, flags)
	assert.Equal(t, 2016, opts.ESLevel)
	assert.Equal(t, "identity", opts.Comparison)
	assert.Equal(t, 100, opts.Width)
}

func TestConvertFlagsUnsetKeepDefaults(t *testing.T) {
	cmd := newConvertCmd()
	opts := applyFlags(srcjs.DefaultOptions(), cmd, &convertFlags{})
	assert.Equal(t, 2022, opts.ESLevel)
	assert.Equal(t, "equality", opts.Comparison)
}

func TestColorizeDiffPassthroughWithoutTTY(t *testing.T) {
	var buf bytes.Buffer
	diff := "--- a\n+++ b\n-removed\n+added\n"
	assert.Equal(t, diff, colorizeDiff(diff, &buf))
}

func TestConvertNoInputsMatched(t *testing.T) {
	root := NewRootCmd()
	root.SetArgs([]string{"convert", t.TempDir() + "/*.rb"})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no input files matched")
}