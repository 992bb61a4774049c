package sourcemap

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVLQEncodeKnownValues(t *testing.T) {
	cases := map[int]string{
		0:    "A",
		1:    "C",
		-1:   "D",
		16:   "gB",
		-16:  "hB",
		511:  "+f",
		1024: "ggC",
	}
	for value, want := range cases {
		var sb strings.Builder
		encodeVLQ(&sb, value)
		assert.Equal(t, want, sb.String(), "value %d", value)
	}
}

func TestVLQRoundTrip(t *testing.T) {
	values := []int{0, 1, -1, 5, -5, 31, 32, 100, -100, 4096, -4096}
	for _, v := range values {
		var sb strings.Builder
		encodeVLQ(&sb, v)
		fields := decodeVLQFields(sb.String())
		require.Len(t, fields, 1)
		assert.Equal(t, v, fields[0])
	}
}

func TestMappingsGroupedByLine(t *testing.T) {
	m := New("out.js", "in.rb")
	m.Add(Segment{OutLine: 0, OutCol: 0, SrcLine: 0, SrcCol: 0, NameIndex: -1})
	m.Add(Segment{OutLine: 0, OutCol: 4, SrcLine: 0, SrcCol: 4, NameIndex: m.NameIndex("x")})
	m.Add(Segment{OutLine: 2, OutCol: 0, SrcLine: 1, SrcCol: 0, NameIndex: -1})

	mappings := m.Mappings()
	groups := strings.Split(mappings, ";")
	require.Len(t, groups, 3)
	assert.NotEmpty(t, groups[0])
	assert.Empty(t, groups[1])
	assert.NotEmpty(t, groups[2])
}

func TestMappingsRoundTrip(t *testing.T) {
	m := New("out.js", "in.rb")
	in := []Segment{
		{OutLine: 0, OutCol: 0, SrcLine: 0, SrcCol: 0, NameIndex: -1},
		{OutLine: 0, OutCol: 7, SrcLine: 0, SrcCol: 3, NameIndex: m.NameIndex("a")},
		{OutLine: 1, OutCol: 2, SrcLine: 3, SrcCol: 0, NameIndex: -1},
		{OutLine: 3, OutCol: 10, SrcLine: 4, SrcCol: 8, NameIndex: m.NameIndex("b")},
	}
	for _, s := range in {
		m.Add(s)
	}

	decoded := DecodeMappings(m.Mappings())
	require.Len(t, decoded, len(in))
	for i, want := range in {
		assert.Equal(t, want.OutLine, decoded[i].OutLine)
		assert.Equal(t, want.OutCol, decoded[i].OutCol)
		assert.Equal(t, want.SrcLine, decoded[i].SrcLine)
		assert.Equal(t, want.SrcCol, decoded[i].SrcCol)
		assert.Equal(t, want.NameIndex, decoded[i].NameIndex)
	}
}

func TestBuildPayload(t *testing.T) {
	m := New("out.js", "in.rb")
	m.Add(Segment{OutLine: 0, OutCol: 0, SrcLine: 0, SrcCol: 0, NameIndex: -1})
	payload := m.Build()
	assert.Equal(t, 3, payload.Version)
	assert.Equal(t, "out.js", payload.File)
	assert.Equal(t, []string{"in.rb"}, payload.Sources)
}

func TestFromPayloadPreservesMappings(t *testing.T) {
	m := New("out.js", "in.rb")
	m.NameIndex("x")
	m.Add(Segment{OutLine: 0, OutCol: 2, SrcLine: 1, SrcCol: 0, NameIndex: 0})
	original := m.Build()

	restored := FromPayload(original).Build()
	assert.Equal(t, original, restored)
}

func TestNameIndexDeduplicates(t *testing.T) {
	m := New("out.js", "in.rb")
	a := m.NameIndex("x")
	b := m.NameIndex("x")
	c := m.NameIndex("y")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, -1, m.NameIndex(""))
}
