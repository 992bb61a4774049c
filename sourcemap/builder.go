package sourcemap

import (
	"encoding/json"
	"strings"
)

// Segment is one emitted-token mapping: the output (line, column) it
// occupies, and the SRC position it traces back to. Name is the index into
// the map's Names table, or -1 when the token has no associated symbol
// (only lvar/lvasgn/const/casgn carry one).
type Segment struct {
	OutLine   int // 0-based
	OutCol    int // 0-based
	SrcIndex  int // index into Sources; always 0 for a single-file conversion
	SrcLine   int // 0-based
	SrcCol    int // 0-based
	NameIndex int // -1 if none
}

// Map accumulates segments during conversion and renders the Source Map v3
// JSON payload fields. Mutates during conversion;
// confined to one converter instance per run.
type Map struct {
	File    string
	Sources []string
	Names   []string

	segments    []Segment
	nameIndex   map[string]int
	prebuilt    *Payload
}

// New returns an empty Map for the given output file name and a single SRC
// source name.
func New(file, source string) *Map {
	return &Map{File: file, Sources: []string{source}, nameIndex: make(map[string]int)}
}

// NameIndex returns the index of name in the Names table, inserting it if
// absent.
func (m *Map) NameIndex(name string) int {
	if name == "" {
		return -1
	}
	if idx, ok := m.nameIndex[name]; ok {
		return idx
	}
	idx := len(m.Names)
	m.Names = append(m.Names, name)
	m.nameIndex[name] = idx
	return idx
}

// Add records one token mapping.
func (m *Map) Add(seg Segment) {
	m.segments = append(m.segments, seg)
}

// Mappings renders the VLQ "mappings" string: segments grouped by output
// line with ';' separators, fields within a segment and segments within a
// line separated by ','. Each segment field is delta-encoded against the
// previous segment's corresponding field, per the Source Map v3 scheme.
func (m *Map) Mappings() string {
	if len(m.segments) == 0 {
		return ""
	}
	// Sort is the caller's responsibility in practice (the converter emits
	// in left-to-right, top-to-bottom order "Emission
	// order is a single left-to-right traversal"), but guard against
	// out-of-order segments defensively since grouping assumes it.
	maxLine := 0
	for _, s := range m.segments {
		if s.OutLine > maxLine {
			maxLine = s.OutLine
		}
	}
	byLine := make([][]Segment, maxLine+1)
	for _, s := range m.segments {
		byLine[s.OutLine] = append(byLine[s.OutLine], s)
	}

	var out strings.Builder
	prevSrcIndex, prevSrcLine, prevSrcCol, prevName := 0, 0, 0, 0
	for line := 0; line <= maxLine; line++ {
		if line > 0 {
			out.WriteByte(';')
		}
		prevOutCol := 0
		for i, s := range byLine[line] {
			if i > 0 {
				out.WriteByte(',')
			}
			encodeVLQ(&out, s.OutCol-prevOutCol)
			prevOutCol = s.OutCol
			encodeVLQ(&out, s.SrcIndex-prevSrcIndex)
			prevSrcIndex = s.SrcIndex
			encodeVLQ(&out, s.SrcLine-prevSrcLine)
			prevSrcLine = s.SrcLine
			encodeVLQ(&out, s.SrcCol-prevSrcCol)
			prevSrcCol = s.SrcCol
			if s.NameIndex >= 0 {
				encodeVLQ(&out, s.NameIndex-prevName)
				prevName = s.NameIndex
			}
		}
	}
	return out.String()
}

// Payload is the JSON-serializable Source Map v3 object.
type Payload struct {
	Version  int      `json:"version"`
	File     string   `json:"file,omitempty"`
	Sources  []string `json:"sources"`
	Names    []string `json:"names"`
	Mappings string   `json:"mappings"`
}

// MarshalJSON renders the map as its Source Map v3 JSON object, so a Map
// drops straight into json.Marshal-ing callers and file emission.
func (m *Map) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Build())
}

// FromPayload wraps an already rendered payload (e.g. read back from a
// conversion cache) in a Map whose Build returns it unchanged.
func FromPayload(p Payload) *Map {
	return &Map{
		File:     p.File,
		Sources:  p.Sources,
		Names:    p.Names,
		prebuilt: &p,
	}
}

// Build renders the final payload.
func (m *Map) Build() Payload {
	if m.prebuilt != nil {
		return *m.prebuilt
	}
	return Payload{
		Version:  3,
		File:     m.File,
		Sources:  m.Sources,
		Names:    m.Names,
		Mappings: m.Mappings(),
	}
}
