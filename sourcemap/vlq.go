// Package sourcemap builds a Source Map v3 payload: VLQ-encoded mappings from TGT
// (line, column) back to SRC (index, line, column, optional name).
package sourcemap

import "strings"

const base64Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// encodeVLQ appends the Base64-VLQ encoding of value to buf. This is the
// standard Source Map v3 scheme: the sign occupies the low bit, 5 data bits
// per digit, the 6th (continuation) bit set on every digit but the last.
func encodeVLQ(buf *strings.Builder, value int) {
	vlq := value << 1
	if value < 0 {
		vlq = (-value << 1) | 1
	}
	for {
		digit := vlq & 0x1f
		vlq >>= 5
		if vlq > 0 {
			digit |= 0x20
		}
		buf.WriteByte(base64Alphabet[digit])
		if vlq == 0 {
			break
		}
	}
}

// DecodeMappings parses a "mappings" string back into absolute segments,
// undoing the per-field delta encoding. Debug tooling and the round-trip
// tests use it to assert that every recorded token maps back inside its
// originating SRC span.
func DecodeMappings(mappings string) []Segment {
	var segments []Segment
	srcIndex, srcLine, srcCol, name := 0, 0, 0, 0
	for lineIdx, group := range strings.Split(mappings, ";") {
		outCol := 0
		if group == "" {
			continue
		}
		for _, seg := range strings.Split(group, ",") {
			fields := decodeVLQFields(seg)
			if len(fields) == 0 {
				continue
			}
			outCol += fields[0]
			s := Segment{OutLine: lineIdx, OutCol: outCol, NameIndex: -1}
			if len(fields) >= 4 {
				srcIndex += fields[1]
				srcLine += fields[2]
				srcCol += fields[3]
				s.SrcIndex = srcIndex
				s.SrcLine = srcLine
				s.SrcCol = srcCol
			}
			if len(fields) >= 5 {
				name += fields[4]
				s.NameIndex = name
			}
			segments = append(segments, s)
		}
	}
	return segments
}

func decodeVLQFields(seg string) []int {
	var fields []int
	value, shift := 0, 0
	for i := 0; i < len(seg); i++ {
		digit := strings.IndexByte(base64Alphabet, seg[i])
		if digit < 0 {
			return fields
		}
		value |= (digit & 0x1f) << shift
		if digit&0x20 != 0 {
			shift += 5
			continue
		}
		if value&1 != 0 {
			fields = append(fields, -(value >> 1))
		} else {
			fields = append(fields, value>>1)
		}
		value, shift = 0, 0
	}
	return fields
}
