// Package charmap applies the panel's proprietary 8-bit-to-Unicode
// transliteration to ASCII block payloads.
package charmap

import (
	"fmt"
	"strconv"
	"strings"
)

// Map is a byte-to-rune substitution table, applied after an ISO-8859-1
// decode. Sequences are not supported: each entry replaces a single byte's
// codepoint independently of its neighbors.
type Map map[byte]rune

// Default holds the six-entry table the panel firmware is known to need for
// Swedish-language installations. Deployments add entries via configuration;
// Default is never mutated.
var Default = Map{
	0x84: 'ä',
	0x86: 'å',
	0x8E: 'Ä',
	0x8F: 'Å',
	0x94: 'ö',
	0x99: 'Ö',
}

// Merge returns a new Map containing Default's entries overridden by extra.
func Merge(extra map[byte]string) Map {
	merged := make(Map, len(Default)+len(extra))
	for b, r := range Default {
		merged[b] = r
	}
	for b, s := range extra {
		for _, r := range s {
			merged[b] = r
			break
		}
	}
	return merged
}

// ParseConfigKeys converts a configuration char_map section (string byte keys
// like "0x84" or "132") into the byte-keyed form Merge expects.
func ParseConfigKeys(cfg map[string]string) (map[byte]string, error) {
	out := make(map[byte]string, len(cfg))
	for k, v := range cfg {
		n, err := strconv.ParseUint(k, 0, 8)
		if err != nil {
			return nil, fmt.Errorf("charmap: invalid byte key %q: %w", k, err)
		}
		out[byte(n)] = v
	}
	return out, nil
}

// Decode converts raw ASCII-block payload bytes to a Unicode string: each
// byte is first treated as its own ISO-8859-1 codepoint, then bytes present
// in m are substituted for their configured scalar. The result is trimmed
// of surrounding whitespace.
func (m Map) Decode(payload []byte) string {
	var b strings.Builder
	b.Grow(len(payload))
	for _, raw := range payload {
		if r, ok := m[raw]; ok {
			b.WriteRune(r)
			continue
		}
		b.WriteRune(rune(raw))
	}
	return strings.TrimSpace(b.String())
}
