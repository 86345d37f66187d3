package charmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeASCIIOnlyIgnoresMap(t *testing.T) {
	payload := []byte("BURGLARY ALARM ZONE 1012")
	assert.Equal(t, "BURGLARY ALARM ZONE 1012", Default.Decode(payload))
	assert.Equal(t, "BURGLARY ALARM ZONE 1012", Map{}.Decode(payload))
}

func TestDecodeTransliteration(t *testing.T) {
	// 0xC5 is already "Å" under plain ISO-8859-1; no map entry needed.
	payload := []byte{0x50, 0xC5, 0x53, 0x4C, 0x41, 0x47}
	assert.Equal(t, "PÅSLAG", Default.Decode(payload))
}

func TestDecodeTransliterationUsesMapForProprietaryBytes(t *testing.T) {
	// 0x8F is the panel's proprietary byte for "Å", not its ISO-8859-1 glyph.
	payload := []byte{0x50, 0x8F, 0x53, 0x4C, 0x41, 0x47}
	assert.Equal(t, "PÅSLAG", Default.Decode(payload))
}

func TestDecodeTrimsWhitespace(t *testing.T) {
	assert.Equal(t, "hello", Default.Decode([]byte("  hello  ")))
}

func TestMergeOverridesDefault(t *testing.T) {
	m := Merge(map[byte]string{0x84: "X"})
	assert.Equal(t, rune('X'), m[0x84])
	assert.Equal(t, rune('å'), m[0x86])
}

func TestParseConfigKeysAcceptsHexAndDecimal(t *testing.T) {
	parsed, err := ParseConfigKeys(map[string]string{"0x84": "X", "134": "Y"})
	assert.NoError(t, err)
	assert.Equal(t, "X", parsed[0x84])
	assert.Equal(t, "Y", parsed[134])
}

func TestParseConfigKeysRejectsInvalidKey(t *testing.T) {
	_, err := ParseConfigKeys(map[string]string{"not-a-byte": "X"})
	assert.Error(t, err)
}
