package frame

import (
	"errors"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	f := func(payload []byte) bool {
		if len(payload) > MaxPayloadLen {
			payload = payload[:MaxPayloadLen]
		}
		raw, err := Encode(CommandNewEvent, payload)
		if err != nil {
			return false
		}
		block, err := Decode(raw)
		if err != nil {
			return false
		}
		if block.Command != CommandNewEvent {
			return false
		}
		if len(block.Payload) != len(payload) {
			return false
		}
		for i := range payload {
			if block.Payload[i] != payload[i] {
				return false
			}
		}
		return true
	}
	require.NoError(t, quick.Check(f, nil))
}

func TestDecodeAccountID(t *testing.T) {
	raw, err := Encode(CommandAccountID, []byte("023456"))
	require.NoError(t, err)

	block, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, CommandAccountID, block.Command)
	assert.Equal(t, []byte("023456"), block.Payload)
}

func TestDecodeTooShort(t *testing.T) {
	_, err := Decode([]byte{0x40, 0x38})
	var invalid *InvalidBlockError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, KindTooShort, invalid.Kind)
}

func TestDecodeLengthMismatch(t *testing.T) {
	raw, err := Encode(CommandAcknowledge, nil)
	require.NoError(t, err)
	raw[0] += 1 // claim one extra payload byte that isn't there

	_, err = Decode(raw)
	var invalid *InvalidBlockError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, KindLengthMismatch, invalid.Kind)
}

func TestDecodeBadChecksum(t *testing.T) {
	raw, err := Encode(CommandReject, nil)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xFF

	_, err = Decode(raw)
	var invalid *InvalidBlockError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, KindBadChecksum, invalid.Kind)
}

func TestRejectBlockBytes(t *testing.T) {
	raw, err := Encode(CommandReject, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x40, 0x39, 0x86}, raw)
}

func TestEncodeTooLong(t *testing.T) {
	_, err := Encode(CommandASCII, make([]byte, MaxPayloadLen+1))
	assert.ErrorIs(t, err, ErrPayloadTooLong)
}

func TestIsEncryptionHandshake(t *testing.T) {
	assert.True(t, IsEncryptionHandshake([]byte{0x05, 0x01, 0x00}))
	assert.False(t, IsEncryptionHandshake([]byte{0x05, 0x02}))
	assert.False(t, IsEncryptionHandshake([]byte{0x05}))
}

func TestCommandStringUnknown(t *testing.T) {
	assert.Equal(t, "UNKNOWN(0xaa)", Command(0xAA).String())
	assert.Equal(t, "ACCOUNT_ID", CommandAccountID.String())
}
