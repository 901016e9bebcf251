package codec

import (
	"context"
	"encoding/base64"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChannel(t *testing.T) *Channel {
	t.Helper()
	c := NewChannel()
	t.Cleanup(c.Close)
	return c
}

func TestRoundTripUnicode(t *testing.T) {
	c := newChannel(t)
	ctx := context.Background()

	for _, s := range []string{"", "hello", "héllo wörld", "日本語のテキスト", "emoji 🚀🔥", "line\nbreaks\ttabs"} {
		enc, ok := c.Encode(ctx, s, false)
		require.True(t, ok, s)
		dec, ok := c.Decode(ctx, enc, false)
		require.True(t, ok, s)
		assert.Equal(t, s, dec)
	}
}

func TestDecodeInvalidUTF8IsNull(t *testing.T) {
	c := newChannel(t)
	b64 := base64.StdEncoding.EncodeToString([]byte{0x89, 'P', 'N', 'G', 0xff, 0xfe})

	_, ok := c.Decode(context.Background(), b64, false)
	assert.False(t, ok)

	raw, ok := c.Decode(context.Background(), b64, true)
	require.True(t, ok)
	assert.Equal(t, []rune{0x89, 'P', 'N', 'G', 0xff, 0xfe}, []rune(raw))
}

func TestDecodeMalformedBase64IsNull(t *testing.T) {
	c := newChannel(t)
	_, ok := c.Decode(context.Background(), "!!!not base64", false)
	assert.False(t, ok)
	_, ok = c.ToByteArray(context.Background(), "%%%")
	assert.False(t, ok)
}

func TestDecodeIgnoresWhitespaceAndPadding(t *testing.T) {
	c := newChannel(t)
	// GitHub wraps blob content every 60 characters
	dec, ok := c.Decode(context.Background(), "aGVs\nbG8g\r\nd29y\nbGQ=\n", false)
	require.True(t, ok)
	assert.Equal(t, "hello world", dec)

	dec, ok = c.Decode(context.Background(), "aGk", false)
	require.True(t, ok)
	assert.Equal(t, "hi", dec)
}

func TestRoundTripKeepsLeadingBOM(t *testing.T) {
	c := newChannel(t)
	text := "\uFEFFhéllo wörld"
	enc, ok := c.Encode(context.Background(), text, false)
	require.True(t, ok)
	assert.Equal(t, base64.StdEncoding.EncodeToString(append([]byte{0xEF, 0xBB, 0xBF}, "héllo wörld"...)), enc)

	dec, ok := c.Decode(context.Background(), enc, false)
	require.True(t, ok)
	assert.Equal(t, text, dec)
}

func TestEncodeRaw(t *testing.T) {
	c := newChannel(t)
	enc, ok := c.Encode(context.Background(), string([]rune{0x00, 0x7f, 0xff}), true)
	require.True(t, ok)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte{0x00, 0x7f, 0xff}), enc)

	_, ok = c.Encode(context.Background(), "日本", true)
	assert.False(t, ok)
}

func TestToByteArray(t *testing.T) {
	c := newChannel(t)
	in := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, 0xff}
	out, ok := c.ToByteArray(context.Background(), base64.StdEncoding.EncodeToString(in))
	require.True(t, ok)
	assert.Equal(t, in, out)
}

func TestDoUnknownTypeIsNull(t *testing.T) {
	c := newChannel(t)
	res := c.Do(context.Background(), Message{Type: "compress", Message: "x"})
	assert.True(t, res.IsNull())
}

func TestClosedChannelReturnsNull(t *testing.T) {
	c := NewChannel()
	c.Close()
	c.Close()

	_, ok := c.Decode(context.Background(), "aGk=", false)
	assert.False(t, ok)
	assert.True(t, c.Do(context.Background(), Message{Type: TypeEncode, Message: "x"}).IsNull())
}

func TestCancelledContextReturnsNull(t *testing.T) {
	c := newChannel(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := c.Encode(ctx, "x", false)
	assert.False(t, ok)
}

func TestConcurrentCallers(t *testing.T) {
	c := newChannel(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			enc, ok := c.Encode(context.Background(), "ünïcödé", false)
			assert.True(t, ok)
			dec, ok := c.Decode(context.Background(), enc, false)
			assert.True(t, ok)
			assert.Equal(t, "ünïcödé", dec)
		}()
	}
	wg.Wait()
}
