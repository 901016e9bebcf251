package codec

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"
)

// decodeBytes 解码 base64，忽略其中的空白字符并容忍缺失的填充
func decodeBytes(b64 string) ([]byte, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '\f':
			return -1
		}
		return r
	}, b64)
	if len(clean)%4 != 0 {
		return base64.RawStdEncoding.DecodeString(strings.TrimRight(clean, "="))
	}
	return base64.StdEncoding.DecodeString(clean)
}

// binaryString 把每个字节映射为一个码点在 0..255 之间的字符
func binaryString(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

// decode 对应 Message 类型 decode
func decode(b64 string, raw bool) (string, bool) {
	b, err := decodeBytes(b64)
	if err != nil {
		return "", false
	}
	if raw {
		return binaryString(b), true
	}
	if !utf8.Valid(b) {
		return "", false
	}
	return string(b), true
}

// encode 对应 Message 类型 encode
func encode(text string, raw bool) (string, bool) {
	if !raw {
		return base64.StdEncoding.EncodeToString([]byte(text)), true
	}
	b := make([]byte, 0, len(text))
	for _, r := range text {
		if r > 0xFF {
			return "", false
		}
		b = append(b, byte(r))
	}
	return base64.StdEncoding.EncodeToString(b), true
}

// toByteArray 对应 Message 类型 convertToArrayBuffer
func toByteArray(b64 string) ([]byte, bool) {
	b, err := decodeBytes(b64)
	if err != nil {
		return nil, false
	}
	return b, true
}
