package render

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// ImageInfo 图像文件头信息
type ImageInfo struct {
	Width    uint32 `json:"width"`
	Height   uint32 `json:"height"`
	Channels uint16 `json:"channels"`
	Depth    uint16 `json:"depth"`
	Mode     string `json:"mode"`
}

var psdModes = map[uint16]string{
	0: "Bitmap",
	1: "Grayscale",
	2: "Indexed",
	3: "RGB",
	4: "CMYK",
	7: "Multichannel",
	8: "Duotone",
	9: "Lab",
}

// ErrInvalidHeader 文件头不符合格式
var ErrInvalidHeader = errors.New("invalid file header")

// ReadPSDHeader 解析 Photoshop 文件头
func ReadPSDHeader(data []byte) (*ImageInfo, error) {
	var h struct {
		Signature [4]byte
		Version   uint16
		Reserved  [6]byte
		Channels  uint16
		Height    uint32
		Width     uint32
		Depth     uint16
		ColorMode uint16
	}
	if err := binary.Read(bytes.NewReader(data), binary.BigEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	if string(h.Signature[:]) != "8BPS" || (h.Version != 1 && h.Version != 2) {
		return nil, fmt.Errorf("%w: not a psd file", ErrInvalidHeader)
	}
	mode, ok := psdModes[h.ColorMode]
	if !ok {
		mode = fmt.Sprintf("Unknown(%d)", h.ColorMode)
	}
	return &ImageInfo{
		Width:    h.Width,
		Height:   h.Height,
		Channels: h.Channels,
		Depth:    h.Depth,
		Mode:     mode,
	}, nil
}

// WasmSection 模块中的一个段
type WasmSection struct {
	ID   byte   `json:"id"`
	Name string `json:"name"`
	Size uint32 `json:"size"`
}

// WasmInfo WebAssembly 模块概要
type WasmInfo struct {
	Version  uint32        `json:"version"`
	Size     int           `json:"size"`
	Sections []WasmSection `json:"sections"`
}

var wasmSectionNames = []string{
	"custom", "type", "import", "function", "table", "memory", "global",
	"export", "start", "element", "code", "data", "datacount", "tag",
}

var wasmMagic = []byte{0x00, 'a', 's', 'm'}

// ReadWasm 校验模块头并列出各个段
func ReadWasm(data []byte) (*WasmInfo, error) {
	if len(data) < 8 || !bytes.Equal(data[:4], wasmMagic) {
		return nil, fmt.Errorf("%w: not a wasm module", ErrInvalidHeader)
	}
	info := &WasmInfo{
		Version:  binary.LittleEndian.Uint32(data[4:8]),
		Size:     len(data),
		Sections: []WasmSection{},
	}

	pos := 8
	for pos < len(data) {
		id := data[pos]
		pos++
		size, n, err := readULEB128(data[pos:])
		if err != nil {
			return nil, err
		}
		pos += n
		if uint64(pos)+uint64(size) > uint64(len(data)) {
			return nil, fmt.Errorf("%w: section %d overruns module", ErrInvalidHeader, id)
		}

		name := "unknown"
		if int(id) < len(wasmSectionNames) {
			name = wasmSectionNames[id]
		}
		// 自定义段的名字写在段内容开头
		if id == 0 {
			if l, m, err := readULEB128(data[pos : pos+int(size)]); err == nil && uint64(m)+uint64(l) <= uint64(size) {
				name = "custom:" + string(data[pos+m:pos+m+int(l)])
			}
		}
		info.Sections = append(info.Sections, WasmSection{ID: id, Name: name, Size: size})
		pos += int(size)
	}
	return info, nil
}

func readULEB128(b []byte) (uint32, int, error) {
	var result uint32
	var shift uint
	for i, c := range b {
		if i == 5 {
			break
		}
		result |= uint32(c&0x7f) << shift
		if c&0x80 == 0 {
			return result, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, fmt.Errorf("%w: bad leb128", ErrInvalidHeader)
}
