package render

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"strings"
	"testing"

	"git-browser-web/internal/domain/codec"
	"git-browser-web/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCodec(t *testing.T) *codec.Channel {
	t.Helper()
	ch := codec.NewChannel()
	t.Cleanup(ch.Close)
	return ch
}

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestPreviewEditor(t *testing.T) {
	out, err := Preview(context.Background(), newCodec(t), Input{
		Tab: types.Tab{Path: "src/main.go", Title: "main.go", Extension: ".go", Content: "package main\n", CanEditorRender: true},
	})
	require.NoError(t, err)
	assert.Equal(t, KindEditor, out.Kind)
	assert.Equal(t, "go", out.Language)
	assert.Equal(t, "package main\n", out.Text)
	assert.NotEmpty(t, out.HTML)
	assert.False(t, out.CanPreview)
}

func TestPreviewEditorOnDualAllowsPreview(t *testing.T) {
	out, err := Preview(context.Background(), newCodec(t), Input{
		Tab: types.Tab{Title: "README.md", Extension: ".md", Content: "# Hi", CanEditorRender: true},
	})
	require.NoError(t, err)
	assert.True(t, out.CanPreview)
}

func TestPreviewMarkdownFromBase64(t *testing.T) {
	out, err := Preview(context.Background(), newCodec(t), Input{
		Tab: types.Tab{Title: "README.md", Extension: ".md", Content: b64("# Title\n\n<script>x</script>\n\n```go\nfunc main() {}\n```\n")},
	})
	require.NoError(t, err)
	assert.Equal(t, KindMarkdown, out.Kind)
	assert.Contains(t, out.HTML, `<h1 id="title">Title</h1>`)
	assert.NotContains(t, out.HTML, "<script>")
	assert.Contains(t, out.HTML, "chroma")
	assert.True(t, out.CanViewAsCode)
}

func TestPreviewMarkdownForceRenderedText(t *testing.T) {
	out, err := Preview(context.Background(), newCodec(t), Input{
		Tab: types.Tab{Title: "a.md", Extension: ".md", Content: "*hi*", WasForceRendered: true},
	})
	require.NoError(t, err)
	assert.Contains(t, out.HTML, "<em>hi</em>")
}

func TestPreviewEmptyContent(t *testing.T) {
	out, err := Preview(context.Background(), newCodec(t), Input{
		Tab: types.Tab{Title: "a.md", Extension: ".md", Content: ""},
	})
	require.NoError(t, err)
	assert.Equal(t, KindEmpty, out.Kind)
	assert.Equal(t, MessageEmpty, out.Message)
}

func TestPreviewUndecodableTextIsUnsupported(t *testing.T) {
	out, err := Preview(context.Background(), newCodec(t), Input{
		Tab: types.Tab{Title: "blob.bin", Extension: ".bin", Content: base64.StdEncoding.EncodeToString([]byte{0xff, 0xfe, 0x00})},
	})
	require.NoError(t, err)
	assert.Equal(t, KindUnsupported, out.Kind)
	assert.Equal(t, MessageUnsupported, out.Message)
}

func TestPreviewImageDataURI(t *testing.T) {
	out, err := Preview(context.Background(), newCodec(t), Input{
		Tab: types.Tab{Title: "logo.png", Extension: ".png", Content: "iVBO\nRw0K"},
	})
	require.NoError(t, err)
	assert.Equal(t, KindImage, out.Kind)
	assert.Equal(t, "data:image/png;base64,iVBORw0K", out.DataURI)
	assert.False(t, out.CanViewAsCode)
}

func TestPreviewCSV(t *testing.T) {
	out, err := Preview(context.Background(), newCodec(t), Input{
		Tab: types.Tab{Title: "data.csv", Extension: ".csv", Content: b64("# comment\nname;age\nann;3\n\nbob;4\n")},
	})
	require.NoError(t, err)
	require.NotNil(t, out.Table)
	assert.Equal(t, ";", out.Table.Delimiter)
	assert.Equal(t, []string{"name", "age"}, out.Table.Headers)
	assert.Equal(t, [][]string{{"ann", "3"}, {"bob", "4"}}, out.Table.Rows)
	assert.False(t, out.Table.Truncated)
}

func TestParseTableTruncates(t *testing.T) {
	var b strings.Builder
	b.WriteString("a,b\n")
	for i := 0; i < MaxTableRows+10; i++ {
		b.WriteString("1,2\n")
	}
	table := ParseTable(b.String(), ".csv")
	assert.Len(t, table.Rows, MaxTableRows)
	assert.True(t, table.Truncated)
}

func TestParseTableTSVAndFilter(t *testing.T) {
	table := ParseTable("city\tcountry\nParis\tFrance\nLima\tPeru\n", ".tsv")
	assert.Equal(t, "\t", table.Delimiter)
	assert.Equal(t, [][]string{{"Lima", "Peru"}}, table.Filter("PERU"))
	assert.Len(t, table.Filter(""), 2)
}

func TestGuessDelimiter(t *testing.T) {
	assert.Equal(t, '|', GuessDelimiter("a|b|c\n1|2|3\n"))
	assert.Equal(t, ',', GuessDelimiter("a,b\n1,2\n"))
	assert.Equal(t, ',', GuessDelimiter("single\ncolumn\n"))
}

func TestPreviewNotebook(t *testing.T) {
	nb := `{
  "metadata": {"language_info": {"name": "python"}},
  "cells": [
    {"cell_type": "markdown", "source": ["# Analysis\n", "Some *text*"]},
    {"cell_type": "code", "execution_count": 1, "source": "print('hi')",
     "outputs": [
       {"output_type": "stream", "name": "stdout", "text": ["hi\n"]},
       {"output_type": "error", "ename": "ValueError", "evalue": "bad", "traceback": ["\u001b[31mValueError\u001b[0m: bad"]}
     ]}
  ]
}`
	out, err := Preview(context.Background(), newCodec(t), Input{
		Tab: types.Tab{Title: "a.ipynb", Extension: ".ipynb", Content: b64(nb)},
	})
	require.NoError(t, err)
	assert.Equal(t, KindNotebook, out.Kind)
	assert.Contains(t, out.HTML, "Analysis</h1>")
	assert.Contains(t, out.HTML, `data-prompt="[1]"`)
	assert.Contains(t, out.HTML, "nb-stdout")
	assert.Contains(t, out.HTML, "ValueError: bad")
	assert.NotContains(t, out.HTML, "\x1b")
}

func TestPreviewNotebookMalformed(t *testing.T) {
	_, err := Preview(context.Background(), newCodec(t), Input{
		Tab: types.Tab{Title: "a.ipynb", Extension: ".ipynb", Content: b64("{not json")},
	})
	assert.ErrorIs(t, err, ErrPreview)
}

func TestPreviewZip(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	_, err := w.Create("pkg/")
	require.NoError(t, err)
	f, err := w.Create("pkg/a.txt")
	require.NoError(t, err)
	_, err = f.Write([]byte("hello"))
	require.NoError(t, err)
	_, err = w.Create("README")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	out, err := Preview(context.Background(), newCodec(t), Input{
		Tab: types.Tab{Title: "a.zip", Extension: ".zip", Content: base64.StdEncoding.EncodeToString(buf.Bytes())},
	})
	require.NoError(t, err)
	require.NotNil(t, out.Archive)
	assert.Equal(t, []string{"pkg", "README"}, out.Archive.Roots)
	assert.Equal(t, 2, out.Archive.FileCount)
	assert.Equal(t, 1, out.Archive.DirCount)
	assert.Equal(t, []string{"pkg/a.txt"}, out.Archive.Tree["pkg"].Children)
	assert.Equal(t, int64(5), out.Archive.Tree["pkg/a.txt"].SizeOrZero())
}

func TestPreviewZipCorrupt(t *testing.T) {
	_, err := Preview(context.Background(), newCodec(t), Input{
		Tab: types.Tab{Title: "a.zip", Extension: ".zip", Content: b64("not a zip")},
	})
	assert.ErrorIs(t, err, ErrPreview)
}

func TestPreviewEmbeddedDoc(t *testing.T) {
	out, err := Preview(context.Background(), newCodec(t), Input{
		RepoPath: "octo/repo",
		Branch:   "main",
		Tab:      types.Tab{Path: "docs/plan.docx", Title: "plan.docx", Extension: ".docx", Content: b64("PK")},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://raw.githubusercontent.com/octo/repo/main/docs/plan.docx", out.FileURL)
	assert.Equal(t, "https://docs.google.com/viewer?url=https%3A%2F%2Fraw.githubusercontent.com%2Focto%2Frepo%2Fmain%2Fdocs%2Fplan.docx&embedded=true", out.EmbedURL)
}

func TestPreviewPSD(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("8BPS")
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint16(1)))
	buf.Write(make([]byte, 6))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint16(3)))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(480)))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(640)))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint16(8)))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint16(3)))

	out, err := Preview(context.Background(), newCodec(t), Input{
		Tab: types.Tab{Title: "a.psd", Extension: ".psd", Content: base64.StdEncoding.EncodeToString(buf.Bytes())},
	})
	require.NoError(t, err)
	require.NotNil(t, out.Image)
	assert.Equal(t, uint32(640), out.Image.Width)
	assert.Equal(t, uint32(480), out.Image.Height)
	assert.Equal(t, "RGB", out.Image.Mode)

	_, err = ReadPSDHeader([]byte("GIF89a"))
	assert.ErrorIs(t, err, ErrInvalidHeader)
}

func TestPreviewWasm(t *testing.T) {
	module := []byte{
		0x00, 'a', 's', 'm', 0x01, 0x00, 0x00, 0x00,
		0x01, 0x01, 0x00,
		0x00, 0x05, 0x04, 'n', 'a', 'm', 'e',
	}
	out, err := Preview(context.Background(), newCodec(t), Input{
		Tab: types.Tab{Title: "a.wasm", Extension: ".wasm", Content: base64.StdEncoding.EncodeToString(module)},
	})
	require.NoError(t, err)
	require.NotNil(t, out.Wasm)
	assert.Equal(t, uint32(1), out.Wasm.Version)
	assert.Equal(t, len(module), out.Wasm.Size)
	assert.Equal(t, []WasmSection{
		{ID: 1, Name: "type", Size: 1},
		{ID: 0, Name: "custom:name", Size: 5},
	}, out.Wasm.Sections)

	_, err = ReadWasm(module[:11])
	assert.NoError(t, err)
	_, err = ReadWasm([]byte{0x00, 'a', 's', 'm', 1, 0, 0, 0, 0x01, 0x09})
	assert.ErrorIs(t, err, ErrInvalidHeader)
	_, err = ReadWasm([]byte("nope"))
	assert.ErrorIs(t, err, ErrInvalidHeader)
}

func TestPreviewSVGAndGLTF(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg"></svg>`
	out, err := Preview(context.Background(), newCodec(t), Input{
		Tab: types.Tab{Title: "a.svg", Extension: ".svg", Content: b64(svg)},
	})
	require.NoError(t, err)
	assert.Equal(t, KindImage, out.Kind)
	assert.Equal(t, "data:image/svg+xml;base64,"+b64(svg), out.DataURI)

	gltf := `{"asset":{"version":"2.0"}}`
	out, err = Preview(context.Background(), newCodec(t), Input{
		Tab: types.Tab{Title: "a.gltf", Extension: ".gltf", Content: b64(gltf)},
	})
	require.NoError(t, err)
	assert.Equal(t, KindModel, out.Kind)
	assert.Equal(t, gltf, out.Text)
}

func TestAsciiDoc(t *testing.T) {
	html := AsciiDoc("= Guide\n:toc:\n\nIntro with *bold* and `code`.\n\n* one\n* two\n\n----\n<raw>\n----\n")
	assert.Contains(t, html, "<h1>Guide</h1>")
	assert.NotContains(t, html, "toc")
	assert.Contains(t, html, "<strong>bold</strong>")
	assert.Contains(t, html, "<code>code</code>")
	assert.Contains(t, html, "<ul>\n<li>one</li>\n<li>two</li>\n</ul>")
	assert.Contains(t, html, "&lt;raw&gt;")
}

func TestStripANSI(t *testing.T) {
	assert.Equal(t, "red", StripANSI("\x1b[31mred\x1b[0m"))
}
