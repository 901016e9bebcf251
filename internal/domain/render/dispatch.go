package render

import (
	"path"
	"strings"

	"git-browser-web/pkg/types"
)

// Kind 渲染器
type Kind string

// 渲染器种类
const (
	KindEditor      Kind = "editor"
	KindImage       Kind = "image"
	KindPDF         Kind = "pdf"
	KindVideo       Kind = "video"
	KindAudio       Kind = "audio"
	KindModel       Kind = "model"
	KindFont        Kind = "font"
	KindZip         Kind = "zip"
	KindMarkdown    Kind = "markdown"
	KindAsciiDoc    Kind = "asciidoc"
	KindCSV         Kind = "csv"
	KindNotebook    Kind = "notebook"
	KindEmbeddedDoc Kind = "embedded-doc"
	KindPSD         Kind = "psd"
	KindWasm        Kind = "wasm"
	KindUnsupported Kind = "unsupported"
	KindEmpty       Kind = "empty"
)

// Class 扩展名的解码策略
type Class int

// 解码策略
const (
	// ClassText 解码后交给代码编辑器
	ClassText Class = iota
	// ClassBinary 不做 UTF-8 解码，直接预览
	ClassBinary
	// ClassDual 可以作为文本查看，也可以切换到富文本预览
	ClassDual
)

func (c Class) String() string {
	switch c {
	case ClassBinary:
		return "binary"
	case ClassDual:
		return "dual"
	default:
		return "text"
	}
}

// Renderer 一个扩展名对应的渲染器和解码策略
type Renderer struct {
	Kind  Kind
	Class Class
	MIME  string
}

var table = map[string]Renderer{
	".apng":  {KindImage, ClassBinary, "image/apng"},
	".avif":  {KindImage, ClassBinary, "image/avif"},
	".gif":   {KindImage, ClassBinary, "image/gif"},
	".png":   {KindImage, ClassBinary, "image/png"},
	".webp":  {KindImage, ClassBinary, "image/webp"},
	".jpg":   {KindImage, ClassBinary, "image/jpeg"},
	".jpeg":  {KindImage, ClassBinary, "image/jpeg"},
	".jfif":  {KindImage, ClassBinary, "image/jpeg"},
	".pjpeg": {KindImage, ClassBinary, "image/jpeg"},
	".pjp":   {KindImage, ClassBinary, "image/jpeg"},
	".ico":   {KindImage, ClassBinary, "image/x-icon"},
	".bmp":   {KindImage, ClassBinary, "image/bmp"},
	".svg":   {KindImage, ClassDual, "image/svg+xml"},

	".pdf": {KindPDF, ClassBinary, "application/pdf"},

	".mp4":  {KindVideo, ClassBinary, "video/mp4"},
	".webm": {KindVideo, ClassBinary, "video/webm"},

	".mp3": {KindAudio, ClassBinary, "audio/mpeg"},
	".wav": {KindAudio, ClassBinary, "audio/wav"},
	".ogg": {KindAudio, ClassBinary, "audio/ogg"},
	".aac": {KindAudio, ClassBinary, "audio/aac"},

	".glb":  {KindModel, ClassBinary, "model/gltf-binary"},
	".gltf": {KindModel, ClassDual, "model/gltf+json"},

	".eot":   {KindFont, ClassBinary, "application/vnd.ms-fontobject"},
	".otf":   {KindFont, ClassBinary, "font/otf"},
	".ttf":   {KindFont, ClassBinary, "font/ttf"},
	".woff":  {KindFont, ClassBinary, "font/woff"},
	".woff2": {KindFont, ClassBinary, "font/woff2"},

	".zip": {KindZip, ClassBinary, "application/zip"},

	".md":    {KindMarkdown, ClassDual, "text/markdown"},
	".mdx":   {KindMarkdown, ClassDual, "text/markdown"},
	".adoc":  {KindAsciiDoc, ClassDual, "text/asciidoc"},
	".csv":   {KindCSV, ClassDual, "text/csv"},
	".tsv":   {KindCSV, ClassDual, "text/tab-separated-values"},
	".ipynb": {KindNotebook, ClassDual, "application/x-ipynb+json"},

	".doc":  {KindEmbeddedDoc, ClassBinary, "application/msword"},
	".docx": {KindEmbeddedDoc, ClassBinary, "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
	".ppt":  {KindEmbeddedDoc, ClassBinary, "application/vnd.ms-powerpoint"},
	".pptx": {KindEmbeddedDoc, ClassBinary, "application/vnd.openxmlformats-officedocument.presentationml.presentation"},
	".xls":  {KindEmbeddedDoc, ClassBinary, "application/vnd.ms-excel"},
	".xlsx": {KindEmbeddedDoc, ClassBinary, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},

	".psd":  {KindPSD, ClassBinary, "image/vnd.adobe.photoshop"},
	".wasm": {KindWasm, ClassBinary, "application/wasm"},
}

// 预览时需要解码后文本的双模式扩展名，svg 和 gltf 需要原始字节
var previewText = map[string]bool{
	".adoc":  true,
	".csv":   true,
	".ipynb": true,
	".md":    true,
	".mdx":   true,
	".tsv":   true,
}

var editor = Renderer{Kind: KindEditor, Class: ClassText, MIME: "text/plain"}

// Extension 返回文件名的小写扩展名，含点号；没有扩展名时返回空字符串
func Extension(name string) string {
	return strings.ToLower(path.Ext(strings.TrimSpace(name)))
}

// Select 根据扩展名选择渲染器，未登记的扩展名交给代码编辑器
func Select(ext string) Renderer {
	if r, ok := table[strings.ToLower(ext)]; ok {
		return r
	}
	return editor
}

// NeedsDecode 加载后是否需要尝试 UTF-8 解码
func NeedsDecode(ext string) bool {
	return Select(ext).Class == ClassText
}

// IsDual 是否是双模式扩展名
func IsDual(ext string) bool {
	return Select(ext).Class == ClassDual
}

// IsBinary 是否只能预览
func IsBinary(ext string) bool {
	return Select(ext).Class == ClassBinary
}

// PreviewWantsText 预览该扩展名时是否使用解码后的文本
func PreviewWantsText(ext string) bool {
	return previewText[strings.ToLower(ext)]
}

// ForTab 返回当前应使用的渲染器
func ForTab(tab types.Tab) Kind {
	if tab.CanEditorRender {
		return KindEditor
	}
	if r, ok := table[strings.ToLower(tab.Extension)]; ok {
		return r.Kind
	}
	return KindUnsupported
}

// Extensions 返回所有登记的扩展名及其策略，供 API 输出
func Extensions() map[string]string {
	out := make(map[string]string, len(table))
	for ext, r := range table {
		out[ext] = r.Class.String()
	}
	return out
}
