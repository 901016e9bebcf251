package render

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"git-browser-web/internal/infrastructure/github"
	"git-browser-web/pkg/logger"
	"git-browser-web/pkg/types"

	"go.uber.org/zap"
)

// 提示信息
const (
	MessageUnsupported = "This file wasn't displayed because it's either binary or uses an unknown text encoding."
	MessageEmpty       = "No content to preview."
)

// ErrPreview 预览内容格式错误
var ErrPreview = errors.New("preview failed")

// Codec 预览需要的解码能力，*codec.Channel 实现了该接口
type Codec interface {
	Decode(ctx context.Context, b64 string, raw bool) (string, bool)
	ToByteArray(ctx context.Context, b64 string) ([]byte, bool)
}

// Input 渲染一个标签页所需的数据
type Input struct {
	Tab      types.Tab
	RepoPath string
	Branch   string
	Theme    string
}

// Output 渲染结果，按 Kind 只填充相应字段
type Output struct {
	Kind         Kind       `json:"kind"`
	Extension    string     `json:"extension"`
	MIME         string     `json:"mime,omitempty"`
	DataURI      string     `json:"dataUri,omitempty"`
	HTML         string     `json:"html,omitempty"`
	CSS          string     `json:"css,omitempty"`
	Text         string     `json:"text,omitempty"`
	Language     string     `json:"language,omitempty"`
	LanguageName string     `json:"languageName,omitempty"`
	Table        *Table     `json:"table,omitempty"`
	Archive      *Archive   `json:"archive,omitempty"`
	EmbedURL     string     `json:"embedUrl,omitempty"`
	FileURL      string     `json:"fileUrl,omitempty"`
	Wasm         *WasmInfo  `json:"wasm,omitempty"`
	Image        *ImageInfo `json:"image,omitempty"`
	Message      string     `json:"message,omitempty"`
	// CanPreview 编辑器中是否显示预览按钮
	CanPreview bool `json:"canPreview"`
	// CanViewAsCode 预览中是否显示查看源码按钮
	CanViewAsCode bool `json:"canViewAsCode"`
}

// Preview 按标签页当前的模式渲染内容
func Preview(ctx context.Context, c Codec, in Input) (*Output, error) {
	tab := in.Tab
	ext := strings.ToLower(tab.Extension)
	r := Select(ext)
	out := &Output{Extension: ext, MIME: r.MIME}

	if tab.CanEditorRender {
		return renderEditor(tab, in.Theme, out, r)
	}

	out.Kind = ForTab(tab)
	out.CanViewAsCode = r.Class != ClassBinary

	// 双模式文件需要先得到文本，解码失败时按不支持处理
	var text string
	if r.Class == ClassDual {
		if tab.WasForceRendered && PreviewWantsText(ext) {
			text = tab.Content
		} else if strings.TrimSpace(tab.Content) == "" {
			text = ""
		} else {
			decoded, ok := c.Decode(ctx, tab.Content, false)
			if !ok {
				return unsupported(out), nil
			}
			text = decoded
		}
		if strings.TrimSpace(text) == "" {
			return empty(out), nil
		}
	} else if strings.TrimSpace(tab.Content) == "" {
		return empty(out), nil
	}

	switch out.Kind {
	case KindImage, KindPDF, KindVideo, KindAudio, KindFont:
		out.DataURI = dataURI(r.MIME, tab.Content)
	case KindModel:
		out.DataURI = dataURI(r.MIME, tab.Content)
		if ext == ".gltf" {
			out.Text = text
		}
	case KindMarkdown:
		html, err := Markdown(text, StyleFor(in.Theme))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPreview, err)
		}
		out.HTML = html
	case KindAsciiDoc:
		out.HTML = AsciiDoc(text)
		out.Text = text
	case KindCSV:
		out.Table = ParseTable(text, ext)
	case KindNotebook:
		html, err := Notebook(text, StyleFor(in.Theme))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPreview, err)
		}
		out.HTML = html
	case KindZip:
		data, ok := c.ToByteArray(ctx, tab.Content)
		if !ok {
			return nil, fmt.Errorf("%w: zip content is not valid base64", ErrPreview)
		}
		archive, err := ReadArchive(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPreview, err)
		}
		out.Archive = archive
	case KindEmbeddedDoc:
		out.FileURL = github.BuildFileURL(in.RepoPath, in.Branch, tab.Path, true)
		out.EmbedURL = EmbedURL(out.FileURL)
	case KindPSD:
		data, ok := c.ToByteArray(ctx, tab.Content)
		if !ok {
			return nil, fmt.Errorf("%w: psd content is not valid base64", ErrPreview)
		}
		info, err := ReadPSDHeader(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPreview, err)
		}
		out.Image = info
		out.DataURI = dataURI(r.MIME, tab.Content)
	case KindWasm:
		data, ok := c.ToByteArray(ctx, tab.Content)
		if !ok {
			return nil, fmt.Errorf("%w: wasm content is not valid base64", ErrPreview)
		}
		info, err := ReadWasm(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPreview, err)
		}
		out.Wasm = info
	default:
		return unsupported(out), nil
	}

	logger.Debug("生成预览", zap.String("path", tab.Path), zap.String("kind", string(out.Kind)))
	return out, nil
}

func renderEditor(tab types.Tab, theme string, out *Output, r Renderer) (*Output, error) {
	out.Kind = KindEditor
	out.Text = tab.Content
	out.CanPreview = r.Class == ClassDual

	lang := LanguageFor(tab.Title)
	out.Language = lang.ID
	out.LanguageName = lang.DisplayName

	html, css, err := Highlight(tab.Title, lang.ID, tab.Content, StyleFor(theme))
	if err != nil {
		// 高亮失败时仍返回纯文本
		logger.Warn("代码高亮失败", zap.String("path", tab.Path), zap.Error(err))
		return out, nil
	}
	out.HTML = html
	out.CSS = css
	return out, nil
}

func unsupported(out *Output) *Output {
	out.Kind = KindUnsupported
	out.Message = MessageUnsupported
	out.CanViewAsCode = true
	return out
}

func empty(out *Output) *Output {
	out.Kind = KindEmpty
	out.Message = MessageEmpty
	return out
}

func dataURI(mime, b64 string) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, b64)
	return "data:" + mime + ";base64," + clean
}

// EmbedURL 返回在线文档查看器的嵌入地址
func EmbedURL(fileURL string) string {
	return "https://docs.google.com/viewer?url=" + url.QueryEscape(fileURL) + "&embedded=true"
}
