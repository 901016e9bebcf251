package render

import (
	"bytes"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Language 编辑器使用的语言
type Language struct {
	ID          string `json:"language"`
	DisplayName string `json:"displayName"`
	Extension   string `json:"extension"`
}

// 未识别时使用纯文本
const (
	PlainTextID   = "plaintext"
	PlainTextName = "Plain Text"
)

// LanguageFor 根据文件名识别语言
func LanguageFor(fileName string) Language {
	ext := Extension(fileName)
	lexer := lexers.Match(strings.TrimSpace(fileName))
	if lexer == nil {
		return Language{ID: PlainTextID, DisplayName: PlainTextName, Extension: ext}
	}
	cfg := lexer.Config()
	id := strings.ToLower(cfg.Name)
	if len(cfg.Aliases) > 0 {
		id = cfg.Aliases[0]
	}
	return Language{ID: id, DisplayName: cfg.Name, Extension: ext}
}

// StyleFor 根据主题选择高亮样式
func StyleFor(theme string) string {
	if theme == "theme-dark" {
		return "dracula"
	}
	return "github"
}

func lexerFor(fileName, language string) chroma.Lexer {
	var lexer chroma.Lexer
	if fileName != "" {
		lexer = lexers.Match(fileName)
	}
	if lexer == nil && language != "" {
		lexer = lexers.Get(language)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return chroma.Coalesce(lexer)
}

// Highlight 把源码渲染为带 class 的 HTML，并返回对应的 CSS
func Highlight(fileName, language, source, styleName string) (htmlOut string, css string, err error) {
	lexer := lexerFor(fileName, language)
	style := styles.Get(styleName)
	if style == nil {
		style = styles.Fallback
	}
	formatter := chromahtml.New(chromahtml.WithClasses(true), chromahtml.WithLineNumbers(true), chromahtml.TabWidth(4))

	iterator, err := lexer.Tokenise(nil, source)
	if err != nil {
		return "", "", err
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return "", "", err
	}
	var cssBuf bytes.Buffer
	if err := formatter.WriteCSS(&cssBuf, style); err != nil {
		return "", "", err
	}
	return buf.String(), cssBuf.String(), nil
}
