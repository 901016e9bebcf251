package render

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// newMarkdown 创建 goldmark 渲染器
// 不开启 WithUnsafe，原始 HTML 会被替换为注释
func newMarkdown(styleName string) goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Typographer,
			highlighting.NewHighlighting(
				highlighting.WithStyle(styleName),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
}

// Markdown 渲染 Markdown 文本
func Markdown(source, styleName string) (string, error) {
	var buf bytes.Buffer
	if err := newMarkdown(styleName).Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var (
	adocTitle    = regexp.MustCompile(`^(={1,6})\s+(.+)$`)
	adocListItem = regexp.MustCompile(`^(\*{1,5}|-)\s+(.+)$`)
	adocOrdered  = regexp.MustCompile(`^\.{1,5}\s+(.+)$`)
	adocBold     = regexp.MustCompile(`\*([^*\n]+)\*`)
	adocItalic   = regexp.MustCompile(`_([^_\n]+)_`)
	adocMono     = regexp.MustCompile("`([^`\n]+)`")
	adocLink     = regexp.MustCompile(`(https?://[^\s\[]+)\[([^\]]*)\]`)
)

// AsciiDoc 渲染 AsciiDoc 的常用子集：标题、段落、列表、代码块和行内格式
// 所有文本先做 HTML 转义
func AsciiDoc(source string) string {
	var out strings.Builder
	var para []string
	list := ""
	inBlock := false

	flushPara := func() {
		if len(para) > 0 {
			out.WriteString("<p>" + adocInline(strings.Join(para, " ")) + "</p>\n")
			para = nil
		}
	}
	closeList := func() {
		if list != "" {
			out.WriteString("</" + list + ">\n")
			list = ""
		}
	}
	openList := func(tag string) {
		if list != tag {
			closeList()
			out.WriteString("<" + tag + ">\n")
			list = tag
		}
	}

	for _, line := range strings.Split(strings.ReplaceAll(source, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == "----" {
			flushPara()
			closeList()
			if inBlock {
				out.WriteString("</code></pre>\n")
			} else {
				out.WriteString("<pre><code>")
			}
			inBlock = !inBlock
			continue
		}
		if inBlock {
			out.WriteString(html.EscapeString(line) + "\n")
			continue
		}

		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flushPara()
			closeList()
		case strings.HasPrefix(trimmed, "//"), strings.HasPrefix(trimmed, ":"):
			// 注释和文档属性不输出
		case adocTitle.MatchString(trimmed):
			flushPara()
			closeList()
			m := adocTitle.FindStringSubmatch(trimmed)
			level := len(m[1])
			tag := "h" + string(rune('0'+level))
			out.WriteString("<" + tag + ">" + adocInline(m[2]) + "</" + tag + ">\n")
		case adocListItem.MatchString(trimmed):
			flushPara()
			openList("ul")
			out.WriteString("<li>" + adocInline(adocListItem.FindStringSubmatch(trimmed)[2]) + "</li>\n")
		case adocOrdered.MatchString(trimmed):
			flushPara()
			openList("ol")
			out.WriteString("<li>" + adocInline(adocOrdered.FindStringSubmatch(trimmed)[1]) + "</li>\n")
		default:
			closeList()
			para = append(para, trimmed)
		}
	}
	if inBlock {
		out.WriteString("</code></pre>\n")
	}
	flushPara()
	closeList()
	return out.String()
}

func adocInline(s string) string {
	s = html.EscapeString(s)
	s = adocLink.ReplaceAllString(s, `<a href="$1" rel="noopener noreferrer" target="_blank">$2</a>`)
	s = adocMono.ReplaceAllString(s, "<code>$1</code>")
	s = adocBold.ReplaceAllString(s, "<strong>$1</strong>")
	s = adocItalic.ReplaceAllString(s, "<em>$1</em>")
	return s
}
