package render

import (
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strings"
)

type notebook struct {
	Metadata struct {
		LanguageInfo struct {
			Name string `json:"name"`
		} `json:"language_info"`
		Kernelspec struct {
			Language string `json:"language"`
		} `json:"kernelspec"`
	} `json:"metadata"`
	Cells      []cell `json:"cells"`
	Worksheets []struct {
		Cells []cell `json:"cells"`
	} `json:"worksheets"`
}

type cell struct {
	CellType       string          `json:"cell_type"`
	Source         multiline       `json:"source"`
	Input          multiline       `json:"input"`
	ExecutionCount *int            `json:"execution_count"`
	Outputs        []cellOutput    `json:"outputs"`
	Metadata       json.RawMessage `json:"metadata"`
}

type cellOutput struct {
	OutputType string               `json:"output_type"`
	Name       string               `json:"name"`
	Text       multiline            `json:"text"`
	Data       map[string]multiline `json:"data"`
	Ename      string               `json:"ename"`
	Evalue     string               `json:"evalue"`
	Traceback  []string             `json:"traceback"`
}

// multiline 字段可以是字符串或字符串数组
type multiline string

func (m *multiline) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*m = multiline(s)
		return nil
	}
	var parts []string
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	*m = multiline(strings.Join(parts, ""))
	return nil
}

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)

// StripANSI 去掉终端颜色控制符
func StripANSI(s string) string {
	return ansiEscape.ReplaceAllString(s, "")
}

// Notebook 把 Jupyter notebook 渲染为 HTML
func Notebook(source, styleName string) (string, error) {
	var nb notebook
	if err := json.Unmarshal([]byte(source), &nb); err != nil {
		return "", fmt.Errorf("解析 notebook 失败: %w", err)
	}

	language := nb.Metadata.LanguageInfo.Name
	if language == "" {
		language = nb.Metadata.Kernelspec.Language
	}
	if language == "" {
		language = "python"
	}

	cells := nb.Cells
	for _, ws := range nb.Worksheets {
		cells = append(cells, ws.Cells...)
	}

	var out strings.Builder
	out.WriteString(`<div class="nb-notebook">` + "\n")
	for _, c := range cells {
		src := string(c.Source)
		if src == "" {
			src = string(c.Input)
		}
		switch c.CellType {
		case "markdown":
			rendered, err := Markdown(src, styleName)
			if err != nil {
				return "", err
			}
			out.WriteString(`<div class="nb-cell nb-markdown-cell">` + rendered + "</div>\n")
		case "code":
			out.WriteString(`<div class="nb-cell nb-code-cell">`)
			prompt := " "
			if c.ExecutionCount != nil {
				prompt = fmt.Sprintf("%d", *c.ExecutionCount)
			}
			out.WriteString(`<div class="nb-input" data-prompt="[` + prompt + `]">`)
			code, _, err := Highlight("", language, src, styleName)
			if err != nil {
				code = "<pre><code>" + html.EscapeString(src) + "</code></pre>"
			}
			out.WriteString(code + "</div>")
			for _, o := range c.Outputs {
				out.WriteString(renderOutput(o))
			}
			out.WriteString("</div>\n")
		default:
			out.WriteString(`<div class="nb-cell nb-raw-cell"><pre>` + html.EscapeString(src) + "</pre></div>\n")
		}
	}
	out.WriteString("</div>\n")
	return out.String(), nil
}

func renderOutput(o cellOutput) string {
	switch o.OutputType {
	case "stream":
		return `<pre class="nb-output nb-stream nb-` + html.EscapeString(o.Name) + `">` + html.EscapeString(StripANSI(string(o.Text))) + "</pre>"
	case "error", "pyerr":
		tb := StripANSI(strings.Join(o.Traceback, "\n"))
		if tb == "" {
			tb = o.Ename + ": " + o.Evalue
		}
		return `<pre class="nb-output nb-error">` + html.EscapeString(tb) + "</pre>"
	case "execute_result", "display_data", "pyout":
		for _, mime := range []string{"image/png", "image/jpeg", "image/gif"} {
			if data, ok := o.Data[mime]; ok {
				return `<div class="nb-output"><img src="` + dataURI(mime, string(data)) + `" alt="output"></div>`
			}
		}
		if data, ok := o.Data["text/plain"]; ok {
			return `<pre class="nb-output">` + html.EscapeString(StripANSI(string(data))) + "</pre>"
		}
		if o.Text != "" {
			return `<pre class="nb-output">` + html.EscapeString(StripANSI(string(o.Text))) + "</pre>"
		}
	}
	return ""
}
