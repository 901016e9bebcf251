package render

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"golang.org/x/text/cases"
)

// MaxTableRows 表格最多显示的数据行数
const MaxTableRows = 500

// 自动识别的分隔符
var delimiters = []rune{',', '\t', '|', ';', ':', '\x1e', '\x1f'}

// Table CSV 预览
type Table struct {
	Delimiter  string     `json:"delimiter"`
	Headers    []string   `json:"headers"`
	Rows       [][]string `json:"rows"`
	Truncated  bool       `json:"truncated"`
	ParseError bool       `json:"parseError"`
}

// ParseTable 解析 CSV/TSV 文本，第一行作为表头
// '#' 开头的行是注释，空行会被跳过
func ParseTable(text, ext string) *Table {
	delim := GuessDelimiter(text)
	if ext == ".tsv" && !strings.ContainsRune(firstLines(text, 1), delim) {
		delim = '\t'
	}

	t := &Table{Delimiter: string(delim), Rows: [][]string{}}
	r := newCSVReader(text, delim)
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				t.ParseError = true
				continue
			}
			t.ParseError = true
			break
		}
		if t.Headers == nil {
			t.Headers = record
			continue
		}
		if len(t.Rows) == MaxTableRows {
			t.Truncated = true
			break
		}
		t.Rows = append(t.Rows, record)
	}
	if t.Headers == nil {
		t.Headers = []string{}
	}
	return t
}

// Filter 返回任一单元格包含 query 的行，忽略大小写
func (t *Table) Filter(query string) [][]string {
	if query == "" {
		return t.Rows
	}
	fold := cases.Fold()
	q := fold.String(query)
	out := make([][]string, 0)
	for _, row := range t.Rows {
		for _, cell := range row {
			if strings.Contains(fold.String(cell), q) {
				out = append(out, row)
				break
			}
		}
	}
	return out
}

// GuessDelimiter 取前几行，选择字段数最稳定且大于 1 的分隔符
func GuessDelimiter(text string) rune {
	sample := firstLines(text, 10)
	best := ','
	bestDelta := -1.0
	bestFields := 0.0

	for _, d := range delimiters {
		r := newCSVReader(sample, d)
		var counts []int
		for {
			record, err := r.Read()
			if err != nil {
				var perr *csv.ParseError
				if errors.As(err, &perr) {
					continue
				}
				break
			}
			counts = append(counts, len(record))
		}
		if len(counts) == 0 {
			continue
		}
		sum := 0
		for _, c := range counts {
			sum += c
		}
		avg := float64(sum) / float64(len(counts))
		if avg <= 1.99 {
			continue
		}
		delta := 0.0
		for _, c := range counts {
			diff := float64(c) - avg
			if diff < 0 {
				diff = -diff
			}
			delta += diff
		}
		if bestDelta < 0 || delta < bestDelta || (delta == bestDelta && avg > bestFields) {
			best, bestDelta, bestFields = d, delta, avg
		}
	}
	return best
}

func newCSVReader(text string, delim rune) *csv.Reader {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.Comment = '#'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r
}

func firstLines(text string, n int) string {
	lines := make([]string, 0, n)
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
		if len(lines) == n {
			break
		}
	}
	return strings.Join(lines, "\n")
}
