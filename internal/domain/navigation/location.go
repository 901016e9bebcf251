package navigation

import (
	"fmt"
	"net/url"
	"strings"

	"git-browser-web/pkg/types"
)

// Location 地址栏中保存的浏览状态，对应 /{owner}/{repo}?branch=&file=
type Location struct {
	RepoPath string `json:"repoPath"`
	Branch   string `json:"branch"`
	File     string `json:"file,omitempty"`
}

// String 返回地址栏形式，没有打开仓库时为 "/"
func (l Location) String() string {
	if l.RepoPath == "" {
		return "/"
	}
	q := url.Values{}
	if l.Branch != "" && l.Branch != types.DefaultBranch {
		q.Set("branch", l.Branch)
	}
	if l.File != "" {
		q.Set("file", l.File)
	}
	s := "/" + strings.Trim(l.RepoPath, "/")
	if len(q) > 0 {
		s += "?" + q.Encode()
	}
	return s
}

// ParseLocation 从地址的路径和查询参数恢复 Location
//
// 路径至少需要 owner 和 repo 两段，多余的段被忽略。
func ParseLocation(p string, query url.Values) (Location, error) {
	var segments []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) < 2 {
		return Location{}, fmt.Errorf("%w: %q", types.ErrInvalidURL, p)
	}

	loc := Location{
		RepoPath: segments[0] + "/" + strings.TrimSuffix(segments[1], ".git"),
		Branch:   query.Get("branch"),
		File:     strings.Trim(query.Get("file"), "/"),
	}
	if loc.Branch == "" {
		loc.Branch = types.DefaultBranch
	}
	return loc, nil
}
