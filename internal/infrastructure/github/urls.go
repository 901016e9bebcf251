package github

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	webBaseURL = "https://github.com"
	rawBaseURL = "https://raw.githubusercontent.com"
)

// AddScheme 在没有 http(s) 前缀的地址前补上 https://
func AddScheme(u string) string {
	lower := strings.ToLower(u)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return u
	}
	return "https://" + u
}

func parse(u string) (*url.URL, bool) {
	if strings.TrimSpace(u) == "" {
		return nil, false
	}
	parsed, err := url.Parse(AddScheme(strings.TrimSpace(u)))
	if err != nil || parsed.Host == "" {
		return nil, false
	}
	return parsed, true
}

// IsGithubURL 判断地址的主机名是否为 github.com
func IsGithubURL(u string) bool {
	parsed, ok := parse(u)
	if !ok {
		return false
	}
	return strings.ToLower(strings.TrimSpace(parsed.Hostname())) == "github.com"
}

// ExtractRepoPath 从 https://github.com/user/repo-name 中提取 user/repo-name
func ExtractRepoPath(u string) (string, bool) {
	parsed, ok := parse(u)
	if !ok {
		return "", false
	}
	var segments []string
	for _, s := range strings.Split(parsed.Path, "/") {
		if strings.TrimSpace(s) != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) < 2 {
		return "", false
	}
	repo := strings.TrimSuffix(segments[1], ".git")
	if repo == "" {
		return "", false
	}
	return segments[0] + "/" + repo, true
}

// RepoURL 把 user/repo-name 还原为仓库地址
func RepoURL(repoPath string) string {
	return webBaseURL + "/" + strings.Trim(repoPath, "/")
}

// BuildFileURL 返回在 GitHub 上查看文件的地址，raw 为 true 时返回原始内容地址
func BuildFileURL(repoPath, branch, filePath string, raw bool) string {
	if raw {
		return fmt.Sprintf("%s/%s/%s/%s", rawBaseURL, repoPath, EscapePath(branch), EscapePath(filePath))
	}
	return fmt.Sprintf("%s/%s/blob/%s/%s", webBaseURL, repoPath, EscapePath(branch), EscapePath(filePath))
}

// EscapePath 逐段转义路径，保留分隔符 /
func EscapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
