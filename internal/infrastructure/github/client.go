package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"git-browser-web/pkg/config"
	"git-browser-web/pkg/logger"
	"git-browser-web/pkg/types"

	"go.uber.org/zap"
)

// TokenSource 提供当前登录用户的 access token
type TokenSource interface {
	Token() string
}

// BlobCache 以 blob 地址为键缓存 base64 内容
type BlobCache interface {
	Get(ctx context.Context, blobURL string) (string, bool, error)
	Put(ctx context.Context, blobURL, content string) error
}

// Client GitHub 客户端
type Client struct {
	baseURL    string
	rawBaseURL string
	token      string
	perPage    int
	httpClient *http.Client
	tokens     TokenSource
	cache      BlobCache
}

// Option 配置 Client
type Option func(*Client)

// WithTokenSource 优先使用登录用户的 token
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithCache 启用 blob 缓存
func WithCache(cache BlobCache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithHTTPClient 替换底层 http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRawBaseURL 替换 raw.githubusercontent.com，测试时使用
func WithRawBaseURL(u string) Option {
	return func(c *Client) { c.rawBaseURL = u }
}

// NewClient 创建 GitHub 客户端实例
func NewClient(cfg *config.Config, opts ...Option) *Client {
	c := &Client{
		baseURL:    cfg.GetAPIBaseURL(),
		rawBaseURL: rawBaseURL,
		token:      cfg.GetGithubToken(),
		perPage:    cfg.GetBranchesPerPage(),
		httpClient: &http.Client{Timeout: cfg.GetTimeout()},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// repoAPIPath 校验仓库地址并返回 API 路径中的 user/repo 部分
func repoAPIPath(repoURL string) (string, error) {
	if !IsGithubURL(repoURL) {
		return "", types.ErrInvalidURL
	}
	repoPath, ok := ExtractRepoPath(repoURL)
	if !ok {
		return "", types.ErrRepoNotFound
	}
	return repoPath, nil
}

// GetDefaultBranch 获取仓库的默认分支
func (c *Client) GetDefaultBranch(ctx context.Context, repoURL string) (string, error) {
	repoPath, err := repoAPIPath(repoURL)
	if err != nil {
		return "", err
	}

	var repo struct {
		DefaultBranch string `json:"default_branch"`
		Message       string `json:"message"`
	}
	_, err = c.getJSON(ctx, fmt.Sprintf("%s/repos/%s", c.baseURL, repoPath), types.ErrRepoNotFound, &repo)
	if err != nil {
		return "", err
	}
	if repo.DefaultBranch == "" {
		logger.Warn("仓库信息中缺少默认分支", zap.String("repo", repoPath), zap.String("message", repo.Message))
		return "", types.ErrUnknown
	}
	return repo.DefaultBranch, nil
}

// GetTree 获取分支的完整递归文件树，branch 为 "default" 时先解析默认分支
func (c *Client) GetTree(ctx context.Context, repoURL, branch string) (*types.TreeResult, error) {
	repoPath, err := repoAPIPath(repoURL)
	if err != nil {
		return nil, err
	}
	if branch == "" || branch == types.DefaultBranch {
		branch, err = c.GetDefaultBranch(ctx, repoURL)
		if err != nil {
			return nil, err
		}
	}

	var treeResp struct {
		Tree      []types.RepoEntry `json:"tree"`
		Truncated bool              `json:"truncated"`
	}
	apiURL := fmt.Sprintf("%s/repos/%s/git/trees/%s?recursive=true", c.baseURL, repoPath, EscapePath(branch))
	if _, err := c.getJSON(ctx, apiURL, types.ErrBranchNotFound, &treeResp); err != nil {
		return nil, err
	}

	// 如果树被截断，提供警告
	if treeResp.Truncated {
		logger.Warn("仓库树被截断，可能不包含所有文件", zap.String("repo", repoPath), zap.String("branch", branch))
	}
	logger.Debug("获取仓库结构成功",
		zap.String("repo", repoPath),
		zap.String("branch", branch),
		zap.Int("entries", len(treeResp.Tree)))

	return &types.TreeResult{
		Entries:   treeResp.Tree,
		Branch:    branch,
		Truncated: treeResp.Truncated,
	}, nil
}

// GetBranches 获取最多一页的分支，响应带 Link 头时说明还有更多分支
func (c *Client) GetBranches(ctx context.Context, repoURL string) (*types.BranchList, error) {
	repoPath, err := repoAPIPath(repoURL)
	if err != nil {
		return nil, err
	}

	var branches []types.Branch
	apiURL := fmt.Sprintf("%s/repos/%s/branches?per_page=%d", c.baseURL, repoPath, c.perPage)
	resp, err := c.getJSON(ctx, apiURL, types.ErrUnknown, &branches)
	if err != nil {
		return nil, err
	}
	for i := range branches {
		branches[i].RepoURL = repoURL
	}
	if branches == nil {
		branches = []types.Branch{}
	}
	return &types.BranchList{
		Branches:  branches,
		Truncated: resp.Header.Get("Link") != "",
	}, nil
}

// GetFile 获取 blob 的 base64 内容
func (c *Client) GetFile(ctx context.Context, blobURL string) (string, error) {
	if c.cache != nil {
		content, ok, err := c.cache.Get(ctx, blobURL)
		if err != nil {
			logger.Warn("读取 blob 缓存失败", zap.String("url", blobURL), zap.Error(err))
		} else if ok {
			return content, nil
		}
	}

	var blob struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	if _, err := c.getJSON(ctx, blobURL, types.ErrFileNotFound, &blob); err != nil {
		return "", err
	}

	if c.cache != nil {
		if err := c.cache.Put(ctx, blobURL, blob.Content); err != nil {
			logger.Warn("写入 blob 缓存失败", zap.String("url", blobURL), zap.Error(err))
		}
	}
	return blob.Content, nil
}

// DownloadFile 通过 raw 地址下载文件原始内容
func (c *Client) DownloadFile(ctx context.Context, repoPath, branch, filePath string) ([]byte, error) {
	rawURL := fmt.Sprintf("%s/%s/%s/%s", c.rawBaseURL, repoPath, EscapePath(branch), EscapePath(filePath))
	resp, err := c.makeRequest(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, types.ErrFileNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("下载文件失败 %s: %w", resp.Status, types.ErrUnknown)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", types.ErrUnknown)
	}
	return body, nil
}

// getJSON 请求 API 并解析 JSON，404 映射为 notFound，其余失败映射为 ErrUnknown
func (c *Client) getJSON(ctx context.Context, apiURL string, notFound error, out interface{}) (*http.Response, error) {
	resp, err := c.makeRequest(ctx, apiURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, notFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logger.Warn("API 返回错误",
			zap.String("url", apiURL),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)))
		return nil, types.ErrUnknown
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		logger.Warn("解析响应失败", zap.String("url", apiURL), zap.Error(err))
		return nil, types.ErrUnknown
	}
	return resp, nil
}

// makeRequest 发送 HTTP 请求，剩余限额为 0 时返回 ErrRateLimitExceeded
func (c *Client) makeRequest(ctx context.Context, apiURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		logger.Warn("创建请求失败", zap.String("url", apiURL), zap.Error(err))
		return nil, types.ErrUnknown
	}

	if token := c.currentToken(); token != "" {
		req.Header.Set("Authorization", "token "+token)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "Git-Browser-Web/1.0")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn("请求 GitHub 失败", zap.String("url", apiURL), zap.Error(err))
		return nil, types.ErrUnknown
	}
	logger.Debug("请求 GitHub",
		zap.String("url", apiURL),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", logger.Since(start)))

	if remaining, err := strconv.Atoi(resp.Header.Get("X-RateLimit-Remaining")); err == nil && remaining == 0 {
		resp.Body.Close()
		logger.Warn("GitHub API 限额已用完", zap.String("url", apiURL))
		return nil, types.ErrRateLimitExceeded
	}
	return resp, nil
}

func (c *Client) currentToken() string {
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			return token
		}
	}
	return c.token
}
