package navigation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"git-browser-web/internal/domain/codec"
	"git-browser-web/internal/domain/render"
	"git-browser-web/internal/infrastructure/github"
	"git-browser-web/pkg/logger"
	"git-browser-web/pkg/tree"
	"git-browser-web/pkg/types"

	"go.uber.org/zap"
)

// Status 会话状态
type Status string

// 会话状态
const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// 控制器错误
var (
	ErrClosed       = errors.New("controller closed")
	ErrNoRepository = errors.New("no repository open")
	ErrTabIndex     = errors.New("tab index out of range")
	ErrNotFolder    = errors.New("not a folder")
	ErrCannotToggle = errors.New("render mode cannot be toggled")
)

// RepoClient 控制器使用的远程仓库接口，*github.Client 实现了该接口
type RepoClient interface {
	GetTree(ctx context.Context, repoURL, branch string) (*types.TreeResult, error)
	GetBranches(ctx context.Context, repoURL string) (*types.BranchList, error)
	GetFile(ctx context.Context, blobURL string) (string, error)
}

// Snapshot 控制器状态的只读副本
type Snapshot struct {
	Status            Status         `json:"status"`
	RepoURL           string         `json:"repoUrl,omitempty"`
	Location          Location       `json:"location"`
	URL               string         `json:"url"`
	Branches          []types.Branch `json:"branches"`
	BranchesTruncated bool           `json:"branchesTruncated"`
	BranchesError     string         `json:"branchesError,omitempty"`
	SearchError       string         `json:"searchError,omitempty"`
	TreeTruncated     bool           `json:"treeTruncated"`
	NodeCount         int            `json:"nodeCount"`
	Tabs              []types.Tab    `json:"tabs"`
	ActiveIndex       int            `json:"activeIndex"`
}

// Controller 一个仓库浏览会话的状态机，所有修改都在 mu 保护下进行
//
// 网络请求和编解码在锁外执行，完成时通过 session 编号和路径重新定位标签页，
// 过期的结果直接丢弃。
type Controller struct {
	client      RepoClient
	codec       *codec.Channel
	maxFileSize int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu            sync.Mutex
	closed        bool
	request       uint64
	session       uint64
	status        Status
	repoURL       string
	tree          types.PathTree
	order         []string
	treeTruncated bool
	location      Location
	branches      []types.Branch
	truncated     bool
	branchesError string
	searchError   string
	tabs          []types.Tab
	opened        map[string]struct{}
	active        int
}

// NewController 创建控制器，控制器拥有自己的编解码通道，使用完必须 Close
func NewController(client RepoClient, maxFileSize int64) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		client:      client,
		codec:       codec.NewChannel(),
		maxFileSize: maxFileSize,
		ctx:         ctx,
		cancel:      cancel,
		status:      StatusIdle,
		opened:      make(map[string]struct{}),
		active:      -1,
	}
}

// OpenRepository 打开仓库，branch 为空时使用默认分支
//
// 成功后替换目录树并关闭所有标签页；失败时保留原来的目录树并记录错误类型。
func (c *Controller) OpenRepository(ctx context.Context, repoURL, branch string) error {
	if branch == "" {
		branch = types.DefaultBranch
	}
	return c.load(ctx, repoURL, branch)
}

// SwitchBranch 在当前仓库中切换分支，分支未变化时不做任何事
func (c *Controller) SwitchBranch(ctx context.Context, branch string) error {
	c.mu.Lock()
	repoURL := c.repoURL
	current := c.location.Branch
	c.mu.Unlock()

	if repoURL == "" {
		return fmt.Errorf("%w: %w", types.ErrInvalidURL, ErrNoRepository)
	}
	if branch == "" || branch == current {
		return nil
	}
	return c.load(ctx, repoURL, branch)
}

// Restore 按地址栏状态恢复会话：打开仓库和分支，再展开并选中文件
func (c *Controller) Restore(ctx context.Context, loc Location) error {
	if loc.RepoPath == "" {
		return fmt.Errorf("%w: empty repository path", types.ErrInvalidURL)
	}
	if err := c.OpenRepository(ctx, github.RepoURL(loc.RepoPath), loc.Branch); err != nil {
		return err
	}
	if loc.File == "" {
		return nil
	}

	c.mu.Lock()
	node, ok := c.tree[loc.File]
	isFolder := ok && node.IsFolder()
	c.mu.Unlock()
	if !ok {
		logger.Warn("地址中的文件不存在", zap.String("file", loc.File))
		return nil
	}
	if err := c.Reveal(loc.File); err != nil {
		return err
	}
	if isFolder {
		return nil
	}
	_, err := c.SelectFile(loc.File)
	return err
}

func (c *Controller) load(ctx context.Context, repoURL, branch string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.request++
	req := c.request
	c.status = StatusLoading
	c.searchError = ""
	c.mu.Unlock()

	logger.Info("加载目录树", zap.String("repo", repoURL), zap.String("branch", branch))
	result, err := c.client.GetTree(ctx, repoURL, branch)
	if err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed || req != c.request {
			return err
		}
		c.searchError = types.KindOf(err)
		if c.tree == nil {
			c.status = StatusFailed
		} else {
			c.status = StatusReady
		}
		logger.Warn("加载目录树失败",
			zap.String("repo", repoURL),
			zap.String("branch", branch),
			zap.String("kind", c.searchError),
			zap.Error(err))
		return err
	}

	repoPath, _ := github.ExtractRepoPath(repoURL)
	nodes := tree.Treeify(result.Entries)
	order := tree.Order(result.Entries)

	c.mu.Lock()
	if c.closed || req != c.request {
		c.mu.Unlock()
		logger.Debug("丢弃过期的目录树", zap.String("repo", repoURL), zap.String("branch", branch))
		return nil
	}
	c.session++
	c.repoURL = repoURL
	c.tree = nodes
	c.order = order
	c.treeTruncated = result.Truncated
	c.location = Location{RepoPath: repoPath, Branch: result.Branch}
	c.branches = nil
	c.truncated = false
	c.branchesError = ""
	c.closeAllLocked()
	c.status = StatusReady
	c.mu.Unlock()

	logger.Info("目录树已加载",
		zap.String("repo", repoPath),
		zap.String("branch", result.Branch),
		zap.Int("nodes", len(nodes)))

	// 分支列表失败不影响会话状态
	list, err := c.client.GetBranches(ctx, repoURL)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || req != c.request {
		return nil
	}
	if err != nil {
		c.branchesError = types.KindOf(err)
		logger.Warn("获取分支列表失败", zap.String("repo", repoPath), zap.Error(err))
		return nil
	}
	c.branches = list.Branches
	c.truncated = list.Truncated
	return nil
}

// SelectFile 选中文件
//
// 已打开的文件只激活对应标签页；否则同步创建一个加载中的标签页并在后台获取内容。
// 超过大小限制的文件直接标记为 TooLarge，不发起请求。
func (c *Controller) SelectFile(path string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return -1, ErrClosed
	}
	node, ok := c.tree[path]
	if !ok || node.IsFolder() {
		return -1, fmt.Errorf("%w: %s", types.ErrFileNotFound, path)
	}

	c.location.File = path
	if idx := c.indexLocked(path); idx >= 0 {
		c.active = idx
		// 出错的标签页重新选中时重新加载
		if tab := &c.tabs[idx]; tab.HasError {
			tab.HasError = false
			tab.ErrorKind = ""
			tab.IsLoading = true
			c.startLoadLocked(path, node.URL, tab.Extension)
		}
		return idx, nil
	}

	ext := render.Extension(node.Name)
	tab := types.Tab{
		Path:      path,
		Title:     node.Name,
		IsLoading: true,
		Extension: ext,
		Language:  render.LanguageFor(node.Name).ID,
	}
	if node.SizeOrZero() > c.maxFileSize {
		tab.IsLoading = false
		tab.IsTooLarge = true
		tab.ErrorKind = types.KindTooLarge
		logger.Info("文件过大，跳过加载",
			zap.String("path", path),
			zap.Int64("size", node.SizeOrZero()),
			zap.Int64("max_size", c.maxFileSize))
	}

	c.tabs = append(c.tabs, tab)
	c.opened[path] = struct{}{}
	c.active = len(c.tabs) - 1

	if tab.IsLoading {
		c.startLoadLocked(path, node.URL, ext)
	}
	return c.active, nil
}

func (c *Controller) startLoadLocked(path, blobURL, ext string) {
	session := c.session
	c.wg.Add(1)
	go c.loadFile(session, path, blobURL, ext)
}

func (c *Controller) loadFile(session uint64, path, blobURL, ext string) {
	defer c.wg.Done()

	content, err := c.client.GetFile(c.ctx, blobURL)
	if err != nil {
		logger.Warn("获取文件内容失败", zap.String("path", path), zap.Error(err))
		c.updateTab(session, path, func(tab *types.Tab) {
			tab.IsLoading = false
			tab.HasError = true
			tab.ErrorKind = types.KindOf(err)
		})
		return
	}

	canEditorRender := false
	if render.NeedsDecode(ext) {
		if text, ok := c.codec.Decode(c.ctx, content, false); ok {
			content = text
			canEditorRender = true
		} else {
			logger.Debug("内容不是 UTF-8 文本，切换为预览", zap.String("path", path))
		}
	}

	c.updateTab(session, path, func(tab *types.Tab) {
		tab.Content = content
		tab.CanEditorRender = canEditorRender
		tab.IsLoading = false
		tab.HasError = false
		tab.ErrorKind = ""
	})
}

// updateTab 在锁内按路径重新定位标签页，会话已变化或标签页已关闭时丢弃
func (c *Controller) updateTab(session uint64, path string, fn func(tab *types.Tab)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || session != c.session {
		logger.Debug("丢弃过期会话的结果", zap.String("path", path))
		return false
	}
	idx := c.indexLocked(path)
	if idx < 0 {
		logger.Debug("标签页已关闭，丢弃结果", zap.String("path", path))
		return false
	}
	fn(&c.tabs[idx])
	return true
}

// RetryTab 重新加载出错的标签页，其它状态下不做任何事
func (c *Controller) RetryTab(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if index < 0 || index >= len(c.tabs) {
		return ErrTabIndex
	}
	tab := &c.tabs[index]
	if !tab.HasError {
		return nil
	}
	node, ok := c.tree[tab.Path]
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrFileNotFound, tab.Path)
	}
	tab.HasError = false
	tab.ErrorKind = ""
	tab.IsLoading = true
	c.startLoadLocked(tab.Path, node.URL, tab.Extension)
	return nil
}

// ToggleRenderMode 在代码编辑器和预览之间切换
//
// 编辑器到预览只允许双模式扩展名，svg/gltf 需要重新编码为 base64。
// 预览到编辑器先严格解码，失败时按二进制字符串强制加载。
func (c *Controller) ToggleRenderMode(ctx context.Context, index int) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if index < 0 || index >= len(c.tabs) {
		c.mu.Unlock()
		return ErrTabIndex
	}
	tab := c.tabs[index]
	session := c.session
	c.mu.Unlock()

	if tab.IsLoading || tab.HasError || tab.IsTooLarge {
		return ErrCannotToggle
	}
	ext := tab.Extension

	var (
		content   string
		loadedRaw bool
	)
	if tab.CanEditorRender {
		if !render.IsDual(ext) {
			return ErrCannotToggle
		}
		content = tab.Content
		if !render.PreviewWantsText(ext) {
			encoded, ok := c.codec.Encode(ctx, tab.Content, tab.LoadedRaw)
			if !ok {
				return fmt.Errorf("%w: %s", types.ErrDecodeFailure, tab.Path)
			}
			content = encoded
		}
	} else {
		if render.IsBinary(ext) {
			return ErrCannotToggle
		}
		if tab.WasForceRendered && render.PreviewWantsText(ext) {
			content = tab.Content
		} else {
			text, ok := c.codec.Decode(ctx, tab.Content, false)
			if !ok {
				text, ok = c.codec.Decode(ctx, tab.Content, true)
				loadedRaw = ok
			}
			if !ok {
				return fmt.Errorf("%w: %s", types.ErrDecodeFailure, tab.Path)
			}
			content = text
		}
	}

	toEditor := !tab.CanEditorRender
	c.updateTab(session, tab.Path, func(t *types.Tab) {
		t.Content = content
		t.CanEditorRender = toEditor
		t.WasForceRendered = true
		t.LoadedRaw = loadedRaw
	})
	return nil
}

// ToggleFolder 切换目录的展开状态，不影响子目录
func (c *Controller) ToggleFolder(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	node, ok := c.tree[path]
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrFileNotFound, path)
	}
	if !node.IsFolder() {
		return fmt.Errorf("%w: %s", ErrNotFolder, path)
	}
	node.IsOpen = !node.IsOpen
	return nil
}

// Reveal 展开路径上的所有祖先目录，路径本身是目录时也会展开
func (c *Controller) Reveal(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	node, ok := c.tree[path]
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrFileNotFound, path)
	}
	if node.IsFolder() {
		node.IsOpen = true
	}
	for node.Parent != nil {
		parent, ok := c.tree[*node.Parent]
		if !ok {
			break
		}
		parent.IsOpen = true
		node = parent
	}
	return nil
}

// CollapseAll 收起所有目录
func (c *Controller) CollapseAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range c.tree {
		if n.IsFolder() {
			n.IsOpen = false
		}
	}
}

// CloseTab 关闭标签页
//
// 关闭的是当前标签页时，激活同一位置的标签页，该位置不存在时激活最后一个；
// 关闭的是左侧标签页时，当前索引减一。
func (c *Controller) CloseTab(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.tabs) {
		return ErrTabIndex
	}
	delete(c.opened, c.tabs[index].Path)
	c.tabs = append(c.tabs[:index], c.tabs[index+1:]...)

	switch {
	case len(c.tabs) == 0:
		c.active = -1
	case index == c.active:
		if c.active >= len(c.tabs) {
			c.active = len(c.tabs) - 1
		}
	case index < c.active:
		c.active--
	}
	c.syncFileLocked()
	return nil
}

// CloseAllTabs 关闭所有标签页，目录树保持不变
func (c *Controller) CloseAllTabs() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeAllLocked()
}

func (c *Controller) closeAllLocked() {
	c.tabs = nil
	c.opened = make(map[string]struct{})
	c.active = -1
	c.location.File = ""
}

// CloseOtherTabs 只保留指定的标签页
func (c *Controller) CloseOtherTabs(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.tabs) {
		return ErrTabIndex
	}
	keep := c.tabs[index]
	c.tabs = []types.Tab{keep}
	c.opened = map[string]struct{}{keep.Path: {}}
	c.active = 0
	c.syncFileLocked()
	return nil
}

// ActivateTab 激活标签页
func (c *Controller) ActivateTab(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.tabs) {
		return ErrTabIndex
	}
	c.active = index
	c.syncFileLocked()
	return nil
}

func (c *Controller) syncFileLocked() {
	if c.active < 0 || c.active >= len(c.tabs) {
		c.location.File = ""
		return
	}
	c.location.File = c.tabs[c.active].Path
}

func (c *Controller) indexLocked(path string) int {
	if _, ok := c.opened[path]; !ok {
		return -1
	}
	for i := range c.tabs {
		if c.tabs[i].Path == path {
			return i
		}
	}
	return -1
}

// Children 返回目录的可见子节点，path 为空时返回根节点
func (c *Controller) Children(path string) ([]types.TreeNode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var nodes []*types.TreeNode
	if path == "" {
		nodes = tree.Roots(c.tree, c.order)
	} else {
		node, ok := c.tree[path]
		if !ok {
			return nil, fmt.Errorf("%w: %s", types.ErrFileNotFound, path)
		}
		if !node.IsFolder() {
			return nil, fmt.Errorf("%w: %s", ErrNotFolder, path)
		}
		nodes = tree.Children(c.tree, node)
	}
	return copyNodes(nodes), nil
}

// Node 返回节点副本
func (c *Controller) Node(path string) (types.TreeNode, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.tree[path]
	if !ok {
		return types.TreeNode{}, false
	}
	return *n, true
}

// Search 按名称或路径搜索文件
func (c *Controller) Search(query string, limit int) []types.TreeNode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyNodes(tree.Search(c.tree, query, limit))
}

func copyNodes(nodes []*types.TreeNode) []types.TreeNode {
	out := make([]types.TreeNode, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, *n)
	}
	return out
}

// Tab 返回标签页副本
func (c *Controller) Tab(index int) (types.Tab, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.tabs) {
		return types.Tab{}, ErrTabIndex
	}
	return c.tabs[index], nil
}

// Location 返回当前地址状态
func (c *Controller) Location() Location {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.location
}

// Snapshot 返回当前状态的副本
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Status:            c.status,
		RepoURL:           c.repoURL,
		Location:          c.location,
		URL:               c.location.String(),
		Branches:          append([]types.Branch{}, c.branches...),
		BranchesTruncated: c.truncated,
		BranchesError:     c.branchesError,
		SearchError:       c.searchError,
		TreeTruncated:     c.treeTruncated,
		NodeCount:         len(c.tree),
		Tabs:              append([]types.Tab{}, c.tabs...),
		ActiveIndex:       c.active,
	}
	return s
}

// Codec 返回控制器持有的编解码通道，供预览渲染使用
func (c *Controller) Codec() *codec.Channel {
	return c.codec
}

// Wait 等待所有后台加载结束
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close 停止后台加载并关闭编解码通道，之后到达的结果会被丢弃
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	c.codec.Close()
}
