package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"git-browser-web/internal/application"
	"git-browser-web/internal/domain/navigation"
	"git-browser-web/internal/domain/render"
	"git-browser-web/internal/infrastructure/github"
	"git-browser-web/pkg/logger"
	"git-browser-web/pkg/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Downloader 下载文件原始内容，*github.Client 实现了该接口
type Downloader interface {
	DownloadFile(ctx context.Context, repoPath, branch, filePath string) ([]byte, error)
}

// ExplorerHandler 浏览会话的 HTTP 处理器
type ExplorerHandler struct {
	service    *application.ExplorerService
	downloader Downloader
}

// NewExplorerHandler 创建 HTTP 处理器实例
func NewExplorerHandler(service *application.ExplorerService, downloader Downloader) *ExplorerHandler {
	return &ExplorerHandler{
		service:    service,
		downloader: downloader,
	}
}

type createSessionRequest struct {
	URL      string `json:"url"`
	Branch   string `json:"branch"`
	File     string `json:"file"`
	Location string `json:"location"`
}

type sessionResponse struct {
	ID string `json:"id"`
	navigation.Snapshot
}

type pathRequest struct {
	Path string `json:"path" binding:"required"`
}

type branchRequest struct {
	Branch string `json:"branch" binding:"required"`
}

// parseLocation 从请求中得到要恢复的位置，url 和 location 二选一
func (r createSessionRequest) parseLocation() (navigation.Location, error) {
	if r.Location != "" {
		u, err := url.Parse(r.Location)
		if err != nil {
			return navigation.Location{}, fmt.Errorf("%w: %v", types.ErrInvalidURL, err)
		}
		return navigation.ParseLocation(u.Path, u.Query())
	}

	repoPath, ok := github.ExtractRepoPath(r.URL)
	if !ok || !github.IsGithubURL(r.URL) {
		return navigation.Location{}, fmt.Errorf("%w: %q", types.ErrInvalidURL, r.URL)
	}
	return navigation.Location{RepoPath: repoPath, Branch: r.Branch, File: r.File}, nil
}

// HandleCreateSession 创建会话并打开仓库
func (h *ExplorerHandler) HandleCreateSession(c *gin.Context) {
	requestID := c.GetString("RequestID")

	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "无效的请求参数")
		return
	}
	if req.URL == "" && req.Location == "" {
		badRequest(c, "请提供 GitHub 仓库 URL")
		return
	}

	loc, err := req.parseLocation()
	if err != nil {
		respondError(c, err)
		return
	}

	logger.Info("处理创建会话请求",
		zap.String("request_id", requestID),
		zap.String("repo", loc.RepoPath),
		zap.String("branch", loc.Branch))

	sess, err := h.service.CreateSession(c.Request.Context(), loc)
	if err != nil {
		status, body := errorResponse(err)
		body["id"] = sess.ID
		body["snapshot"] = sess.Controller.Snapshot()
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusCreated, sessionResponse{ID: sess.ID, Snapshot: sess.Controller.Snapshot()})
}

func (h *ExplorerHandler) session(c *gin.Context) (*application.Session, bool) {
	sess, err := h.service.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return sess, true
}

func tabIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, "无效的标签页索引")
		return 0, false
	}
	return index, true
}

func (h *ExplorerHandler) snapshot(c *gin.Context, sess *application.Session) {
	c.JSON(http.StatusOK, sessionResponse{ID: sess.ID, Snapshot: sess.Controller.Snapshot()})
}

// HandleGetSession 返回会话快照
func (h *ExplorerHandler) HandleGetSession(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	h.snapshot(c, sess)
}

// HandleDeleteSession 关闭会话
func (h *ExplorerHandler) HandleDeleteSession(c *gin.Context) {
	if err := h.service.Delete(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleTree 返回目录的可见子节点
func (h *ExplorerHandler) HandleTree(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	path := c.Query("path")
	nodes, err := sess.Controller.Children(path)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path, "nodes": nodes})
}

// HandleSwitchBranch 切换分支
func (h *ExplorerHandler) HandleSwitchBranch(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req branchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请提供分支名称")
		return
	}
	if err := sess.Controller.SwitchBranch(c.Request.Context(), req.Branch); err != nil {
		respondError(c, err)
		return
	}
	h.snapshot(c, sess)
}

func (h *ExplorerHandler) folderAction(c *gin.Context, action func(*navigation.Controller, string) error) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req pathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请提供目录路径")
		return
	}
	if err := action(sess.Controller, req.Path); err != nil {
		respondError(c, err)
		return
	}
	node, _ := sess.Controller.Node(req.Path)
	c.JSON(http.StatusOK, node)
}

// HandleToggleFolder 展开或收起目录
func (h *ExplorerHandler) HandleToggleFolder(c *gin.Context) {
	h.folderAction(c, (*navigation.Controller).ToggleFolder)
}

// HandleRevealFolder 展开路径上的所有目录
func (h *ExplorerHandler) HandleRevealFolder(c *gin.Context) {
	h.folderAction(c, (*navigation.Controller).Reveal)
}

// HandleCollapseFolders 收起所有目录
func (h *ExplorerHandler) HandleCollapseFolders(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	sess.Controller.CollapseAll()
	c.Status(http.StatusNoContent)
}

// HandleSearch 搜索文件
func (h *ExplorerHandler) HandleSearch(c *gin.Context) {
	query := c.Query("q")
	results, err := h.service.Search(c.Param("id"), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"query": query, "results": results})
}

// HandleSelectFile 选中文件，已打开时只激活标签页
func (h *ExplorerHandler) HandleSelectFile(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req pathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请提供文件路径")
		return
	}
	index, err := sess.Controller.SelectFile(req.Path)
	if err != nil {
		respondError(c, err)
		return
	}
	tab, err := sess.Controller.Tab(index)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"index": index, "tab": tab})
}

func (h *ExplorerHandler) tabAction(c *gin.Context, action func(*navigation.Controller, int) error) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	index, ok := tabIndex(c)
	if !ok {
		return
	}
	if err := action(sess.Controller, index); err != nil {
		respondError(c, err)
		return
	}
	h.snapshot(c, sess)
}

// HandleActivateTab 激活标签页
func (h *ExplorerHandler) HandleActivateTab(c *gin.Context) {
	h.tabAction(c, (*navigation.Controller).ActivateTab)
}

// HandleCloseOtherTabs 关闭其它标签页
func (h *ExplorerHandler) HandleCloseOtherTabs(c *gin.Context) {
	h.tabAction(c, (*navigation.Controller).CloseOtherTabs)
}

// HandleCloseTab 关闭标签页
func (h *ExplorerHandler) HandleCloseTab(c *gin.Context) {
	h.tabAction(c, (*navigation.Controller).CloseTab)
}

// HandleRetryTab 重新加载出错的标签页
func (h *ExplorerHandler) HandleRetryTab(c *gin.Context) {
	h.tabAction(c, (*navigation.Controller).RetryTab)
}

// HandleToggleRender 在编辑器和预览之间切换
func (h *ExplorerHandler) HandleToggleRender(c *gin.Context) {
	ctx := c.Request.Context()
	h.tabAction(c, func(ctrl *navigation.Controller, index int) error {
		return ctrl.ToggleRenderMode(ctx, index)
	})
}

// HandleCloseAllTabs 关闭所有标签页
func (h *ExplorerHandler) HandleCloseAllTabs(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	sess.Controller.CloseAllTabs()
	h.snapshot(c, sess)
}

// HandleRender 渲染标签页内容
func (h *ExplorerHandler) HandleRender(c *gin.Context) {
	index, ok := tabIndex(c)
	if !ok {
		return
	}
	out, err := h.service.Render(c.Request.Context(), c.Param("id"), index)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// HandleDownload 返回标签页对应文件的原始内容
func (h *ExplorerHandler) HandleDownload(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	index, ok := tabIndex(c)
	if !ok {
		return
	}
	tab, err := sess.Controller.Tab(index)
	if err != nil {
		respondError(c, err)
		return
	}
	loc := sess.Controller.Location()
	data, err := h.downloader.DownloadFile(c.Request.Context(), loc.RepoPath, loc.Branch, tab.Path)
	if err != nil {
		respondError(c, err)
		return
	}

	logger.Debug("下载文件",
		zap.String("request_id", c.GetString("RequestID")),
		zap.String("path", tab.Path),
		zap.Int("size", len(data)))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", tab.Title))
	c.Data(http.StatusOK, render.Select(tab.Extension).MIME, data)
}

// HandleHealth 返回服务状态
func (h *ExplorerHandler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Health(c.Request.Context()))
}

// HandleExtensions 返回扩展名和解码策略
func (h *ExplorerHandler) HandleExtensions(c *gin.Context) {
	c.JSON(http.StatusOK, render.Extensions())
}
