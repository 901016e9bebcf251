package handlers

import (
	"net/http"

	"git-browser-web/internal/infrastructure/prefs"
	"git-browser-web/pkg/logger"
	"git-browser-web/pkg/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ProfileHandler 登录信息和主题设置的 HTTP 处理器
type ProfileHandler struct {
	store *prefs.Store
}

// NewProfileHandler 创建处理器实例
func NewProfileHandler(store *prefs.Store) *ProfileHandler {
	return &ProfileHandler{store: store}
}

type profileRequest struct {
	AccessToken string `json:"accessToken" binding:"required"`
	Username    string `json:"username"`
}

type themeRequest struct {
	UserTheme      string `json:"userTheme"`
	PreferredTheme string `json:"preferredTheme"`
}

// HandleGetProfile 返回当前登录用户，不返回 token
func (h *ProfileHandler) HandleGetProfile(c *gin.Context) {
	p, ok := h.store.Profile()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"signedIn": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"signedIn": true, "username": p.Username})
}

// HandleSetProfile 保存登录信息
func (h *ProfileHandler) HandleSetProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请提供 access token")
		return
	}
	if err := h.store.SetProfile(types.Profile{AccessToken: req.AccessToken, Username: req.Username}); err != nil {
		logger.Error("保存登录信息失败",
			zap.String("request_id", c.GetString("RequestID")),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存登录信息失败", "kind": types.KindUnknown})
		return
	}
	logger.Info("用户已登录", zap.String("username", req.Username))
	c.JSON(http.StatusOK, gin.H{"signedIn": true, "username": req.Username})
}

// HandleDeleteProfile 退出登录
func (h *ProfileHandler) HandleDeleteProfile(c *gin.Context) {
	if err := h.store.ClearProfile(); err != nil {
		logger.Error("清除登录信息失败",
			zap.String("request_id", c.GetString("RequestID")),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "清除登录信息失败", "kind": types.KindUnknown})
		return
	}
	c.Status(http.StatusNoContent)
}

func settingsBody(t types.Theme) gin.H {
	return gin.H{
		"userTheme":      t.UserTheme,
		"preferredTheme": t.PreferredTheme,
		"effectiveTheme": prefs.EffectiveTheme(t),
	}
}

// HandleGetSettings 返回主题设置
func (h *ProfileHandler) HandleGetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, settingsBody(h.store.Theme()))
}

// HandleSetTheme 更新主题，未提供的字段保持不变
func (h *ProfileHandler) HandleSetTheme(c *gin.Context) {
	var req themeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "无效的请求参数")
		return
	}
	theme, err := h.store.SetTheme(req.UserTheme, req.PreferredTheme)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settingsBody(theme))
}
