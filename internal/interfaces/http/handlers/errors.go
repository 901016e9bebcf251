package handlers

import (
	"errors"
	"net/http"

	"git-browser-web/internal/application"
	"git-browser-web/internal/domain/navigation"
	"git-browser-web/internal/domain/render"
	"git-browser-web/internal/infrastructure/prefs"
	"git-browser-web/pkg/logger"
	"git-browser-web/pkg/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 服务自身的错误类型
const (
	KindSessionNotFound = "SessionNotFound"
	KindSessionClosed   = "SessionClosed"
	KindInvalidTabIndex = "InvalidTabIndex"
	KindNotFolder       = "NotFolder"
	KindCannotToggle    = "CannotToggle"
	KindInvalidTheme    = "InvalidTheme"
	KindBadRequest      = "BadRequest"
)

var localErrors = []struct {
	err    error
	status int
	kind   string
}{
	{application.ErrSessionNotFound, http.StatusNotFound, KindSessionNotFound},
	{navigation.ErrClosed, http.StatusGone, KindSessionClosed},
	{navigation.ErrTabIndex, http.StatusNotFound, KindInvalidTabIndex},
	{navigation.ErrNotFolder, http.StatusBadRequest, KindNotFolder},
	{navigation.ErrCannotToggle, http.StatusConflict, KindCannotToggle},
	{prefs.ErrInvalidTheme, http.StatusBadRequest, KindInvalidTheme},
	{render.ErrPreview, http.StatusUnprocessableEntity, types.KindDecodeFailure},
}

var kindStatus = map[string]int{
	types.KindInvalidURL:        http.StatusBadRequest,
	types.KindRepoNotFound:      http.StatusNotFound,
	types.KindBranchNotFound:    http.StatusNotFound,
	types.KindFileNotFound:      http.StatusNotFound,
	types.KindRateLimitExceeded: http.StatusTooManyRequests,
	types.KindTooLarge:          http.StatusRequestEntityTooLarge,
	types.KindDecodeFailure:     http.StatusUnprocessableEntity,
	types.KindUnknown:           http.StatusBadGateway,
}

// errorResponse 把错误映射为状态码和 {"error","kind"}
func errorResponse(err error) (int, gin.H) {
	for _, l := range localErrors {
		if errors.Is(err, l.err) {
			return l.status, gin.H{"error": err.Error(), "kind": l.kind}
		}
	}
	kind := types.KindOf(err)
	return kindStatus[kind], gin.H{"error": types.ErrorOf(kind).Error(), "kind": kind}
}

func respondError(c *gin.Context, err error) {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		logger.Error("请求处理失败",
			zap.String("request_id", c.GetString("RequestID")),
			zap.String("kind", body["kind"].(string)),
			zap.Error(err))
	} else {
		logger.Debug("请求处理失败",
			zap.String("request_id", c.GetString("RequestID")),
			zap.String("kind", body["kind"].(string)),
			zap.Error(err))
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "kind": KindBadRequest})
}
