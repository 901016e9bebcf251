package http

import (
	"git-browser-web/internal/interfaces/http/handlers"
	"git-browser-web/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
)

// NewRouter 注册所有路由
func NewRouter(explorer *handlers.ExplorerHandler, profile *handlers.ProfileHandler) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logger(), middleware.Recovery())

	router.GET("/healthz", explorer.HandleHealth)

	api := router.Group("/api")
	api.GET("/extensions", explorer.HandleExtensions)

	sessions := api.Group("/sessions")
	sessions.POST("", explorer.HandleCreateSession)
	sessions.GET("/:id", explorer.HandleGetSession)
	sessions.DELETE("/:id", explorer.HandleDeleteSession)
	sessions.GET("/:id/tree", explorer.HandleTree)
	sessions.PUT("/:id/branch", explorer.HandleSwitchBranch)
	sessions.POST("/:id/folders/toggle", explorer.HandleToggleFolder)
	sessions.POST("/:id/folders/reveal", explorer.HandleRevealFolder)
	sessions.POST("/:id/folders/collapse", explorer.HandleCollapseFolders)
	sessions.GET("/:id/search", explorer.HandleSearch)

	sessions.POST("/:id/tabs", explorer.HandleSelectFile)
	sessions.DELETE("/:id/tabs", explorer.HandleCloseAllTabs)
	sessions.DELETE("/:id/tabs/:index", explorer.HandleCloseTab)
	sessions.POST("/:id/tabs/:index/activate", explorer.HandleActivateTab)
	sessions.POST("/:id/tabs/:index/close-others", explorer.HandleCloseOtherTabs)
	sessions.POST("/:id/tabs/:index/toggle-render", explorer.HandleToggleRender)
	sessions.POST("/:id/tabs/:index/retry", explorer.HandleRetryTab)
	sessions.GET("/:id/tabs/:index/render", explorer.HandleRender)
	sessions.GET("/:id/tabs/:index/raw", explorer.HandleDownload)

	api.GET("/profile", profile.HandleGetProfile)
	api.PUT("/profile", profile.HandleSetProfile)
	api.DELETE("/profile", profile.HandleDeleteProfile)
	api.GET("/settings", profile.HandleGetSettings)
	api.PUT("/settings/theme", profile.HandleSetTheme)

	return router
}
