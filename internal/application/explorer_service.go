package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"git-browser-web/internal/domain/navigation"
	"git-browser-web/internal/domain/render"
	"git-browser-web/internal/infrastructure/prefs"
	"git-browser-web/pkg/config"
	"git-browser-web/pkg/logger"
	"git-browser-web/pkg/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrSessionNotFound 会话不存在或已过期
var ErrSessionNotFound = errors.New("session not found")

// 缓存中超过这个时间没有被读取的 blob 会被清理
const cachePruneAge = 7 * 24 * time.Hour

// BlobCache 可以清理和统计的 blob 缓存，*cache.BlobCache 实现了该接口
type BlobCache interface {
	Prune(ctx context.Context, maxAge time.Duration) (int64, error)
	Stats(ctx context.Context) (count int64, size int64, err error)
}

// Health 服务状态
type Health struct {
	Status   string       `json:"status"`
	Sessions int          `json:"sessions"`
	Cache    *CacheHealth `json:"cache,omitempty"`
}

// CacheHealth blob 缓存的统计
type CacheHealth struct {
	Entries int64  `json:"entries"`
	Bytes   int64  `json:"bytes"`
	Error   string `json:"error,omitempty"`
}

// Session 一个浏览会话
type Session struct {
	ID         string
	Controller *navigation.Controller
	CreatedAt  time.Time
	LastActive time.Time
}

// ExplorerService 管理浏览会话，每个会话持有一个导航控制器
type ExplorerService struct {
	cfg    *config.Config
	client navigation.RepoClient
	prefs  *prefs.Store
	cache  BlobCache

	mu       sync.RWMutex
	sessions map[string]*Session

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// Option 配置 ExplorerService
type Option func(*ExplorerService)

// WithCache 清理过期会话时同时清理缓存，健康检查中包含缓存统计
func WithCache(c BlobCache) Option {
	return func(s *ExplorerService) { s.cache = c }
}

// NewExplorerService 创建服务实例并启动过期会话清理任务
func NewExplorerService(cfg *config.Config, client navigation.RepoClient, store *prefs.Store, opts ...Option) *ExplorerService {
	s := &ExplorerService{
		cfg:      cfg,
		client:   client,
		prefs:    store,
		sessions: make(map[string]*Session),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.cleanupExpiredSessions()
	return s
}

// cleanupExpiredSessions 定期清理过期会话
func (s *ExplorerService) cleanupExpiredSessions() {
	defer close(s.done)
	ticker := time.NewTicker(s.cfg.GetCleanupInterval())
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.CleanupExpired()
			if s.cache != nil {
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				n, err := s.cache.Prune(ctx, cachePruneAge)
				cancel()
				if err != nil {
					logger.Warn("清理 blob 缓存失败", zap.Error(err))
				} else if n > 0 {
					logger.Debug("已清理 blob 缓存", zap.Int64("removed", n))
				}
			}
		}
	}
}

// CleanupExpired 关闭并删除超过 TTL 未活跃的会话，返回删除的数量
func (s *ExplorerService) CleanupExpired() int {
	ttl := s.cfg.GetSessionTTL()
	now := s.now()

	var expired []*Session
	s.mu.Lock()
	for id, sess := range s.sessions {
		if now.Sub(sess.LastActive) > ttl {
			delete(s.sessions, id)
			expired = append(expired, sess)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.Controller.Close()
		logger.Debug("清理过期会话", zap.String("session_id", sess.ID))
	}
	return len(expired)
}

// CreateSession 创建会话并按 loc 恢复浏览状态
//
// 恢复失败时会话仍然保留，错误记录在会话快照中，同时返回给调用方。
func (s *ExplorerService) CreateSession(ctx context.Context, loc navigation.Location) (*Session, error) {
	now := s.now()
	sess := &Session{
		ID:         uuid.New().String(),
		Controller: navigation.NewController(s.client, s.cfg.GetMaxFileSize()),
		CreatedAt:  now,
		LastActive: now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	logger.Info("创建会话",
		zap.String("session_id", sess.ID),
		zap.String("repo", loc.RepoPath),
		zap.String("branch", loc.Branch),
		zap.String("file", loc.File))

	if err := sess.Controller.Restore(ctx, loc); err != nil {
		return sess, err
	}
	return sess, nil
}

// Get 返回会话并刷新活跃时间
func (s *ExplorerService) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.LastActive = s.now()
	return sess, nil
}

// Delete 关闭并删除会话
func (s *ExplorerService) Delete(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	sess.Controller.Close()
	logger.Info("删除会话", zap.String("session_id", id))
	return nil
}

// Count 返回当前会话数
func (s *ExplorerService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Search 在会话的目录树中搜索文件
func (s *ExplorerService) Search(id, query string) ([]types.TreeNode, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return sess.Controller.Search(query, s.cfg.GetMaxResults()), nil
}

// Render 按当前主题渲染标签页
func (s *ExplorerService) Render(ctx context.Context, id string, index int) (*render.Output, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	ctrl := sess.Controller
	tab, err := ctrl.Tab(index)
	if err != nil {
		return nil, err
	}
	if tab.IsLoading {
		return &render.Output{Kind: render.KindEmpty, Extension: tab.Extension, Message: "Loading..."}, nil
	}
	if tab.IsTooLarge {
		return nil, types.ErrTooLarge
	}
	if tab.HasError {
		return nil, types.ErrorOf(tab.ErrorKind)
	}
	loc := ctrl.Location()
	return render.Preview(ctx, ctrl.Codec(), render.Input{
		Tab:      tab,
		RepoPath: loc.RepoPath,
		Branch:   loc.Branch,
		Theme:    s.Theme(),
	})
}

// Health 返回会话数和缓存统计
func (s *ExplorerService) Health(ctx context.Context) Health {
	h := Health{Status: "ok", Sessions: s.Count()}
	if s.cache == nil {
		return h
	}
	h.Cache = &CacheHealth{}
	count, size, err := s.cache.Stats(ctx)
	if err != nil {
		logger.Warn("读取缓存统计失败", zap.Error(err))
		h.Cache.Error = err.Error()
		return h
	}
	h.Cache.Entries = count
	h.Cache.Bytes = size
	return h
}

// Theme 返回实际生效的主题
func (s *ExplorerService) Theme() string {
	if s.prefs == nil {
		return prefs.ThemeLight
	}
	return prefs.EffectiveTheme(s.prefs.Theme())
}

// Prefs 返回偏好存储
func (s *ExplorerService) Prefs() *prefs.Store {
	return s.prefs
}

// Close 停止清理任务并关闭所有会话
func (s *ExplorerService) Close() {
	s.stopOnce.Do(func() {
		close(s.stop)
		<-s.done

		s.mu.Lock()
		sessions := s.sessions
		s.sessions = make(map[string]*Session)
		s.mu.Unlock()

		for _, sess := range sessions {
			sess.Controller.Close()
		}
		logger.Info("已关闭所有会话", zap.Int("count", len(sessions)))
	})
}
