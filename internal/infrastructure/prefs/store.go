package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"git-browser-web/pkg/logger"
	"git-browser-web/pkg/types"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// 主题
const (
	ThemeAuto  = "theme-auto"
	ThemeLight = "theme-light"
	ThemeDark  = "theme-dark"
)

// ErrInvalidTheme 主题取值不合法
var ErrInvalidTheme = errors.New("invalid theme")

// IsValidTheme 主题是否是已知取值
func IsValidTheme(theme string) bool {
	return theme == ThemeAuto || theme == ThemeLight || theme == ThemeDark
}

// EffectiveTheme 返回实际使用的主题，auto 时跟随系统偏好
func EffectiveTheme(t types.Theme) string {
	if t.UserTheme == ThemeAuto || t.UserTheme == "" {
		if t.PreferredTheme == "" {
			return ThemeLight
		}
		return t.PreferredTheme
	}
	return t.UserTheme
}

type state struct {
	Profile *types.Profile `json:"profile,omitempty"`
	Theme   types.Theme    `json:"theme"`
}

func defaultState() state {
	return state{Theme: types.Theme{UserTheme: ThemeAuto, PreferredTheme: ThemeLight}}
}

// Store 持久化登录信息和主题设置，文件被外部修改时自动重新加载
type Store struct {
	path string

	mu    sync.RWMutex
	state state

	watchMu sync.Mutex
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
	reloads chan struct{}
}

// Open 读取偏好文件，文件不存在时使用默认值
func Open(path string) (*Store, error) {
	s := &Store{path: path, state: defaultState(), reloads: make(chan struct{}, 1)}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload 从磁盘重新读取
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("读取偏好文件失败: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	st := defaultState()
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("解析偏好文件失败: %w", err)
	}
	if !IsValidTheme(st.Theme.UserTheme) {
		st.Theme.UserTheme = ThemeAuto
	}
	if st.Theme.PreferredTheme != ThemeDark {
		st.Theme.PreferredTheme = ThemeLight
	}

	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	return nil
}

// Profile 返回已登录的用户
func (s *Store) Profile() (types.Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.Profile == nil {
		return types.Profile{}, false
	}
	return *s.state.Profile, true
}

// Token 实现 github.TokenSource
func (s *Store) Token() string {
	p, ok := s.Profile()
	if !ok {
		return ""
	}
	return p.AccessToken
}

// SetProfile 保存登录信息
func (s *Store) SetProfile(p types.Profile) error {
	s.mu.Lock()
	s.state.Profile = &p
	s.mu.Unlock()
	return s.save()
}

// ClearProfile 退出登录
func (s *Store) ClearProfile() error {
	s.mu.Lock()
	s.state.Profile = nil
	s.mu.Unlock()
	return s.save()
}

// Theme 返回主题设置
func (s *Store) Theme() types.Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Theme
}

// SetTheme 更新主题，空字符串表示不修改
func (s *Store) SetTheme(userTheme, preferredTheme string) (types.Theme, error) {
	if userTheme != "" && !IsValidTheme(userTheme) {
		return types.Theme{}, fmt.Errorf("%w: %s", ErrInvalidTheme, userTheme)
	}
	if preferredTheme != "" && preferredTheme != ThemeLight && preferredTheme != ThemeDark {
		return types.Theme{}, fmt.Errorf("%w: %s", ErrInvalidTheme, preferredTheme)
	}

	s.mu.Lock()
	if userTheme != "" {
		s.state.Theme.UserTheme = userTheme
	}
	if preferredTheme != "" {
		s.state.Theme.PreferredTheme = preferredTheme
	}
	theme := s.state.Theme
	s.mu.Unlock()

	return theme, s.save()
}

func (s *Store) save() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.state, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("创建偏好目录失败: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("写入偏好文件失败: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Watch 监听偏好文件所在目录，文件变化时重新加载
func (s *Store) Watch() error {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if s.watcher != nil {
		return nil
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建偏好目录失败: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// 监听目录而不是文件，原子替换后文件监听会失效
	if err := watcher.Add(dir); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			logger.Warn("关闭文件监听失败", zap.Error(closeErr))
		}
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.watcher = watcher
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.watch(ctx, watcher, s.done)
	return nil
}

func (s *Store) watch(ctx context.Context, watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	target := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			if err := s.Reload(); err != nil {
				logger.Warn("重新加载偏好文件失败", zap.String("path", s.path), zap.Error(err))
				continue
			}
			logger.Debug("偏好文件已重新加载", zap.String("path", s.path))
			select {
			case s.reloads <- struct{}{}:
			default:
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("文件监听错误", zap.Error(err))
		}
	}
}

// Reloaded 每次从磁盘重新加载后收到一个信号
func (s *Store) Reloaded() <-chan struct{} {
	return s.reloads
}

// Close 停止文件监听
func (s *Store) Close() error {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if s.watcher == nil {
		return nil
	}
	s.cancel()
	err := s.watcher.Close()
	<-s.done
	s.watcher = nil
	return err
}
