package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"git-browser-web/internal/application"
	"git-browser-web/internal/infrastructure/cache"
	"git-browser-web/internal/infrastructure/prefs"
	"git-browser-web/internal/interfaces/http/handlers"
	"git-browser-web/pkg/config"
	"git-browser-web/pkg/types"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type repoStub struct {
	treeErr error
}

func (r repoStub) GetTree(_ context.Context, _, branch string) (*types.TreeResult, error) {
	if r.treeErr != nil {
		return nil, r.treeErr
	}
	if branch != types.DefaultBranch && branch != "main" && branch != "dev" {
		return nil, types.ErrBranchNotFound
	}
	name := branch
	if name == types.DefaultBranch {
		name = "main"
	}
	return &types.TreeResult{
		Branch: name,
		Entries: []types.RepoEntry{
			{Path: "cmd", Type: types.EntryTree},
			{Path: "cmd/main.go", Type: types.EntryBlob, URL: "blob-main"},
			{Path: "logo.png", Type: types.EntryBlob, URL: "blob-logo"},
		},
	}, nil
}

func (repoStub) GetBranches(context.Context, string) (*types.BranchList, error) {
	return &types.BranchList{Branches: []types.Branch{{Name: "main"}, {Name: "dev"}}}, nil
}

func (repoStub) GetFile(_ context.Context, blobURL string) (string, error) {
	switch blobURL {
	case "blob-main":
		return base64.StdEncoding.EncodeToString([]byte("package main\n")), nil
	case "blob-logo":
		return base64.StdEncoding.EncodeToString([]byte{0x89, 'P', 'N', 'G'}), nil
	}
	return "", types.ErrFileNotFound
}

type downloadStub struct{}

func (downloadStub) DownloadFile(_ context.Context, repoPath, branch, filePath string) ([]byte, error) {
	return []byte(repoPath + "@" + branch + ":" + filePath), nil
}

type testServer struct {
	router  *gin.Engine
	service *application.ExplorerService
}

func newTestServer(t *testing.T, repo repoStub, opts ...application.Option) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := prefs.Open(filepath.Join(t.TempDir(), "prefs.json"))
	require.NoError(t, err)
	svc := application.NewExplorerService(config.Default(), repo, store, opts...)
	t.Cleanup(svc.Close)

	router := NewRouter(
		handlers.NewExplorerHandler(svc, downloadStub{}),
		handlers.NewProfileHandler(store),
	)
	return &testServer{router: router, service: svc}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]interface{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") && w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func (s *testServer) createSession(t *testing.T, body interface{}) string {
	t.Helper()
	w, out := s.do(t, http.MethodPost, "/api/sessions", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := out["id"].(string)
	sess, err := s.service.Get(id)
	require.NoError(t, err)
	sess.Controller.Wait()
	return id
}

func (s *testServer) wait(t *testing.T, id string) {
	t.Helper()
	sess, err := s.service.Get(id)
	require.NoError(t, err)
	sess.Controller.Wait()
}

func TestHealthzAndRequestID(t *testing.T) {
	s := newTestServer(t, repoStub{})
	w, out := s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", out["status"])
	assert.EqualValues(t, 0, out["sessions"])
	assert.NotContains(t, out, "cache")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestHealthzReportsCache(t *testing.T) {
	blobs, err := cache.Open(filepath.Join(t.TempDir(), "blobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = blobs.Close() })
	require.NoError(t, blobs.Put(context.Background(), "blob-1", "aGVsbG8="))

	s := newTestServer(t, repoStub{}, application.WithCache(blobs))
	s.createSession(t, gin.H{"url": "github.com/octo/repo"})

	w, out := s.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, out["sessions"])
	stats, ok := out["cache"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 1, stats["entries"])
	assert.EqualValues(t, len("aGVsbG8="), stats["bytes"])
}

func TestCreateSessionAndBrowse(t *testing.T) {
	s := newTestServer(t, repoStub{})
	id := s.createSession(t, gin.H{"url": "github.com/octo/repo", "file": "cmd/main.go"})

	w, out := s.do(t, http.MethodGet, "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ready", out["status"])
	assert.Equal(t, "/octo/repo?branch=main&file=cmd%2Fmain.go", out["url"])
	tabs := out["tabs"].([]interface{})
	require.Len(t, tabs, 1)
	assert.Equal(t, "package main\n", tabs[0].(map[string]interface{})["content"])

	w, out = s.do(t, http.MethodGet, "/api/sessions/"+id+"/tree", nil)
	require.Equal(t, http.StatusOK, w.Code)
	nodes := out["nodes"].([]interface{})
	require.Len(t, nodes, 2)
	assert.Equal(t, "cmd", nodes[0].(map[string]interface{})["path"])
	assert.Equal(t, true, nodes[0].(map[string]interface{})["isOpen"])

	w, out = s.do(t, http.MethodGet, "/api/sessions/"+id+"/tabs/0/render", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "editor", out["kind"])
	assert.Equal(t, "go", out["language"])

	w, out = s.do(t, http.MethodGet, "/api/sessions/"+id+"/search?q=MAIN", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, out["results"], 1)
}

func TestCreateSessionFromLocation(t *testing.T) {
	s := newTestServer(t, repoStub{})
	id := s.createSession(t, gin.H{"location": "/octo/repo?branch=dev"})
	_, out := s.do(t, http.MethodGet, "/api/sessions/"+id, nil)
	assert.Equal(t, "/octo/repo?branch=dev", out["url"])
}

func TestCreateSessionErrors(t *testing.T) {
	s := newTestServer(t, repoStub{})

	w, out := s.do(t, http.MethodPost, "/api/sessions", gin.H{"url": "https://gitlab.com/octo/repo"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, types.KindInvalidURL, out["kind"])

	w, out = s.do(t, http.MethodPost, "/api/sessions", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, handlers.KindBadRequest, out["kind"])

	w, out = s.do(t, http.MethodPost, "/api/sessions", gin.H{"url": "https://github.com/octo/repo", "branch": "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, types.KindBranchNotFound, out["kind"])
	assert.NotEmpty(t, out["id"])

	limited := newTestServer(t, repoStub{treeErr: types.ErrRateLimitExceeded})
	w, out = limited.do(t, http.MethodPost, "/api/sessions", gin.H{"url": "https://github.com/octo/repo"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, types.KindRateLimitExceeded, out["kind"])
}

func TestUnknownSession(t *testing.T) {
	s := newTestServer(t, repoStub{})
	w, out := s.do(t, http.MethodGet, "/api/sessions/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, handlers.KindSessionNotFound, out["kind"])

	w, _ = s.do(t, http.MethodDelete, "/api/sessions/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTabsAndFolders(t *testing.T) {
	s := newTestServer(t, repoStub{})
	id := s.createSession(t, gin.H{"url": "https://github.com/octo/repo"})
	base := "/api/sessions/" + id

	w, out := s.do(t, http.MethodPost, base+"/tabs", gin.H{"path": "logo.png"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), out["index"])
	s.wait(t, id)

	w, out = s.do(t, http.MethodPost, base+"/tabs/0/toggle-render", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, handlers.KindCannotToggle, out["kind"])

	w, out = s.do(t, http.MethodGet, base+"/tabs/0/render", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image", out["kind"])

	w, _ = s.do(t, http.MethodPost, base+"/tabs", gin.H{"path": "cmd/main.go"})
	require.Equal(t, http.StatusOK, w.Code)
	s.wait(t, id)

	w, out = s.do(t, http.MethodPost, base+"/tabs/0/activate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), out["activeIndex"])

	w, out = s.do(t, http.MethodDelete, base+"/tabs/0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, out["tabs"], 1)

	w, out = s.do(t, http.MethodDelete, base+"/tabs/5", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, handlers.KindInvalidTabIndex, out["kind"])

	w, _ = s.do(t, http.MethodDelete, base+"/tabs/x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, out = s.do(t, http.MethodPost, base+"/folders/toggle", gin.H{"path": "cmd"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, out["isOpen"])

	w, out = s.do(t, http.MethodPost, base+"/folders/toggle", gin.H{"path": "logo.png"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, handlers.KindNotFolder, out["kind"])

	w, _ = s.do(t, http.MethodPost, base+"/folders/collapse", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, out = s.do(t, http.MethodDelete, base+"/tabs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, out["tabs"])

	w, _ = s.do(t, http.MethodPost, base+"/tabs", gin.H{"path": "missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSwitchBranch(t *testing.T) {
	s := newTestServer(t, repoStub{})
	id := s.createSession(t, gin.H{"url": "https://github.com/octo/repo"})

	w, out := s.do(t, http.MethodPut, "/api/sessions/"+id+"/branch", gin.H{"branch": "dev"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "dev", out["location"].(map[string]interface{})["branch"])

	w, out = s.do(t, http.MethodPut, "/api/sessions/"+id+"/branch", gin.H{"branch": "gone"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, types.KindBranchNotFound, out["kind"])
}

func TestDownload(t *testing.T) {
	s := newTestServer(t, repoStub{})
	id := s.createSession(t, gin.H{"url": "https://github.com/octo/repo", "file": "cmd/main.go"})

	w, _ := s.do(t, http.MethodGet, "/api/sessions/"+id+"/tabs/0/raw", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "octo/repo@main:cmd/main.go", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="main.go"`)
}

func TestDeleteSession(t *testing.T) {
	s := newTestServer(t, repoStub{})
	id := s.createSession(t, gin.H{"url": "https://github.com/octo/repo"})

	w, _ := s.do(t, http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w, _ = s.do(t, http.MethodGet, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProfileAndSettings(t *testing.T) {
	s := newTestServer(t, repoStub{})

	_, out := s.do(t, http.MethodGet, "/api/profile", nil)
	assert.Equal(t, false, out["signedIn"])

	w, _ := s.do(t, http.MethodPut, "/api/profile", gin.H{"username": "octocat"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, out = s.do(t, http.MethodPut, "/api/profile", gin.H{"accessToken": "tok", "username": "octocat"})
	require.Equal(t, http.StatusOK, w.Code)
	_, out = s.do(t, http.MethodGet, "/api/profile", nil)
	assert.Equal(t, true, out["signedIn"])
	assert.Equal(t, "octocat", out["username"])
	assert.NotContains(t, out, "accessToken")

	w, _ = s.do(t, http.MethodDelete, "/api/profile", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	_, out = s.do(t, http.MethodGet, "/api/settings", nil)
	assert.Equal(t, prefs.ThemeAuto, out["userTheme"])
	assert.Equal(t, prefs.ThemeLight, out["effectiveTheme"])

	w, out = s.do(t, http.MethodPut, "/api/settings/theme", gin.H{"preferredTheme": prefs.ThemeDark})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, prefs.ThemeDark, out["effectiveTheme"])

	w, out = s.do(t, http.MethodPut, "/api/settings/theme", gin.H{"userTheme": "neon"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, handlers.KindInvalidTheme, out["kind"])
}

func TestExtensions(t *testing.T) {
	s := newTestServer(t, repoStub{})
	_, out := s.do(t, http.MethodGet, "/api/extensions", nil)
	assert.Equal(t, "dual", out[".md"])
	assert.Equal(t, "binary", out[".png"])
}
