package github

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsGithubURL(t *testing.T) {
	cases := map[string]bool{
		"https://github.com/user/repo": true,
		"github.com/user/repo":         true,
		"HTTP://GitHub.com/user":       true,
		"https://gitlab.com/user/repo": false,
		"https://github.com.evil.io/x": false,
		"":                             false,
		"   ":                          false,
	}
	for in, want := range cases {
		assert.Equal(t, want, IsGithubURL(in), in)
	}
}

func TestAddScheme(t *testing.T) {
	assert.Equal(t, "https://github.com/a/b", AddScheme("github.com/a/b"))
	assert.Equal(t, "http://github.com/a/b", AddScheme("http://github.com/a/b"))
	assert.Equal(t, "https://github.com/a/b", AddScheme("https://github.com/a/b"))
}

func TestExtractRepoPath(t *testing.T) {
	p, ok := ExtractRepoPath("https://github.com/user/repo-name/tree/main/src")
	assert.True(t, ok)
	assert.Equal(t, "user/repo-name", p)

	p, ok = ExtractRepoPath("github.com//user//repo.git/")
	assert.True(t, ok)
	assert.Equal(t, "user/repo", p)

	_, ok = ExtractRepoPath("https://github.com/user")
	assert.False(t, ok)
}

func TestBuildFileURL(t *testing.T) {
	assert.Equal(t, "https://github.com/u/r/blob/main/src/a.go", BuildFileURL("u/r", "main", "src/a.go", false))
	assert.Equal(t, "https://raw.githubusercontent.com/u/r/main/src/a.go", BuildFileURL("u/r", "main", "src/a.go", true))
	assert.Equal(t, "https://raw.githubusercontent.com/u/r/feat/x%20y/docs/C%23/q%3F.md", BuildFileURL("u/r", "feat/x y", "docs/C#/q?.md", true))
	assert.Equal(t, "https://github.com/u/r/blob/main/docs/C%23/x.md", BuildFileURL("u/r", "main", "docs/C#/x.md", false))
	assert.Equal(t, "https://github.com/u/r", RepoURL("/u/r/"))
}
