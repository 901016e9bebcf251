package types

import (
	"bytes"
	"path"
	"sort"
)

// Entry kinds reported by the remote tree API.
const (
	EntryBlob   = "blob"
	EntryTree   = "tree"
	EntryCommit = "commit"
)

// Node kinds used inside a PathTree.
const (
	NodeFile   = "file"
	NodeFolder = "folder"
)

// DefaultBranch is the sentinel branch name that asks for the repository's default branch.
const DefaultBranch = "default"

// RepoEntry is one record of the remote API's flat tree listing.
type RepoEntry struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
	Type string `json:"type"`
	SHA  string `json:"sha,omitempty"`
	URL  string `json:"url"`
	Size *int64 `json:"size,omitempty"`
}

// TreeNode is the in-memory representation of an entry inside a PathTree.
type TreeNode struct {
	Path     string   `json:"path"`
	Type     string   `json:"type"`
	Name     string   `json:"name,omitempty"`
	URL      string   `json:"url"`
	Size     *int64   `json:"size,omitempty"`
	Parent   *string  `json:"parent"`
	Children []string `json:"children,omitempty"`
	IsRoot   bool     `json:"isRoot"`
	IsOpen   bool     `json:"isOpen,omitempty"`
}

// IsFolder reports whether the node is a folder
func (n *TreeNode) IsFolder() bool {
	return n.Type == NodeFolder
}

// SizeOrZero returns the node size, or 0 when the API did not report one
func (n *TreeNode) SizeOrZero() int64 {
	if n.Size == nil {
		return 0
	}
	return *n.Size
}

// PathTree maps a node path to its node.
type PathTree map[string]*TreeNode

// Clone returns a deep copy of the tree so readers can inspect it without holding the owner's lock.
func (t PathTree) Clone() PathTree {
	out := make(PathTree, len(t))
	for p, n := range t {
		c := *n
		if n.Children != nil {
			c.Children = append([]string{}, n.Children...)
		}
		if n.Parent != nil {
			parent := *n.Parent
			c.Parent = &parent
		}
		out[p] = &c
	}
	return out
}

// Print writes an ASCII rendering of the tree, folders first and then by name
func (t PathTree) Print(buffer *bytes.Buffer) {
	var roots []*TreeNode
	for _, n := range t {
		if n.IsRoot {
			roots = append(roots, n)
		}
	}
	sortForPrint(roots)
	for i, n := range roots {
		t.printNode(buffer, n, "", i == len(roots)-1)
	}
}

func (t PathTree) printNode(buffer *bytes.Buffer, n *TreeNode, prefix string, isLast bool) {
	buffer.WriteString(prefix)
	if isLast {
		buffer.WriteString("└── ")
		prefix += "    "
	} else {
		buffer.WriteString("├── ")
		prefix += "│   "
	}
	name := n.Name
	if name == "" {
		name = path.Base(n.Path)
	}
	buffer.WriteString(name + "\n")

	var children []*TreeNode
	for _, p := range n.Children {
		if child, ok := t[p]; ok {
			children = append(children, child)
		}
	}
	sortForPrint(children)
	for i, child := range children {
		t.printNode(buffer, child, prefix, i == len(children)-1)
	}
}

func sortForPrint(nodes []*TreeNode) {
	sort.Slice(nodes, func(i, j int) bool {
		// Folders first, then by path
		if nodes[i].IsFolder() != nodes[j].IsFolder() {
			return nodes[i].IsFolder()
		}
		return nodes[i].Path < nodes[j].Path
	})
}

// TreeResult is a fetched tree listing plus the branch it was resolved against.
type TreeResult struct {
	Entries   []RepoEntry `json:"tree"`
	Branch    string      `json:"branch"`
	Truncated bool        `json:"truncated"`
}

// Commit is the head commit reference of a branch.
type Commit struct {
	SHA string `json:"sha"`
	URL string `json:"url"`
}

// Branch is one branch of a repository, annotated with the repository URL it came from.
type Branch struct {
	Name      string `json:"name"`
	Commit    Commit `json:"commit"`
	Protected bool   `json:"protected"`
	RepoURL   string `json:"repoUrl"`
}

// BranchList is a page of branches.
type BranchList struct {
	Branches  []Branch `json:"branches"`
	Truncated bool     `json:"truncated"`
}

// Tab is one opened file.
type Tab struct {
	Path             string `json:"path"`
	Title            string `json:"title"`
	Content          string `json:"content"`
	IsLoading        bool   `json:"isLoading"`
	IsTooLarge       bool   `json:"isTooLarge"`
	CanEditorRender  bool   `json:"canEditorRender"`
	HasError         bool   `json:"hasError"`
	WasForceRendered bool   `json:"wasForceRendered"`
	// LoadedRaw 内容是按二进制字符串强制解码的，重新编码时也要按字节处理
	LoadedRaw bool `json:"loadedRaw,omitempty"`
	ErrorKind        string `json:"errorKind,omitempty"`
	Extension        string `json:"extension"`
	Language         string `json:"language"`
}

// Profile is a previously authenticated user.
type Profile struct {
	AccessToken string `json:"accessToken"`
	Username    string `json:"username"`
}

// Theme holds the user's selected theme and the system preferred one.
type Theme struct {
	UserTheme      string `json:"userTheme"`
	PreferredTheme string `json:"preferredTheme"`
}
