package tree

import (
	"bytes"
	"io"
	"sort"
	"strings"

	"git-browser-web/pkg/logger"
	"git-browser-web/pkg/types"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
)

// Treeify 把远端 API 返回的扁平条目列表转换成以路径为键的节点表
//
// 只处理 blob 和 tree 两种条目，commit（子模块）直接忽略。同一路径重复出现时，
// 节点字段以最后一次为准，父目录的 children 不会重复。
func Treeify(entries []types.RepoEntry) types.PathTree {
	t := make(types.PathTree, len(entries))

	for i := range entries {
		e := entries[i]
		if e.Type != types.EntryBlob && e.Type != types.EntryTree {
			continue
		}

		parts := splitPath(e.Path)
		if len(parts) == 0 {
			logger.Debug("跳过路径为空的条目", zap.Int("index", i), zap.String("type", e.Type))
			continue
		}
		name := parts[len(parts)-1]
		parentPath := strings.Join(parts[:len(parts)-1], "/")

		existing, seen := t[e.Path]
		switch e.Type {
		case types.EntryBlob:
			if seen && existing.IsFolder() {
				// 已有同名目录时保留目录，否则其 children 会指向一个文件
				logger.Debug("忽略与目录同名的文件条目", zap.String("path", e.Path))
				continue
			}
			t[e.Path] = &types.TreeNode{
				Path: e.Path,
				Type: types.NodeFile,
				Name: name,
				URL:  e.URL,
				Size: e.Size,
			}
		case types.EntryTree:
			if seen {
				if existing.IsFolder() {
					existing.URL = e.URL
					existing.Name = name
					existing.Size = e.Size
				}
				break
			}
			t[e.Path] = &types.TreeNode{
				Path:     e.Path,
				Type:     types.NodeFolder,
				Name:     name,
				URL:      e.URL,
				Size:     e.Size,
				Children: []string{},
			}
		}

		node := t[e.Path]
		if parent, ok := t[parentPath]; ok && parentPath != "" && parent.IsFolder() {
			if !contains(parent.Children, e.Path) {
				parent.Children = append(parent.Children, e.Path)
			}
			p := parentPath
			node.Parent = &p
			node.IsRoot = false
		} else {
			node.Parent = nil
			node.IsRoot = true
		}
	}

	return t
}

func splitPath(p string) []string {
	var parts []string
	for _, s := range strings.Split(p, "/") {
		if strings.TrimSpace(s) != "" {
			parts = append(parts, s)
		}
	}
	return parts
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Roots 返回根节点，目录在前，各分组内保持发现顺序
//
// order 为空时按路径排序。
func Roots(t types.PathTree, order []string) []*types.TreeNode {
	if order == nil {
		order = sortedPaths(t)
	}
	var nodes []*types.TreeNode
	for _, p := range order {
		if n, ok := t[p]; ok && n.IsRoot {
			nodes = append(nodes, n)
		}
	}
	return partition(nodes)
}

// Children 返回目录的直接子节点，目录在前
func Children(t types.PathTree, node *types.TreeNode) []*types.TreeNode {
	if node == nil || !node.IsFolder() {
		return nil
	}
	nodes := make([]*types.TreeNode, 0, len(node.Children))
	for _, p := range node.Children {
		if n, ok := t[p]; ok {
			nodes = append(nodes, n)
		}
	}
	return partition(nodes)
}

func partition(nodes []*types.TreeNode) []*types.TreeNode {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].IsFolder() && !nodes[j].IsFolder()
	})
	return nodes
}

// Order 返回条目中 blob/tree 路径的首次出现顺序，用于按发现顺序列出根节点
func Order(entries []types.RepoEntry) []string {
	seen := make(map[string]struct{}, len(entries))
	order := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type != types.EntryBlob && e.Type != types.EntryTree {
			continue
		}
		if _, ok := seen[e.Path]; ok {
			continue
		}
		seen[e.Path] = struct{}{}
		order = append(order, e.Path)
	}
	return order
}

func sortedPaths(t types.PathTree) []string {
	paths := make([]string, 0, len(t))
	for p := range t {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Search 在文件节点的名称和路径中做不区分大小写的子串匹配
//
// 结果按路径排序，最多 limit 条，并标记为根节点以便平铺展示。空查询不返回结果。
func Search(t types.PathTree, query string, limit int) []*types.TreeNode {
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return nil
	}
	folder := cases.Fold()
	q := folder.String(query)

	paths := sortedPaths(t)

	var results []*types.TreeNode
	for _, p := range paths {
		n := t[p]
		if n.IsFolder() {
			continue
		}
		if !strings.Contains(folder.String(n.Name), q) && !strings.Contains(folder.String(n.Path), q) {
			continue
		}
		c := *n
		c.IsRoot = true
		results = append(results, &c)
		if len(results) >= limit {
			break
		}
	}
	return results
}

// Print 把目录树以 ASCII 形式写入 w
func Print(t types.PathTree, w io.Writer) error {
	var buf bytes.Buffer
	t.Print(&buf)
	_, err := w.Write(buf.Bytes())
	return err
}
