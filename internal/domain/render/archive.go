package render

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"git-browser-web/pkg/logger"
	"git-browser-web/pkg/tree"
	"git-browser-web/pkg/types"

	"go.uber.org/zap"
)

// Archive zip 压缩包的目录结构
type Archive struct {
	Tree      types.PathTree `json:"tree"`
	Roots     []string       `json:"roots"`
	FileCount int            `json:"fileCount"`
	DirCount  int            `json:"dirCount"`
	Size      int64          `json:"size"`
}

// ReadArchive 读取 zip 条目并构建目录树，只读取目录信息不解压内容
func ReadArchive(data []byte) (*Archive, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("无法读取ZIP文件: %w", err)
	}

	entries := make([]types.RepoEntry, 0, len(reader.File))
	archive := &Archive{}
	for _, f := range reader.File {
		name := strings.TrimSuffix(filepath.ToSlash(f.Name), "/")
		if name == "" {
			continue
		}
		entry := types.RepoEntry{Path: name}
		if f.FileInfo().IsDir() {
			entry.Type = types.EntryTree
			archive.DirCount++
		} else {
			size := int64(f.UncompressedSize64)
			entry.Type = types.EntryBlob
			entry.Size = &size
			archive.FileCount++
			archive.Size += size
		}
		entries = append(entries, entry)
	}

	archive.Tree = tree.Treeify(entries)
	for _, n := range tree.Roots(archive.Tree, tree.Order(entries)) {
		archive.Roots = append(archive.Roots, n.Path)
	}
	if archive.Roots == nil {
		archive.Roots = []string{}
	}

	logger.Debug("已读取ZIP目录",
		zap.Int("files", archive.FileCount),
		zap.Int("dirs", archive.DirCount))
	return archive, nil
}
