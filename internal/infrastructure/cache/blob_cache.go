package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// BlobCache 用 SQLite 保存 blob 内容
//
// blob 地址由内容的 sha 决定，同一地址的内容不会变化，所以缓存不需要失效。
type BlobCache struct {
	db *sql.DB
}

// Open 打开或创建缓存数据库
func Open(path string) (*BlobCache, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("创建缓存目录失败: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("打开缓存数据库失败: %w", err)
	}
	// sqlite 单写者
	db.SetMaxOpenConns(1)

	c := &BlobCache{db: db}
	if err := c.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("初始化缓存数据库失败: %w", err)
	}
	return c, nil
}

func (c *BlobCache) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS blobs (
		url TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		size INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		last_used TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_blobs_last_used ON blobs(last_used);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Get 按 blob 地址读取内容
func (c *BlobCache) Get(ctx context.Context, blobURL string) (string, bool, error) {
	var content string
	err := c.db.QueryRowContext(ctx, `SELECT content FROM blobs WHERE url = ?`, blobURL).Scan(&content)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	if _, err := c.db.ExecContext(ctx, `UPDATE blobs SET last_used = ? WHERE url = ?`, time.Now(), blobURL); err != nil {
		return "", false, err
	}
	return content, true, nil
}

// Put 保存 blob 内容
func (c *BlobCache) Put(ctx context.Context, blobURL, content string) error {
	now := time.Now()
	_, err := c.db.ExecContext(ctx, `
	INSERT OR REPLACE INTO blobs (url, content, size, created_at, last_used)
	VALUES (?, ?, ?, ?, ?)
	`, blobURL, content, len(content), now, now)
	return err
}

// Prune 删除超过 maxAge 未使用的条目，返回删除数量
func (c *BlobCache) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM blobs WHERE last_used < ?`, time.Now().Add(-maxAge))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Stats 返回条目数和内容总大小
func (c *BlobCache) Stats(ctx context.Context) (count int64, size int64, err error) {
	err = c.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(size), 0) FROM blobs`).Scan(&count, &size)
	return count, size, err
}

// Close 关闭数据库
func (c *BlobCache) Close() error {
	return c.db.Close()
}
