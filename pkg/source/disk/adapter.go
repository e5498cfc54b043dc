package disk

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"dupindex/pkg/source"
)

// streamSuffix 是解析器产出的流文件后缀
const streamSuffix = ".rec"

// Adapter 实现了 source.Source 接口：本地目录里的一堆 *.rec 文件
type Adapter struct {
	rootPath string // 比如: /srv/dupidx/streams
}

// NewAdapter 创建一个新的磁盘流来源
func NewAdapter(root string) (*Adapter, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stream directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("stream path %q is not a directory", root)
	}
	return &Adapter{rootPath: root}, nil
}

func (s *Adapter) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	// key 是相对路径，比如 "pool/g/git_2.30.2-1_amd64.rec"
	f, err := os.Open(filepath.Join(s.rootPath, filepath.FromSlash(key)))
	if os.IsNotExist(err) {
		return nil, source.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// List 递归列出全部 *.rec 文件 (key 用 / 分隔，和 S3 来源保持一致)
func (s *Adapter) List(ctx context.Context) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(s.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), streamSuffix) {
			return nil
		}
		rel, err := filepath.Rel(s.rootPath, path)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list stream directory: %w", err)
	}
	return keys, nil
}
