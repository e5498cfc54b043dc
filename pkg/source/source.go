package source

import (
	"context"
	"errors"
	"io"
)

var (
	ErrNotFound = errors.New("stream not found")
)

// Source 是包记录流的来源
// 外部解析器把每个包写成一条 *.rec 流 (见 pkg/pkgstream)，
// 导入命令从 Source 拉流。实现可以是本地目录或对象存储。
type Source interface {
	// Open 按 key 打开一条流
	// 注意：返回的是 io.ReadCloser 而不是 []byte
	// 原因：包流可能有几百 MB，必须支持流式读取
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// List 列出全部可用的流 key (backfill 要跑全量用)
	List(ctx context.Context) ([]string, error)
}
