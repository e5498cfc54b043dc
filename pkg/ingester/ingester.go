package ingester

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"dupindex/pkg/hashfn"
	"dupindex/pkg/meta"
	"dupindex/pkg/pkgstream"
	"dupindex/pkg/types"
)

// SeenCache 记录“这个 Content 在当前注册表下已经全部求值过”的事实
// 纯加速层：命中就跳过散列，未命中走数据库路径。实现见 pkg/ingester/cache。
type SeenCache interface {
	Seen(ctx context.Context, key string) bool
	MarkSeen(ctx context.Context, key string)
}

// noopCache 是默认实现：什么都不记
type noopCache struct{}

func (noopCache) Seen(context.Context, string) bool { return false }
func (noopCache) MarkSeen(context.Context, string)  {}

// Ingester 是导入管线：包记录流 -> Package/Content/HashRecord 行
// 所有写入都是 insert-if-absent，整条管线可以任意重跑、任意并发。
type Ingester struct {
	repo  *meta.Repository
	reg   *hashfn.Registry
	cache SeenCache

	// fnIDs 把函数名映射到持久化 ID，Init 时装载一次
	fnIDs map[types.FunctionName]uint64

	// fingerprint 标识当前注册表的函数集合
	// 进了 seen-cache 的 key，注册表一变就全部失效 (backfill 不能被缓存挡住)
	fingerprint string
}

func NewIngester(repo *meta.Repository, reg *hashfn.Registry) *Ingester {
	return &Ingester{
		repo:  repo,
		reg:   reg,
		cache: noopCache{},
	}
}

// WithCache 挂上 seen-cache (可选)
func (ing *Ingester) WithCache(c SeenCache) *Ingester {
	if c != nil {
		ing.cache = c
	}
	return ing
}

// Init seed 函数表并装载函数 ID 映射
// 必须在第一次 Ingest 前调用一次
func (ing *Ingester) Init(ctx context.Context) error {
	names := ing.reg.Names()
	if err := ing.repo.SeedFunctions(ctx, names); err != nil {
		return fmt.Errorf("failed to seed hash functions: %w", err)
	}

	ing.fnIDs = make(map[types.FunctionName]uint64, len(names))
	parts := make([]string, 0, len(names))
	for _, name := range names {
		fn, err := ing.repo.FunctionByName(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to resolve function %q: %w", name, err)
		}
		ing.fnIDs[name] = fn.ID
		parts = append(parts, string(name))
	}
	ing.fingerprint = strings.Join(parts, ",")
	return nil
}

// StreamStats 是一条流的导入结果
type StreamStats struct {
	Package    string
	Files      int
	NewRecords int
}

// IngestStream 导入一条完整的包记录流
// 流不完整 (没有 commit 标记) 时整条拒绝，已写入的行保持原样——
// 写入是追加且幂等的，下次重跑会收敛到同一个终态，不需要回滚。
func (ing *Ingester) IngestStream(ctx context.Context, r io.Reader) (*StreamStats, error) {
	sr := pkgstream.NewReader(r)

	pkgMeta, err := sr.ReadMeta()
	if err != nil {
		return nil, err
	}

	pkg, err := ing.repo.UpsertPackage(ctx,
		types.PackageKey{
			Name:         pkgMeta.Name,
			Version:      pkgMeta.Version,
			Architecture: pkgMeta.Architecture,
		},
		pkgMeta.Source, pkgMeta.Depends)
	if err != nil {
		return nil, err
	}

	stats := &StreamStats{Package: pkg.Name}
	for {
		file, err := sr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		n, err := ing.IngestFile(ctx, pkg.ID, file.Name, file.Data)
		if err != nil {
			// 存储层失败对这条记录是致命的，向上抛，由调用方决定是否重试整条流
			return nil, fmt.Errorf("failed to ingest %s:%s: %w", pkg.Name, file.Name, err)
		}
		stats.Files++
		stats.NewRecords += n
	}
	return stats, nil
}

// IngestFile 导入单个文件：intern + 对每个还没求值的函数求值并记录
// 返回本次新产生的摘要记录数。对同一内容重跑返回 0 (收敛)。
func (ing *Ingester) IngestFile(ctx context.Context, packageID uint64, filename string, data []byte) (int, error) {
	content, err := ing.repo.InternContent(ctx, packageID, filename, int64(len(data)))
	if err != nil {
		return 0, err
	}

	// 快路径：缓存说这个 Content 在当前注册表下已经全覆盖
	key := ing.seenKey(content.ID)
	if ing.cache.Seen(ctx, key) {
		return 0, nil
	}

	recorded, err := ing.repo.RecordedFunctionIDs(ctx, content.ID)
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, fn := range ing.reg.Functions() {
		fnID := ing.fnIDs[fn.Name()]
		if _, done := recorded[fnID]; done {
			// 已有记录，跳过——这就是“增量覆盖”：
			// 新加函数后重扫，只有新函数会走到下面的求值
			continue
		}

		digest, applicable := fn.Hash(data)
		if !applicable {
			// 解码失败不是错误：不写行。行缺失本身就是信号
			// (比如 *.gz 文件没有 gzip 摘要 = 疑似损坏)
			continue
		}

		if err := ing.repo.InsertHashRecord(ctx, content.ID, fnID, digest); err != nil {
			return inserted, err
		}
		inserted++
	}

	// 走到这里说明注册表里每个函数要么有记录、要么判了不适用
	ing.cache.MarkSeen(ctx, key)
	return inserted, nil
}

func (ing *Ingester) seenKey(contentID uint64) string {
	return fmt.Sprintf("%d|%s", contentID, ing.fingerprint)
}
