package meta

import (
	"context"
	"errors"

	"dupindex/pkg/types"

	"gorm.io/gorm"
)

// 本文件是只读查询接口：web 前端 / CLI 查询命令只消费这里的方法，
// 不触碰写路径。

// SharedContent 是“谁持有这个摘要”查询的一行
type SharedContent struct {
	PackageName string
	Filename    string
	Size        int64
}

// ContentsByDigest 列出某函数下共享同一摘要的全部 (package, filename)
func (r *Repository) ContentsByDigest(ctx context.Context, function types.FunctionName, digest types.Digest) ([]SharedContent, error) {
	var rows []SharedContent
	err := r.db.GetConn().WithContext(ctx).
		Table("hash_records").
		Select("packages.name AS package_name, contents.filename, contents.size").
		Joins("JOIN hash_functions ON hash_functions.id = hash_records.function_id").
		Joins("JOIN contents ON contents.id = hash_records.content_id").
		Joins("JOIN packages ON packages.id = contents.package_id").
		Where("hash_functions.name = ? AND hash_records.digest = ?", string(function), string(digest)).
		Order("contents.size DESC, packages.name").
		Scan(&rows).Error
	return rows, err
}

// GroupStat 是 SharingGroup 查询结果，带上了函数名
type GroupStat struct {
	FunctionName string
	Digest       string
	MemberCount  int64
	PackageCount int64
	TotalSize    int64
	MinSize      int64
	Recoverable  int64
}

// TopGroups 按可回收字节数降序列出 SharingGroup
// function 为空串时跨函数列出
func (r *Repository) TopGroups(ctx context.Context, function types.FunctionName, limit int) ([]GroupStat, error) {
	q := r.db.GetConn().WithContext(ctx).
		Table("sharing_groups").
		Select("hash_functions.name AS function_name, sharing_groups.digest, "+
			"sharing_groups.member_count, sharing_groups.package_count, "+
			"sharing_groups.total_size, sharing_groups.min_size, sharing_groups.recoverable").
		Joins("JOIN hash_functions ON hash_functions.id = sharing_groups.function_id").
		Order("sharing_groups.recoverable DESC").
		Limit(limit)
	if function != "" {
		q = q.Where("hash_functions.name = ?", string(function))
	}

	var rows []GroupStat
	err := q.Scan(&rows).Error
	return rows, err
}

// SuspectContents 找出“文件名声称是某容器格式、却没有对应解码摘要”的文件
// 例如名为 *.gz 但没有任何 gzip_sha512 记录 —— 大概率是损坏或被错误命名的文件。
// 前提：该函数的 backfill 已经跑完，否则“缺行”也可能只是还没求值。
func (r *Repository) SuspectContents(ctx context.Context, function types.FunctionName, suffix string) ([]SharedContent, error) {
	fn, err := r.FunctionByName(ctx, function)
	if err != nil {
		return nil, err
	}

	var rows []SharedContent
	err = r.db.GetConn().WithContext(ctx).
		Table("contents").
		Select("packages.name AS package_name, contents.filename, contents.size").
		Joins("JOIN packages ON packages.id = contents.package_id").
		Where("contents.filename LIKE ?", "%"+suffix).
		Where("NOT EXISTS (SELECT 1 FROM hash_records"+
			" WHERE hash_records.content_id = contents.id AND hash_records.function_id = ?)", fn.ID).
		Order("contents.size DESC").
		Scan(&rows).Error
	return rows, err
}

// PackageStats 是单个包的概览
type PackageStats struct {
	Package   *Package
	NumFiles  int64
	TotalSize int64
}

// GetPackageStats 返回包的文件数和总字节数
func (r *Repository) GetPackageStats(ctx context.Context, name string) (*PackageStats, error) {
	pkg, err := r.GetPackage(ctx, name)
	if err != nil {
		return nil, err
	}

	var agg struct {
		NumFiles  int64
		TotalSize int64
	}
	err = r.db.GetConn().WithContext(ctx).
		Table("contents").
		Select("COUNT(*) AS num_files, COALESCE(SUM(size), 0) AS total_size").
		Where("package_id = ?", pkg.ID).
		Scan(&agg).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return &PackageStats{Package: pkg, NumFiles: agg.NumFiles, TotalSize: agg.TotalSize}, nil
}
