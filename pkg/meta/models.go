package meta

import (
	"time"

	"gorm.io/datatypes"
)

// Package 对应一个被导入的软件包
// 追加式 (append-only)：导入时创建，之后不更新不删除
type Package struct {
	ID uint64 `gorm:"primaryKey"`

	// Name 是唯一键。同名包的重复导入是幂等 no-op (first write wins)
	Name         string `gorm:"uniqueIndex;type:varchar(255);not null"`
	Version      string `gorm:"type:varchar(255);not null"`
	Architecture string `gorm:"type:varchar(64);not null"`

	// Source 是源码包名 (没有单独 Source 字段的包等于自身)
	Source string `gorm:"type:varchar(255)"`

	// Depends: 依赖的包名列表，JSON 数组 ["libc6", "zlib1g"]
	// 查询层用它给“共享对象恰好是依赖”的行着色
	Depends datatypes.JSON

	CreatedAt time.Time
}

// Content 是一个包内的一个文件出现 (occurrence)
// (PackageID, Filename) 唯一；两个不同位置哪怕字节完全相同，
// 也各有各的 Content 身份——物理相同性由 HashRecord 的摘要相等来发现，
// 而不是在结构上强行合并。
type Content struct {
	ID uint64 `gorm:"primaryKey"`

	PackageID uint64 `gorm:"uniqueIndex:idx_content_pkg_file;not null"`
	Filename  string `gorm:"uniqueIndex:idx_content_pkg_file;type:varchar(1024);not null"`

	// Size 是原始字节长度。原始字节本身散列完就丢弃，不落库。
	Size int64 `gorm:"not null"`

	CreatedAt time.Time
}

// HashFunction 是注册表中一个函数的持久化身份
// 启动时由注册表 seed，导入过程从不修改
type HashFunction struct {
	ID   uint64 `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex;type:varchar(64);not null"`
}

// HashRecord 把一个 Content 和一个 HashFunction 的求值结果绑在一起
// 行缺失本身有含义：要么还没求值，要么该函数不适用 (解码失败)。
// 复合主键保证每个 (Content, Function) 至多一行——幂等写入的约束基础。
type HashRecord struct {
	ContentID  uint64 `gorm:"primaryKey;autoIncrement:false"`
	FunctionID uint64 `gorm:"primaryKey;autoIncrement:false;index:idx_record_fn_digest"`

	Digest string `gorm:"type:char(128);not null;index:idx_record_fn_digest"`
}

// SharingGroup 是聚合器的产物：同一函数下共享同一摘要的 Content 集合的统计
// 纯派生数据，每次 rebuild 整表替换，任何时刻都能从 HashRecord + Content 重算出来
type SharingGroup struct {
	FunctionID uint64 `gorm:"primaryKey;autoIncrement:false"`
	Digest     string `gorm:"primaryKey;type:char(128)"`

	MemberCount  int64 `gorm:"not null"`
	PackageCount int64 `gorm:"not null"`
	TotalSize    int64 `gorm:"not null"`
	MinSize      int64 `gorm:"not null"`

	// Recoverable = TotalSize - MinSize：只保留最小一份时省下的字节数
	Recoverable int64 `gorm:"not null;index"`
}

// allModels 是 AutoMigrate 的清单
func allModels() []any {
	return []any{&Package{}, &Content{}, &HashFunction{}, &HashRecord{}, &SharingGroup{}}
}
