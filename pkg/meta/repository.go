package meta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"dupindex/pkg/types"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrPackageNotFound  = errors.New("package not found")
	ErrFunctionNotFound = errors.New("hash function not registered")
)

// Repository 封装所有对 SQL 数据库的操作
// 导入管线和聚合器都依赖它 (存储端口)，而不是各自持有连接
type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// -----------------------------------------------------------------------------
// 1. 包注册 (Packages)
// -----------------------------------------------------------------------------

// UpsertPackage 注册一个包，幂等
// 重复导入同一个包名时什么都不做 (first write wins)，返回已存在的行。
// 并发导入同一个包靠 name 上的唯一约束兜底，不靠应用层锁。
func (r *Repository) UpsertPackage(ctx context.Context, key types.PackageKey, source string, depends []string) (*Package, error) {
	dependsJSON, err := json.Marshal(depends)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal depends: %w", err)
	}

	pkg := Package{
		Name:         key.Name,
		Version:      key.Version,
		Architecture: key.Architecture,
		Source:       source,
		Depends:      datatypes.JSON(dependsJSON),
	}

	// 幂等写入：Name 冲突时忽略
	err = r.db.GetConn().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).
		Create(&pkg).Error
	if err != nil {
		return nil, fmt.Errorf("failed to register package: %w", err)
	}

	// DoNothing 命中时 pkg.ID 仍为零值，统一回读拿到权威的行
	return r.GetPackage(ctx, key.Name)
}

// GetPackage 按包名查找
func (r *Repository) GetPackage(ctx context.Context, name string) (*Package, error) {
	var pkg Package
	err := r.db.GetConn().WithContext(ctx).
		Where("name = ?", name).
		First(&pkg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPackageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

// -----------------------------------------------------------------------------
// 2. 内容注册 (Content interning)
// -----------------------------------------------------------------------------

// InternContent 注册一个 (package, filename) 文件出现，幂等
// 相同的 (package, filename) 重复进来返回同一个 Content，绝不产生第二行。
// 注意：这里故意不做跨文件的字节级去重——字节相同性是散列的“产出”，
// 不是 intern 的前提。
func (r *Repository) InternContent(ctx context.Context, packageID uint64, filename string, size int64) (*Content, error) {
	content := Content{
		PackageID: packageID,
		Filename:  filename,
		Size:      size,
	}

	err := r.db.GetConn().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "package_id"}, {Name: "filename"}},
			DoNothing: true,
		}).
		Create(&content).Error
	if err != nil {
		return nil, fmt.Errorf("failed to intern content: %w", err)
	}

	if content.ID != 0 {
		// 本次真的插入了新行
		return &content, nil
	}

	// 冲突路径：回读已存在的行
	var existing Content
	err = r.db.GetConn().WithContext(ctx).
		Where("package_id = ? AND filename = ?", packageID, filename).
		First(&existing).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load interned content: %w", err)
	}
	return &existing, nil
}

// -----------------------------------------------------------------------------
// 3. 函数表 (Hash functions)
// -----------------------------------------------------------------------------

// SeedFunctions 把注册表里的函数名写进 hash_functions 表
// 启动时调用一次；已存在的名字原样保留 (ID 必须稳定，HashRecord 引用它)
func (r *Repository) SeedFunctions(ctx context.Context, names []types.FunctionName) error {
	for _, name := range names {
		fn := HashFunction{Name: string(name)}
		err := r.db.GetConn().WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoNothing: true,
			}).
			Create(&fn).Error
		if err != nil {
			return fmt.Errorf("failed to seed function %q: %w", name, err)
		}
	}
	return nil
}

// FunctionByName 按名字查函数行
func (r *Repository) FunctionByName(ctx context.Context, name types.FunctionName) (*HashFunction, error) {
	var fn HashFunction
	err := r.db.GetConn().WithContext(ctx).
		Where("name = ?", string(name)).
		First(&fn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFunctionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &fn, nil
}

// Functions 返回全部已注册函数
func (r *Repository) Functions(ctx context.Context) ([]HashFunction, error) {
	var fns []HashFunction
	err := r.db.GetConn().WithContext(ctx).
		Order("id").
		Find(&fns).Error
	return fns, err
}

// -----------------------------------------------------------------------------
// 4. 摘要记录 (Hash records)
// -----------------------------------------------------------------------------

// RecordedFunctionIDs 返回某个 Content 已经有摘要记录的函数 ID 集合
// 导入管线用它跳过已求值的函数 (增量覆盖 / backfill 的关键)
func (r *Repository) RecordedFunctionIDs(ctx context.Context, contentID uint64) (map[uint64]struct{}, error) {
	var ids []uint64
	err := r.db.GetConn().WithContext(ctx).
		Model(&HashRecord{}).
		Where("content_id = ?", contentID).
		Pluck("function_id", &ids).Error
	if err != nil {
		return nil, err
	}
	set := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// InsertHashRecord 写入一条摘要记录，幂等
// (ContentID, FunctionID) 冲突被静默吸收——重复导入和并发导入都会走到这里，
// 这是正常路径不是错误。
func (r *Repository) InsertHashRecord(ctx context.Context, contentID, functionID uint64, digest types.Digest) error {
	rec := HashRecord{
		ContentID:  contentID,
		FunctionID: functionID,
		Digest:     string(digest),
	}
	err := r.db.GetConn().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "content_id"}, {Name: "function_id"}},
			DoNothing: true,
		}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to insert hash record: %w", err)
	}
	return nil
}

// CountHashRecords 统计某个 Content 的记录数 (测试和进度展示用)
func (r *Repository) CountHashRecords(ctx context.Context, contentID uint64) (int64, error) {
	var count int64
	err := r.db.GetConn().WithContext(ctx).
		Model(&HashRecord{}).
		Where("content_id = ?", contentID).
		Count(&count).Error
	return count, err
}
