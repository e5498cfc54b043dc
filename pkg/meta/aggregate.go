package meta

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// 聚合器的数据访问面。分组和统计逻辑在 pkg/aggregator，
// 这里只负责“读全量记录”和“整表替换”两个原语。

// RecordTuple 是 rebuild 扫描的一行：摘要记录连同其 Content 的体积和归属包
type RecordTuple struct {
	FunctionID uint64
	Digest     string
	Size       int64
	PackageID  uint64
}

// AllRecordTuples 全量读出摘要记录 (按 function, digest 排序，方便流式分组)
// 成本 O(记录总数)，rebuild 是手动触发的批处理，可以接受
func (r *Repository) AllRecordTuples(ctx context.Context) ([]RecordTuple, error) {
	var rows []RecordTuple
	err := r.db.GetConn().WithContext(ctx).
		Table("hash_records").
		Select("hash_records.function_id, hash_records.digest, contents.size, contents.package_id").
		Joins("JOIN contents ON contents.id = hash_records.content_id").
		Order("hash_records.function_id, hash_records.digest").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to scan hash records: %w", err)
	}
	return rows, nil
}

// ReplaceSharingGroups 用新一代的分组整表替换旧的 (drop-and-rebuild)
// 放在一个事务里：读者要么看到上一代，要么看到新一代，不会看到半成品
func (r *Repository) ReplaceSharingGroups(ctx context.Context, groups []SharingGroup) error {
	return r.db.GetConn().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 整表清空。SharingGroup 是纯派生数据，删掉不丢任何信息
		if err := tx.Where("1 = 1").Delete(&SharingGroup{}).Error; err != nil {
			return fmt.Errorf("failed to drop sharing groups: %w", err)
		}
		if len(groups) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(groups, 500).Error; err != nil {
			return fmt.Errorf("failed to insert sharing groups: %w", err)
		}
		return nil
	})
}

// CountSharingGroups 当前代的分组数 (测试和 CLI 汇报用)
func (r *Repository) CountSharingGroups(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetConn().WithContext(ctx).
		Model(&SharingGroup{}).
		Count(&count).Error
	return count, err
}
