package aggregator

import (
	"context"
	"errors"
	"sync"

	"dupindex/pkg/meta"
)

// ErrRebuildInFlight: 已经有一个 rebuild 在跑
// rebuild 是单写者批处理，自己和自己并发没有意义，直接拒绝第二个
var ErrRebuildInFlight = errors.New("aggregation rebuild already in flight")

// Aggregator 把全量 HashRecord 重算成 SharingGroup 表
// 显式触发、幂等、drop-and-rebuild：用全量重算的成本换增量维护 bug 的免疫。
// 如果数据量大到全量重算撑不住，再改成按摘要的增量聚合——那是一个
// 显式的权衡切换，不是顺手的重构。
type Aggregator struct {
	repo *meta.Repository

	// mu 保证同一时刻至多一个 rebuild
	// 和导入并发是允许的：结果反映导入中间的某个快照，导完再跑一次即可
	mu sync.Mutex
}

func NewAggregator(repo *meta.Repository) *Aggregator {
	return &Aggregator{repo: repo}
}

// RebuildStats 是一次 rebuild 的汇报
type RebuildStats struct {
	Scanned     int   // 扫描的摘要记录数
	Groups      int   // 产出的分组数
	Recoverable int64 // 全库可回收字节总和
}

// Rebuild 全量重算 SharingGroup
// 算法：按 (function, digest) 分组；保留成员数 >1 或跨包的组；
// 统计成员数、去重包数、总字节、最小字节、可回收字节 (= 总 - 最小)；
// 最后在一个事务里整表替换。
func (a *Aggregator) Rebuild(ctx context.Context) (*RebuildStats, error) {
	if !a.mu.TryLock() {
		return nil, ErrRebuildInFlight
	}
	defer a.mu.Unlock()

	// 读全量 (已按 function, digest 排序，分组只需要一次线性扫描)
	tuples, err := a.repo.AllRecordTuples(ctx)
	if err != nil {
		return nil, err
	}

	stats := &RebuildStats{Scanned: len(tuples)}
	var groups []meta.SharingGroup

	flush := func(run []meta.RecordTuple) {
		if len(run) == 0 {
			return
		}

		packages := make(map[uint64]struct{}, len(run))
		var total, min int64
		min = run[0].Size
		for _, t := range run {
			total += t.Size
			if t.Size < min {
				min = t.Size
			}
			packages[t.PackageID] = struct{}{}
		}

		// 单成员、单包的组没有任何可去重的东西，不落库
		if len(run) <= 1 && len(packages) <= 1 {
			return
		}

		groups = append(groups, meta.SharingGroup{
			FunctionID:   run[0].FunctionID,
			Digest:       run[0].Digest,
			MemberCount:  int64(len(run)),
			PackageCount: int64(len(packages)),
			TotalSize:    total,
			MinSize:      min,
			Recoverable:  total - min,
		})
	}

	start := 0
	for i := 1; i <= len(tuples); i++ {
		if i == len(tuples) ||
			tuples[i].FunctionID != tuples[start].FunctionID ||
			tuples[i].Digest != tuples[start].Digest {
			flush(tuples[start:i])
			start = i
		}
	}

	// 新一代整表上线
	if err := a.repo.ReplaceSharingGroups(ctx, groups); err != nil {
		return nil, err
	}

	stats.Groups = len(groups)
	for _, g := range groups {
		stats.Recoverable += g.Recoverable
	}
	return stats, nil
}
