package aggregator

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"testing"

	"dupindex/pkg/meta"
	"dupindex/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupRepo 构建隔离的测试库
func setupRepo(t *testing.T) *meta.Repository {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	metaDB := meta.NewWithConn(db)
	require.NoError(t, metaDB.AutoMigrate(&meta.Package{}, &meta.Content{},
		&meta.HashFunction{}, &meta.HashRecord{}, &meta.SharingGroup{}))
	return meta.NewRepository(metaDB)
}

func mockDigest(input string) types.Digest {
	sum := sha512.Sum512([]byte(input))
	return types.Digest(hex.EncodeToString(sum[:]))
}

// fixture 搭一个手算过的已知数据集：
//
//	D1: git/fileA (100) + git-man/fileA (100)    -> 跨包组
//	D2: git/fileB (50)  + git-man/fileC (70)     -> 跨包组，大小不等
//	D3: git/unique (999)                          -> 单成员，不落库
//	D4: git/dup1 (30)   + git/dup2 (30)          -> 同包重复组
func fixture(t *testing.T, repo *meta.Repository) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, repo.SeedFunctions(ctx, []types.FunctionName{"sha512"}))
	fn, err := repo.FunctionByName(ctx, "sha512")
	require.NoError(t, err)

	p1, err := repo.UpsertPackage(ctx, types.PackageKey{Name: "git", Version: "1", Architecture: "amd64"}, "git", nil)
	require.NoError(t, err)
	p2, err := repo.UpsertPackage(ctx, types.PackageKey{Name: "git-man", Version: "1", Architecture: "all"}, "git", nil)
	require.NoError(t, err)

	add := func(pkgID uint64, name string, size int64, digest types.Digest) {
		c, err := repo.InternContent(ctx, pkgID, name, size)
		require.NoError(t, err)
		require.NoError(t, repo.InsertHashRecord(ctx, c.ID, fn.ID, digest))
	}

	add(p1.ID, "fileA", 100, mockDigest("D1"))
	add(p2.ID, "fileA", 100, mockDigest("D1"))
	add(p1.ID, "fileB", 50, mockDigest("D2"))
	add(p2.ID, "fileC", 70, mockDigest("D2"))
	add(p1.ID, "unique", 999, mockDigest("D3"))
	add(p1.ID, "dup1", 30, mockDigest("D4"))
	add(p1.ID, "dup2", 30, mockDigest("D4"))
}

// -----------------------------------------------------------------------------
// 测试用例
// -----------------------------------------------------------------------------

func TestRebuild_HandComputed(t *testing.T) {
	repo := setupRepo(t)
	fixture(t, repo)
	agg := NewAggregator(repo)
	ctx := context.Background()

	stats, err := agg.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, stats.Scanned)
	assert.Equal(t, 3, stats.Groups, "D3 is a singleton and must be excluded")
	// 100 (D1) + 70 (D2) + 30 (D4)
	assert.Equal(t, int64(200), stats.Recoverable)

	rows, err := repo.TopGroups(ctx, "sha512", 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// 按可回收字节降序：D1 (100) > D2 (70) > D4 (30)
	byDigest := map[string]meta.GroupStat{}
	for _, row := range rows {
		byDigest[row.Digest] = row
	}
	assert.Equal(t, rows[0].Digest, string(mockDigest("D1")))

	d1 := byDigest[string(mockDigest("D1"))]
	assert.Equal(t, int64(2), d1.MemberCount)
	assert.Equal(t, int64(2), d1.PackageCount)
	assert.Equal(t, int64(200), d1.TotalSize)
	assert.Equal(t, int64(100), d1.MinSize)
	assert.Equal(t, int64(100), d1.Recoverable)

	d2 := byDigest[string(mockDigest("D2"))]
	assert.Equal(t, int64(2), d2.MemberCount)
	assert.Equal(t, int64(2), d2.PackageCount)
	assert.Equal(t, int64(120), d2.TotalSize)
	assert.Equal(t, int64(50), d2.MinSize)
	assert.Equal(t, int64(70), d2.Recoverable)

	// 同一个包内的重复也是一个合法的组
	d4 := byDigest[string(mockDigest("D4"))]
	assert.Equal(t, int64(2), d4.MemberCount)
	assert.Equal(t, int64(1), d4.PackageCount)
	assert.Equal(t, int64(30), d4.Recoverable)
}

func TestRebuild_Idempotent(t *testing.T) {
	repo := setupRepo(t)
	fixture(t, repo)
	agg := NewAggregator(repo)
	ctx := context.Background()

	s1, err := agg.Rebuild(ctx)
	require.NoError(t, err)
	s2, err := agg.Rebuild(ctx)
	require.NoError(t, err)

	// 纯派生数据：重跑必须逐字节复现
	assert.Equal(t, s1, s2)

	count, err := repo.CountSharingGroups(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(s1.Groups), count, "no leftover rows from the previous generation")
}

func TestRebuild_ReflectsNewIngestion(t *testing.T) {
	repo := setupRepo(t)
	fixture(t, repo)
	agg := NewAggregator(repo)
	ctx := context.Background()

	_, err := agg.Rebuild(ctx)
	require.NoError(t, err)

	// 导入一个新包，让 D3 从单成员变成跨包组
	fn, err := repo.FunctionByName(ctx, "sha512")
	require.NoError(t, err)
	p3, err := repo.UpsertPackage(ctx, types.PackageKey{Name: "git-extra", Version: "1", Architecture: "all"}, "git", nil)
	require.NoError(t, err)
	c, err := repo.InternContent(ctx, p3.ID, "unique-no-more", 999)
	require.NoError(t, err)
	require.NoError(t, repo.InsertHashRecord(ctx, c.ID, fn.ID, mockDigest("D3")))

	stats, err := agg.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Groups)
	// 新增 D3 组：total 1998, min 999 -> recoverable 999
	assert.Equal(t, int64(200+999), stats.Recoverable)
}

func TestRebuild_EmptyIndex(t *testing.T) {
	repo := setupRepo(t)
	agg := NewAggregator(repo)

	stats, err := agg.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Scanned)
	assert.Zero(t, stats.Groups)
}

func TestRebuild_SingleFlight(t *testing.T) {
	repo := setupRepo(t)
	agg := NewAggregator(repo)

	// 占住锁，模拟一个正在跑的 rebuild
	agg.mu.Lock()
	_, err := agg.Rebuild(context.Background())
	assert.ErrorIs(t, err, ErrRebuildInFlight)
	agg.mu.Unlock()

	// 锁放掉之后恢复正常
	_, err = agg.Rebuild(context.Background())
	assert.NoError(t, err)
}
