package meta

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"testing"

	"dupindex/pkg/types"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// -----------------------------------------------------------------------------
// 通用辅助函数 (Helpers)
// 注意：文件名必须以 _test.go 结尾，否则会被编译进生产代码！
// -----------------------------------------------------------------------------

// setupTestRepo 构建隔离的测试环境 (每个测试一个内存库)
func setupTestRepo(t *testing.T) *Repository {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	metaDB := NewWithConn(db)
	require.NoError(t, metaDB.AutoMigrate(allModels()...))

	return NewRepository(metaDB)
}

// mockDigest 生成合法的测试用摘要 (128 字符 hex)
func mockDigest(input string) types.Digest {
	sum := sha512.Sum512([]byte(input))
	return types.Digest(hex.EncodeToString(sum[:]))
}

// mustPackage 注册包，失败直接终止测试
func mustPackage(t *testing.T, repo *Repository, name string, msgAndArgs ...any) *Package {
	t.Helper()
	pkg, err := repo.UpsertPackage(context.Background(),
		types.PackageKey{Name: name, Version: "1.0-1", Architecture: "amd64"},
		name, nil)
	require.NoError(t, err, msgAndArgs...)
	return pkg
}

// mustIntern 注册内容，失败则终止
func mustIntern(t *testing.T, repo *Repository, packageID uint64, filename string, size int64, msgAndArgs ...any) *Content {
	t.Helper()
	c, err := repo.InternContent(context.Background(), packageID, filename, size)
	require.NoError(t, err, msgAndArgs...)
	return c
}

// mustFunction seed 并返回一个函数行
func mustFunction(t *testing.T, repo *Repository, name types.FunctionName) *HashFunction {
	t.Helper()
	require.NoError(t, repo.SeedFunctions(context.Background(), []types.FunctionName{name}))
	fn, err := repo.FunctionByName(context.Background(), name)
	require.NoError(t, err)
	return fn
}

// mustRecord 写入摘要记录，失败则终止
func mustRecord(t *testing.T, repo *Repository, contentID, functionID uint64, digest types.Digest, msgAndArgs ...any) {
	t.Helper()
	err := repo.InsertHashRecord(context.Background(), contentID, functionID, digest)
	require.NoError(t, err, msgAndArgs...)
}
