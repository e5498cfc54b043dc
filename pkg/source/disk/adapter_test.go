package disk

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"dupindex/pkg/source"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskAdapter(t *testing.T) {
	// 1. 搭一个带子目录的流目录
	tmpDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "pool", "g"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(tmpDir, "pool", "g", "git_2.30.2-1_amd64.rec"), []byte("stream bytes"), 0o644))
	require.NoError(t, os.WriteFile(
		filepath.Join(tmpDir, "notes.txt"), []byte("ignore me"), 0o644))

	src, err := NewAdapter(tmpDir)
	require.NoError(t, err)
	ctx := context.Background()

	// 2. List 只认 *.rec，key 用 / 分隔
	keys, err := src.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"pool/g/git_2.30.2-1_amd64.rec"}, keys)

	// 3. Open 读回内容
	rc, err := src.Open(ctx, keys[0])
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, []byte("stream bytes"), data)

	// 4. 不存在的 key
	_, err = src.Open(ctx, "pool/x/nope.rec")
	assert.ErrorIs(t, err, source.ErrNotFound)
}

func TestDiskAdapter_BadRoot(t *testing.T) {
	_, err := NewAdapter(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}
