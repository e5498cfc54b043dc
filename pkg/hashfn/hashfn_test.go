package hashfn

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dupindex/pkg/types"
)

// mustGzip 用指定压缩等级压缩数据，失败直接终止测试
func mustGzip(t *testing.T, data []byte, level int) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, level)
	require.NoError(t, err)
	_, err = zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// -----------------------------------------------------------------------------
// 测试用例
// -----------------------------------------------------------------------------

func TestSha512_Deterministic(t *testing.T) {
	reg := Default()
	data := []byte("the quick brown fox")

	d1, ok1, err := reg.Evaluate("sha512", data)
	require.NoError(t, err)
	d2, ok2, err := reg.Evaluate("sha512", data)
	require.NoError(t, err)

	// 确定性：两次求值结果完全一致 (摘要值和适用性)
	assert.True(t, ok1)
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, d1, d2)
	assert.True(t, d1.IsValid(), "sha512 hex digest should be 128 chars")
}

func TestSha512_BoringSuppression(t *testing.T) {
	reg := Default()

	// 空文件和单个换行符是“无聊内容”，不参与去重
	for _, data := range [][]byte{{}, []byte("\n")} {
		_, ok, err := reg.Evaluate("sha512", data)
		require.NoError(t, err)
		assert.False(t, ok, "boring content %q should be suppressed", data)
	}

	// 正常内容不受影响
	_, ok, err := reg.Evaluate("sha512", []byte("\n\n"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGzip_DecodeEquivalence(t *testing.T) {
	reg := Default()

	// 同一份数据、两种压缩等级 -> 两份不同的字节流
	payload := bytes.Repeat([]byte("duplicate duplicate duplicate "), 500)
	fast := mustGzip(t, payload, gzip.BestSpeed)
	small := mustGzip(t, payload, gzip.BestCompression)
	require.NotEqual(t, fast, small, "different levels should produce different bytes")

	// 解码感知函数：两种编码坍缩成同一个摘要
	d1, ok, err := reg.Evaluate("gzip_sha512", fast)
	require.NoError(t, err)
	require.True(t, ok)
	d2, ok, err := reg.Evaluate("gzip_sha512", small)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, d1, d2)

	// 恒等函数：两种编码仍然是不同的内容
	r1, ok, err := reg.Evaluate("sha512", fast)
	require.NoError(t, err)
	require.True(t, ok)
	r2, ok, err := reg.Evaluate("sha512", small)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEqual(t, r1, r2)
}

func TestGzip_NotApplicable(t *testing.T) {
	reg := Default()

	cases := map[string][]byte{
		"plain text":       []byte("definitely not gzip"),
		"empty":            {},
		"truncated stream": mustGzip(t, []byte("some payload to cut"), gzip.BestSpeed)[:8],
	}
	for name, data := range cases {
		_, ok, err := reg.Evaluate("gzip_sha512", data)
		require.NoError(t, err, name)
		assert.False(t, ok, "%s should not be valid gzip", name)
	}

	// 合法流 + 尾部垃圾 = 非法
	withGarbage := append(mustGzip(t, []byte("payload"), gzip.BestSpeed), "trailing junk"...)
	_, ok, err := reg.Evaluate("gzip_sha512", withGarbage)
	require.NoError(t, err)
	assert.False(t, ok, "trailing garbage should invalidate the stream")
}

// testImage 生成一张带渐变的不透明小图 (像素值足够“随机”，避免编码器走平凡路径)
func testImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: uint8(x * y), A: 255})
		}
	}
	return img
}

func TestPNG_DecodeEquivalence(t *testing.T) {
	reg := Default()
	src := testImage()

	// 编码 1: 默认压缩
	var enc1 bytes.Buffer
	require.NoError(t, png.Encode(&enc1, src))

	// 编码 2: 同样的像素，换一种内存布局 (NRGBA) 和压缩等级
	nrgba := image.NewNRGBA(src.Bounds())
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			nrgba.Set(x, y, src.At(x, y))
		}
	}
	var enc2 bytes.Buffer
	encoder := png.Encoder{CompressionLevel: png.NoCompression}
	require.NoError(t, encoder.Encode(&enc2, nrgba))

	require.NotEqual(t, enc1.Bytes(), enc2.Bytes())

	d1, ok, err := reg.Evaluate("png_sha512", enc1.Bytes())
	require.NoError(t, err)
	require.True(t, ok)
	d2, ok, err := reg.Evaluate("png_sha512", enc2.Bytes())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, d1, d2, "same pixels should collide under png_sha512")

	// 恒等摘要仍然区分两种编码
	r1, _, _ := reg.Evaluate("sha512", enc1.Bytes())
	r2, _, _ := reg.Evaluate("sha512", enc2.Bytes())
	assert.NotEqual(t, r1, r2)
}

func TestPNG_NotApplicable(t *testing.T) {
	reg := Default()
	_, ok, err := reg.Evaluate("png_sha512", []byte("\x89PNG but corrupt"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistry_UnknownFunction(t *testing.T) {
	reg := Default()
	_, _, err := reg.Evaluate("md5_oops", []byte("x"))
	assert.Error(t, err)
}

func TestRegistry_Names_Stable(t *testing.T) {
	// backfill 和 seed 逻辑依赖注册顺序稳定
	expected := []types.FunctionName{"sha512", "gzip_sha512", "png_sha512", "gif_sha512"}
	assert.Equal(t, expected, Default().Names())
}

func TestSuffixFunction(t *testing.T) {
	fn, ok := SuffixFunction("usr/share/doc/git/changelog.Debian.gz")
	require.True(t, ok)
	assert.Equal(t, types.FunctionName("gzip_sha512"), fn)

	fn, ok = SuffixFunction("usr/share/icons/app.png")
	require.True(t, ok)
	assert.Equal(t, types.FunctionName("png_sha512"), fn)

	_, ok = SuffixFunction("usr/bin/git")
	assert.False(t, ok)

	// 反向映射
	suffix, ok := FunctionSuffix("gzip_sha512")
	require.True(t, ok)
	assert.Equal(t, ".gz", suffix)
}
