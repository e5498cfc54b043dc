// pkg/hashfn/image.go
package hashfn

import (
	"bytes"
	"crypto/sha512"
	"encoding/binary"
	"encoding/hex"
	"image"
	"image/gif"
	"image/png"

	"dupindex/pkg/types"
)

// canonicalImageDigest 把解码后的图像转成规范形式再做摘要：
//
//	prefix | width(u32 BE) | height(u32 BE) | 每像素 RGBA (各 16bit BE)
//
// 规范形式只取决于像素值，与源文件的压缩方式、滤波器、调色板布局无关。
// 因此同一张图的两种编码 (比如 optipng 前后) 摘要相同。
func canonicalImageDigest(prefix string, img image.Image) types.Digest {
	h := sha512.New()
	h.Write([]byte(prefix))

	bounds := img.Bounds()
	var dims [8]byte
	binary.BigEndian.PutUint32(dims[0:4], uint32(bounds.Dx()))
	binary.BigEndian.PutUint32(dims[4:8], uint32(bounds.Dy()))
	h.Write(dims[:])

	var px [8]byte
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			binary.BigEndian.PutUint16(px[0:2], uint16(r))
			binary.BigEndian.PutUint16(px[2:4], uint16(g))
			binary.BigEndian.PutUint16(px[4:6], uint16(b))
			binary.BigEndian.PutUint16(px[6:8], uint16(a))
			h.Write(px[:])
		}
	}

	return types.Digest(hex.EncodeToString(h.Sum(nil)))
}

// -----------------------------------------------------------------------------
// png_sha512 / gif_sha512
// -----------------------------------------------------------------------------

type pngFunc struct{}

func (pngFunc) Name() types.FunctionName { return "png_sha512" }

func (pngFunc) Hash(data []byte) (types.Digest, bool) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return "", false
	}
	return canonicalImageDigest("png", img), true
}

type gifFunc struct{}

func (gifFunc) Name() types.FunctionName { return "gif_sha512" }

// GIF 只取第一帧。动图逐帧比较意义不大，而占空间的大头是静态图标。
func (gifFunc) Hash(data []byte) (types.Digest, bool) {
	img, err := gif.Decode(bytes.NewReader(data))
	if err != nil {
		return "", false
	}
	return canonicalImageDigest("gif", img), true
}
