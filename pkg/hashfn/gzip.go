// pkg/hashfn/gzip.go
package hashfn

import (
	"bytes"
	"crypto/sha512"
	"encoding/hex"
	"io"

	"github.com/klauspost/compress/gzip"

	"dupindex/pkg/types"
)

// gzipFunc 把输入当作一条 gzip 流，完整解压后对解压结果做 SHA-512
// 这样同一份数据用不同压缩等级 (gzip -1 vs gzip -9) 存储时摘要相同。
type gzipFunc struct{}

func (gzipFunc) Name() types.FunctionName { return "gzip_sha512" }

func (gzipFunc) Hash(data []byte) (types.Digest, bool) {
	br := bytes.NewReader(data)

	zr, err := gzip.NewReader(br)
	if err != nil {
		// 不是合法的 gzip 头，不适用
		return "", false
	}
	// 只接受单条流。标准的 .gz 文件就是一条流，
	// 多条流拼接会导致“同一逻辑内容、不同摘要”，直接拒绝。
	zr.Multistream(false)

	h := sha512.New()
	if _, err := io.Copy(h, zr); err != nil {
		// 流中途损坏 (CRC 错误、截断等)
		return "", false
	}
	if err := zr.Close(); err != nil {
		return "", false
	}

	// 流结束后还有剩余字节 = 尾部垃圾，判定为非法
	if br.Len() > 0 {
		return "", false
	}

	d := types.Digest(hex.EncodeToString(h.Sum(nil)))
	if isBoring(d) {
		return "", false
	}
	return d, true
}
