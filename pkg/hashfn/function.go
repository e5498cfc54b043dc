// pkg/hashfn/function.go
package hashfn

import (
	"crypto/sha512"
	"encoding/hex"

	"dupindex/pkg/types"
)

// Function 是注册表中的一个哈希函数
// 约束：纯函数、确定性。相同的输入永远得到相同的 (digest, ok)。
// 对本函数的容器格式而言非法的输入不是错误，而是正常的 ok=false。
type Function interface {
	// Name 返回稳定的字符串标识符 (写入 hash_functions 表)
	Name() types.FunctionName

	// Hash 计算摘要。ok=false 表示“不适用”(解码失败或摘要被压制)
	Hash(data []byte) (digest types.Digest, ok bool)
}

// boringDigests 是“无聊摘要”黑名单
// 空文件和单个换行符在几乎每个包里都出现，对去重毫无意义，
// 如果不压制，它们会形成全库最大的 SharingGroup，污染统计。
var boringDigests = map[types.Digest]struct{}{
	// ""
	"cf83e1357eefb8bdf1542850d66d8007d620e4050b5715dc83f4a921d36ce9ce47d0d13c5d85f2b0ff8318d2877eec2f63b931bd47417a81a538327af927da3e": {},
	// "\n"
	"be688838ca8686e5c90689bf2ab585cef1137c999b48c70b92f67a5c34dc15697b5d11c982ed6d71be1e1e7f7b4e0733884aa97c3f7a339a8ed03577cf74be09": {},
}

// sha512Hex 是所有函数共用的摘要原语
func sha512Hex(data []byte) types.Digest {
	sum := sha512.Sum512(data)
	return types.Digest(hex.EncodeToString(sum[:]))
}

// isBoring 检查摘要是否在黑名单里
func isBoring(d types.Digest) bool {
	_, hit := boringDigests[d]
	return hit
}

// -----------------------------------------------------------------------------
// sha512: 原始字节的恒等摘要函数
// -----------------------------------------------------------------------------

type sha512Func struct{}

func (sha512Func) Name() types.FunctionName { return "sha512" }

func (sha512Func) Hash(data []byte) (types.Digest, bool) {
	d := sha512Hex(data)
	if isBoring(d) {
		return "", false
	}
	return d, true
}
