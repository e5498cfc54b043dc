// pkg/types/common.go
package types

// Digest 代表一个哈希函数的输出 (SHA-512 Hex String)
// 这是一个“值对象”，应当是不可变的。
// 注意：Digest 只有和产生它的 FunctionName 配对时才有意义，
// 不同函数产生的 Digest 之间禁止比较。
type Digest string

func (d Digest) String() string { return string(d) }

// 验证 Digest 合法性
func (d Digest) IsZero() bool  { return d == "" }
func (d Digest) IsValid() bool { return len(d) == 128 } // 简单的长度检查 (sha512 hex)

// FunctionName 是哈希函数注册表中的稳定字符串标识符
// 例如 "sha512" / "gzip_sha512" / "png_sha512"
type FunctionName string

func (n FunctionName) String() string { return string(n) }

// PackageKey 唯一标识一个软件包 (name + version + architecture)
// 对应包解析器输出的控制信息
type PackageKey struct {
	Name         string
	Version      string
	Architecture string
}

func (k PackageKey) IsZero() bool { return k.Name == "" }
