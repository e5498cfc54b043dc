// pkg/hashfn/registry.go
package hashfn

import (
	"fmt"
	"strings"

	"dupindex/pkg/types"
)

// Registry 是一张封闭的函数表，启动时构建，之后只读。
// 新增函数是一次代码改动加一次 backfill，不是运行时插件。
type Registry struct {
	ordered []Function
	byName  map[types.FunctionName]Function
}

// NewRegistry 按给定顺序构建注册表
// 顺序会保留下来，Names() 的输出是稳定的 (测试和 backfill 依赖这一点)。
func NewRegistry(funcs ...Function) *Registry {
	r := &Registry{
		byName: make(map[types.FunctionName]Function, len(funcs)),
	}
	for _, fn := range funcs {
		if _, dup := r.byName[fn.Name()]; dup {
			// 注册表在启动时构建，重名属于编程错误，直接 panic
			panic(fmt.Sprintf("hashfn: duplicate function %q", fn.Name()))
		}
		r.ordered = append(r.ordered, fn)
		r.byName[fn.Name()] = fn
	}
	return r
}

// Default 返回生产环境使用的注册表
func Default() *Registry {
	return NewRegistry(
		sha512Func{},
		gzipFunc{},
		pngFunc{},
		gifFunc{},
	)
}

// Names 返回所有函数名 (注册顺序)
func (r *Registry) Names() []types.FunctionName {
	names := make([]types.FunctionName, 0, len(r.ordered))
	for _, fn := range r.ordered {
		names = append(names, fn.Name())
	}
	return names
}

// Functions 返回所有函数 (注册顺序)
func (r *Registry) Functions() []Function {
	return r.ordered
}

// ForName 按名字查找函数
func (r *Registry) ForName(name types.FunctionName) (Function, bool) {
	fn, found := r.byName[name]
	return fn, found
}

// Evaluate 对指定函数求值。未知的函数名是调用方的错误。
func (r *Registry) Evaluate(name types.FunctionName, data []byte) (types.Digest, bool, error) {
	fn, found := r.byName[name]
	if !found {
		return "", false, fmt.Errorf("hashfn: unknown function %q", name)
	}
	digest, applicable := fn.Hash(data)
	return digest, applicable, nil
}

// suffixFunctions 把文件名后缀映射到对应的解码函数
// 用于“疑似损坏”查询：文件名声称是某容器格式，却没有该函数的摘要记录。
var suffixFunctions = map[string]types.FunctionName{
	".gz":  "gzip_sha512",
	".png": "png_sha512",
	".gif": "gif_sha512",
}

// SuffixFunction 根据文件名猜测应当适用的解码函数
func SuffixFunction(filename string) (types.FunctionName, bool) {
	for suffix, name := range suffixFunctions {
		if strings.HasSuffix(filename, suffix) {
			return name, true
		}
	}
	return "", false
}

// FunctionSuffix 是 SuffixFunction 的反向映射 (查询层拼 SQL LIKE 用)
func FunctionSuffix(name types.FunctionName) (string, bool) {
	for suffix, fn := range suffixFunctions {
		if fn == name {
			return suffix, true
		}
	}
	return "", false
}
