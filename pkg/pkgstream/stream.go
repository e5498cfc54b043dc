// pkg/pkgstream/stream.go
//
// 包记录流的编解码。外部的包解析器对每个包输出一条流：
// 一个 meta 文档、零或多个 file 文档、最后一个 commit 标记。
// 解析器不碰数据库，所以可以在多台机器上并行跑，产物只是这种流。
package pkgstream

import (
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

var (
	// ErrTruncated: 流在 commit 标记前结束。
	// 没有 commit 的流视为不完整，导入方必须整条丢弃，不能导入半个包。
	ErrTruncated = errors.New("package stream truncated (no commit marker)")

	// ErrBadStream: 文档顺序或类型不符合协议
	ErrBadStream = errors.New("malformed package stream")
)

// PackageMeta 是流的第一个文档：包的控制信息
type PackageMeta struct {
	Name         string   `cbor:"n"`
	Source       string   `cbor:"s,omitempty"`
	Version      string   `cbor:"v"`
	Architecture string   `cbor:"a"`
	Depends      []string `cbor:"d,omitempty"`
}

// FileRecord 是包内一个常规文件：路径 + 原始字节
type FileRecord struct {
	Name string `cbor:"n"`
	Data []byte `cbor:"b"`
}

// document 是线上格式的信封。Kind 区分三种文档。
type document struct {
	Kind string       `cbor:"k"`
	Meta *PackageMeta `cbor:"m,omitempty"`
	File *FileRecord  `cbor:"f,omitempty"`
}

const (
	kindMeta   = "meta"
	kindFile   = "file"
	kindCommit = "commit"
)

// -----------------------------------------------------------------------------
// Writer
// -----------------------------------------------------------------------------

// Writer 把一个包写成一条 CBOR 流
type Writer struct {
	enc *cbor.Encoder
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: cbor.NewEncoder(w)}
}

// WriteMeta 写入包头，必须是第一个调用
func (w *Writer) WriteMeta(meta PackageMeta) error {
	return w.enc.Encode(document{Kind: kindMeta, Meta: &meta})
}

// WriteFile 写入一个文件记录
func (w *Writer) WriteFile(name string, data []byte) error {
	return w.enc.Encode(document{Kind: kindFile, File: &FileRecord{Name: name, Data: data}})
}

// Commit 写入结束标记。没有这个标记的流是废品。
func (w *Writer) Commit() error {
	return w.enc.Encode(document{Kind: kindCommit})
}

// -----------------------------------------------------------------------------
// Reader
// -----------------------------------------------------------------------------

// Reader 按协议顺序读一条流：ReadMeta 一次，然后循环 Next 直到 io.EOF
type Reader struct {
	dec       *cbor.Decoder
	metaRead  bool
	committed bool
}

func NewReader(r io.Reader) *Reader {
	return &Reader{dec: cbor.NewDecoder(r)}
}

// ReadMeta 读包头文档
func (r *Reader) ReadMeta() (*PackageMeta, error) {
	if r.metaRead {
		return nil, fmt.Errorf("%w: meta read twice", ErrBadStream)
	}
	var doc document
	if err := r.dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrTruncated
		}
		return nil, fmt.Errorf("failed to decode stream header: %w", err)
	}
	if doc.Kind != kindMeta || doc.Meta == nil {
		return nil, fmt.Errorf("%w: expected meta document, got %q", ErrBadStream, doc.Kind)
	}
	if doc.Meta.Name == "" {
		return nil, fmt.Errorf("%w: empty package name", ErrBadStream)
	}
	r.metaRead = true
	return doc.Meta, nil
}

// Next 返回下一个文件记录
// 读到 commit 标记时返回 io.EOF；在标记前遇到物理 EOF 返回 ErrTruncated。
func (r *Reader) Next() (*FileRecord, error) {
	if !r.metaRead {
		return nil, fmt.Errorf("%w: ReadMeta must be called first", ErrBadStream)
	}
	if r.committed {
		return nil, io.EOF
	}

	var doc document
	if err := r.dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrTruncated
		}
		return nil, fmt.Errorf("failed to decode stream document: %w", err)
	}

	switch doc.Kind {
	case kindFile:
		if doc.File == nil {
			return nil, fmt.Errorf("%w: file document without payload", ErrBadStream)
		}
		return doc.File, nil
	case kindCommit:
		r.committed = true
		return nil, io.EOF
	default:
		return nil, fmt.Errorf("%w: unexpected document %q", ErrBadStream, doc.Kind)
	}
}

// Committed 报告是否见到了结束标记
func (r *Reader) Committed() bool { return r.committed }
