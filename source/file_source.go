package source

import (
	"bytes"
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
)

type FileSourceOptions struct {
	Path string `cfg:"path" validate:"required"`
}

type FileSource struct {
	path string
}

func NewFileSourceWithOptions(options *FileSourceOptions) (*FileSource, error) {
	if options == nil || options.Path == "" {
		return nil, errors.New("path is required")
	}
	return &FileSource{path: options.Path}, nil
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string {
	return s.path
}

func (s *FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	return os.Open(s.path)
}

type BytesSourceOptions struct {
	Name    string `cfg:"name" def:"<bytes>"`
	Content string `cfg:"content"`
}

// BytesSource 内存中的配置文本
type BytesSource struct {
	name string
	data []byte
}

func NewBytesSourceWithOptions(options *BytesSourceOptions) *BytesSource {
	if options == nil {
		options = &BytesSourceOptions{}
	}
	name := options.Name
	if name == "" {
		name = "<bytes>"
	}
	return &BytesSource{name: name, data: []byte(options.Content)}
}

func NewBytesSource(name string, data []byte) *BytesSource {
	return &BytesSource{name: name, data: data}
}

func (s *BytesSource) Name() string {
	return s.name
}

func (s *BytesSource) Open(ctx context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}
