package torrentfile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/zeebo/bencode"

	"github.com/l3uddz/delugetools/value"
)

var (
	ErrNoInfo = errors.New("metadata has no info dictionary")
	ErrNoName = errors.New("metadata has no info name")
)

// File is a local .torrent file and its decoded metadata.
type File struct {
	Path string
	Data []byte
	Meta value.Value

	// Name is info.name exactly as stored in the file.
	Name []byte
	// Size is the total payload size declared by the metadata.
	Size int64
	// Files is the number of payload files.
	Files int
}

func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read torrent: %w", err)
	}

	return Parse(path, data)
}

func Parse(path string, data []byte) (*File, error) {
	var decoded interface{}
	if err := bencode.DecodeBytes(data, &decoded); err != nil {
		return nil, fmt.Errorf("decode torrent: %v: %w", path, err)
	}

	meta := value.From(decoded)
	info := meta.Get("info")
	if info.Kind() != value.Map {
		return nil, fmt.Errorf("%v: %w", path, ErrNoInfo)
	}

	name, ok := info.Get("name").Raw()
	if !ok {
		return nil, fmt.Errorf("%v: %w", path, ErrNoName)
	}

	return &File{
		Path:  path,
		Data:  data,
		Meta:  meta,
		Name:  name,
		Size:  payloadSize(info),
		Files: fileCount(info),
	}, nil
}

// FileName is the base name sent to the daemon alongside the contents.
func (f *File) FileName() string {
	return filepath.Base(f.Path)
}

// DisplayName renders Name for logs, quoting it when it is not valid text.
func (f *File) DisplayName() string {
	return value.OfString(string(f.Name)).String()
}

// Announce returns the primary announce url, if any.
func (f *File) Announce() string {
	if s, ok := f.Meta.Get("announce").Text(); ok {
		return s
	}
	return ""
}

func payloadSize(info value.Value) int64 {
	// single file
	if length, ok := info.Get("length").Int(); ok {
		return length
	}

	// multi file
	var size int64
	for _, f := range info.Get("files").List() {
		if length, ok := f.Get("length").Int(); ok {
			size += length
		}
	}

	return size
}

func fileCount(info value.Value) int {
	if files := info.Get("files"); files.Kind() == value.List {
		return files.Len()
	}
	return 1
}
