// Package logsource opens execution logs for scanning.
//
// Logs may be plain text, gzip or zstd compressed; compression is detected
// from the leading magic bytes rather than the file name. The decoded stream
// has any UTF-8 byte order mark removed and invalid bytes replaced with U+FFFD.
package logsource

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	triageerrors "sastriage/internal/errors"
)

// Compression identifies how a log file is encoded on disk.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Source is an open, decoded log stream.
type Source struct {
	Path        string
	Compression Compression

	r       io.Reader
	closers []io.Closer
}

// Read implements io.Reader over the decoded text.
func (s *Source) Read(p []byte) (int, error) {
	return s.r.Read(p)
}

// Close releases the decompressor and the underlying file.
func (s *Source) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open opens the log at path. A missing file yields a LOG_NOT_FOUND error;
// any other failure to open or decode the header yields LOG_UNREADABLE.
func Open(path string) (*Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, triageerrors.NewTriageError(triageerrors.LogNotFound,
				"log file "+path+" does not exist", err)
		}
		return nil, triageerrors.NewTriageError(triageerrors.LogUnreadable, "cannot stat "+path, err)
	}
	if info.IsDir() {
		return nil, triageerrors.NewTriageError(triageerrors.LogUnreadable, path+" is a directory", nil)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, triageerrors.NewTriageError(triageerrors.LogUnreadable, "cannot open "+path, err)
	}

	src, err := wrap(f)
	if err != nil {
		_ = f.Close()
		return nil, triageerrors.NewTriageError(triageerrors.LogUnreadable, "cannot decode "+path, err)
	}
	src.Path = path
	return src, nil
}

// NewReader decodes an already open stream. Closing the returned Source
// closes rc.
func NewReader(rc io.ReadCloser) (*Source, error) {
	return wrap(rc)
}

func wrap(rc io.ReadCloser) (*Source, error) {
	src := &Source{Compression: CompressionNone, closers: []io.Closer{rc}}

	br := bufio.NewReader(rc)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	var r io.Reader = br
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		src.Compression = CompressionGzip
		src.closers = append(src.closers, zr)
		r = zr
	case bytes.HasPrefix(head, zstdMagic):
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, err
		}
		zr := dec.IOReadCloser()
		src.Compression = CompressionZstd
		src.closers = append(src.closers, zr)
		r = zr
	}

	src.r = transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
	return src, nil
}
