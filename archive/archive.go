// Package archive stores projects in SQLite files.
//
// Tile pixels and terrain heights are stored in their hardware formats, map
// contents as compressed big-endian word blobs. Hash indices are never
// stored: they are rebuilt on load.
//
// Note: User must properly initialize the sqlite3 library generic driver
// (e.g. import _ "github.com/mattn/go-sqlite3") before using this package.
package archive

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/eak1mov/go-beehive/project"
)

var (
	ErrInvalidArchive = errors.New("beehive: invalid archive")
	ErrInvalidVersion = errors.New("beehive: unsupported archive version")

	ErrUnsupportedCompression = errors.New("beehive: unsupported compression")
)

const version = "1"

const schema = `
	CREATE TABLE metadata (name TEXT PRIMARY KEY, value TEXT);
	CREATE TABLE tiles (id INTEGER PRIMARY KEY, palette INTEGER, pixels BLOB);
	CREATE TABLE terrain (id INTEGER PRIMARY KEY, heights BLOB);
	CREATE TABLE stamps (id INTEGER PRIMARY KEY, name TEXT, width INTEGER, height INTEGER, cells BLOB);
	CREATE TABLE maps (name TEXT PRIMARY KEY, width INTEGER, height INTEGER, cells BLOB, collision BLOB);
	CREATE TABLE placements (map TEXT, seq INTEGER, stamp INTEGER, x INTEGER, y INTEGER, flags INTEGER);
	CREATE TABLE paths (map TEXT, seq INTEGER, flags INTEGER, layer INTEGER, generate_width INTEGER, points BLOB);
`

type Compression uint8

const (
	CompressionUnknown Compression = iota
	CompressionNone
	CompressionGzip
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	}
	return "unknown"
}

func parseCompression(s string) Compression {
	for _, c := range []Compression{CompressionNone, CompressionGzip} {
		if c.String() == s {
			return c
		}
	}
	return CompressionUnknown
}

type config struct {
	Compression Compression
	Logger      *slog.Logger
	Project     []project.Option
}

type Option func(*config)

// WithCompression selects how map blobs are compressed by Save.
func WithCompression(c Compression) Option {
	return func(cfg *config) { cfg.Compression = c }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.Logger = logger }
}

// WithProjectOptions passes options to the project built by Load.
func WithProjectOptions(opts ...project.Option) Option {
	return func(c *config) { c.Project = append(c.Project, opts...) }
}

func newConfig(opts []Option) config {
	c := config{
		Compression: CompressionGzip,
		Logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// compress encodes a map or stamp blob for storage.
func compress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionGzip:
		var buffer bytes.Buffer
		writer, err := gzip.NewWriterLevel(&buffer, gzip.BestCompression)
		if err != nil {
			return nil, err
		}
		if _, err := writer.Write(data); err != nil {
			return nil, errors.Join(err, writer.Close())
		}
		if err := writer.Close(); err != nil {
			return nil, err
		}
		return buffer.Bytes(), nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnsupportedCompression, c)
}

// decompress decodes a stored blob. Undecodable data makes the archive
// invalid.
func decompress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionGzip:
		reader, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidArchive, err)
		}
		defer reader.Close()
		result, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidArchive, err)
		}
		return result, nil
	}
	return nil, fmt.Errorf("%w: %w: %v", ErrInvalidArchive, ErrUnsupportedCompression, c)
}
