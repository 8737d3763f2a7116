package format

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed canvas.schema.json
var schemaSource string

var payloadSchema = jsonschema.MustCompileString("canvas.schema.json", schemaSource)

// Unmarshal parses and schema-checks a JSON payload. Structural problems are
// reported as ErrMalformedPayload; semantic checks happen in Decode.
func Unmarshal(data []byte) (*Payload, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if err := payloadSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return &p, nil
}

func Marshal(p *Payload) ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// Compression is chosen from the file extension.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZstd
	CompressionSnappy
)

func CompressionFor(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return CompressionGzip
	case ".zst":
		return CompressionZstd
	case ".sz":
		return CompressionSnappy
	}
	return CompressionNone
}

// ReadFile loads a payload, decompressing .gz, .zst and .sz files.
func ReadFile(path string) (*Payload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := readAll(f, CompressionFor(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	p, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return p, nil
}

func readAll(r io.Reader, c Compression) ([]byte, error) {
	switch c {
	case CompressionGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case CompressionSnappy:
		return io.ReadAll(snappy.NewReader(r))
	}
	return io.ReadAll(r)
}

// WriteFile stores a payload, compressing by extension. The file is written to
// a temporary name and renamed into place.
func WriteFile(path string, p *Payload) error {
	data, err := Marshal(p)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := writeAll(&buf, data, CompressionFor(path)); err != nil {
		return fmt.Errorf("compress %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func writeAll(w io.Writer, data []byte, c Compression) error {
	var zw io.WriteCloser
	switch c {
	case CompressionGzip:
		zw = gzip.NewWriter(w)
	case CompressionZstd:
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return err
		}
		zw = enc
	case CompressionSnappy:
		zw = snappy.NewBufferedWriter(w)
	default:
		_, err := w.Write(data)
		return err
	}
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// Fingerprint hashes the payload content independent of voxel entry order.
func Fingerprint(p *Payload) uint64 {
	if p == nil {
		return 0
	}
	c := *p
	c.Voxels = slices.Clone(p.Voxels)
	slices.Sort(c.Voxels)
	data, err := json.Marshal(&c)
	if err != nil {
		return 0
	}
	return xxhash.Sum64(data)
}
