// Package resultstore reads and writes ResultSet files.
//
// Files ending in .json use the ActivityNet submission layout. Files ending
// in .pb hold the same document as a google.protobuf.Struct.
package resultstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	uap "github.com/jamesainslie/go-uap"
)

// ErrUnsupportedFormat indicates a file extension with no known encoding.
var ErrUnsupportedFormat = errors.New("resultstore: unsupported format")

// Format is a ResultSet file encoding.
type Format string

const (
	JSON     Format = "json"
	Protobuf Format = "pb"
)

// Ext returns the file extension for f, including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case JSON, Protobuf:
		return Format(name), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// FormatOf infers the encoding from a file name.
func FormatOf(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Exists reports whether a regular file exists at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Write encodes rs to path. The file is written to a temporary name and
// renamed, so readers never observe a partial ResultSet.
func Write(path string, rs *uap.ResultSet) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}

	data, err := Marshal(rs, format)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create result dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }() // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write results: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close results: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename results: %w", err)
	}
	return nil
}

// Read decodes the ResultSet stored at path.
func Read(path string) (*uap.ResultSet, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}

	rs, err := Unmarshal(data, format)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return rs, nil
}

// Marshal encodes rs in the given format.
func Marshal(rs *uap.ResultSet, format Format) ([]byte, error) {
	doc, err := json.Marshal(rs)
	if err != nil {
		return nil, fmt.Errorf("encode results: %w", err)
	}

	switch format {
	case JSON:
		return doc, nil
	case Protobuf:
		st := &structpb.Struct{}
		if err := protojson.Unmarshal(doc, st); err != nil {
			return nil, fmt.Errorf("convert results to struct: %w", err)
		}
		return proto.MarshalOptions{Deterministic: true}.Marshal(st)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// Unmarshal decodes a ResultSet in the given format.
func Unmarshal(data []byte, format Format) (*uap.ResultSet, error) {
	switch format {
	case JSON:
	case Protobuf:
		st := &structpb.Struct{}
		if err := proto.Unmarshal(data, st); err != nil {
			return nil, fmt.Errorf("parse struct: %w", err)
		}
		doc, err := protojson.Marshal(st)
		if err != nil {
			return nil, fmt.Errorf("convert struct: %w", err)
		}
		data = doc
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	rs := uap.NewResultSet()
	if err := json.Unmarshal(data, rs); err != nil {
		return nil, err
	}
	if rs.Results == nil {
		rs.Results = make(map[string][]uap.Proposal)
	}
	return rs, nil
}
