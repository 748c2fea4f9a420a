// Package format turns dump results into a textual document and back. The
// document keeps the shape of the original tool's output: one record per
// region with a hex base address and hex-encoded bytes.
package format

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"regiondump/process/memory_map"
)

// ErrUnsupportedFormat is returned for an unknown format identifier
var ErrUnsupportedFormat = errors.New("unsupported output format")

// Record is one region in a document. Data is empty and Error set for a
// region that could not be read.
type Record struct {
	BaseAddress string `json:"base_address" yaml:"base_address"`
	Size        uint64 `json:"size" yaml:"size"`
	Protection  string `json:"protection" yaml:"protection"`
	Data        string `json:"data,omitempty" yaml:"data,omitempty"`
	Error       string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Document is the serialized form of one dump
type Document struct {
	PID              int      `json:"pid" yaml:"pid"`
	Name             string   `json:"name,omitempty" yaml:"name,omitempty"`
	Platform         string   `json:"platform" yaml:"platform"`
	EnumerationError string   `json:"enumeration_error,omitempty" yaml:"enumeration_error,omitempty"`
	Regions          []Record `json:"regions" yaml:"regions"`
}

func FormatAddress(addr uint64) string {
	return "0x" + strconv.FormatUint(addr, 16)
}

// ParseAddress accepts hex with or without a 0x prefix
func ParseAddress(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	addr, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("bad address %q: %w", s, err)
	}
	return addr, nil
}

// NewRecord encodes a region that was read successfully
func NewRecord(region memory_map.MemoryRegion, data []byte) Record {
	return Record{
		BaseAddress: FormatAddress(region.Address),
		Size:        region.Size,
		Protection:  region.Protection.String(),
		Data:        hex.EncodeToString(data),
	}
}

// FailedRecord encodes a region that could not be read
func FailedRecord(region memory_map.MemoryRegion, err error) Record {
	return Record{
		BaseAddress: FormatAddress(region.Address),
		Size:        region.Size,
		Protection:  region.Protection.String(),
		Error:       err.Error(),
	}
}

// Unreadable reports whether the record marks a failed read
func (r Record) Unreadable() bool {
	return r.Error != ""
}

// Region decodes the region descriptor of the record
func (r Record) Region() (memory_map.MemoryRegion, error) {
	addr, err := ParseAddress(r.BaseAddress)
	if err != nil {
		return memory_map.MemoryRegion{}, err
	}
	prot, err := memory_map.ParseProtection(r.Protection)
	if err != nil {
		return memory_map.MemoryRegion{}, err
	}

	region := memory_map.MemoryRegion{Address: addr, Size: r.Size, Protection: prot}
	if !region.Valid() {
		return memory_map.MemoryRegion{}, fmt.Errorf("invalid region %s", region)
	}
	return region, nil
}

// Bytes decodes the record data
func (r Record) Bytes() ([]byte, error) {
	data, err := hex.DecodeString(r.Data)
	if err != nil {
		return nil, fmt.Errorf("region %s: %w", r.BaseAddress, err)
	}
	if uint64(len(data)) > r.Size {
		return nil, fmt.Errorf("region %s: %d bytes of data for a %d byte region", r.BaseAddress, len(data), r.Size)
	}
	return data, nil
}

// Codec encodes and decodes documents in one format
type Codec interface {
	Name() string
	Extensions() []string
	Encode(w io.Writer, doc *Document) error
	Decode(r io.Reader) (*Document, error)
}

// DefaultFormat is used when no format is given
const DefaultFormat = "json"

var codecs = map[string]Codec{}

func register(c Codec) {
	codecs[c.Name()] = c
}

// Lookup returns the codec for a format identifier
func Lookup(name string) (Codec, error) {
	if name == "" {
		name = DefaultFormat
	}
	c, ok := codecs[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedFormat, name, strings.Join(Names(), ", "))
	}
	return c, nil
}

// ForPath picks the codec from a file name such as dump.yaml or dump.json.zst
func ForPath(path string) (Codec, error) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSuffix(path, ".zst")))
	for _, name := range Names() {
		for _, e := range codecs[name].Extensions() {
			if e == ext {
				return codecs[name], nil
			}
		}
	}
	return nil, fmt.Errorf("%w: cannot tell format of %q", ErrUnsupportedFormat, path)
}

// Names lists the registered format identifiers
func Names() []string {
	names := make([]string, 0, len(codecs))
	for name := range codecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
