// Package zarr implements the subset of the Zarr v2 directory format that
// the segmentation pipeline needs: groups, chunked N-dimensional arrays of
// float32/uint8/int32, zlib compression, and JSON attributes. It is not a
// general Zarr implementation; consolidated metadata, filters, and Fortran
// order are out of scope.
package zarr

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zlib"
)

// Supported dtype strings (NumPy typestr notation, little-endian).
const (
	DtypeFloat32 = "<f4"
	DtypeUint8   = "|u1"
	DtypeInt32   = "<i4"
)

var dtypeSize = map[string]int{
	DtypeFloat32: 4,
	DtypeUint8:   1,
	DtypeInt32:   4,
}

// compressor mirrors the numcodecs codec config stored in .zarray.
type compressor struct {
	ID    string `json:"id"`
	Level int    `json:"level,omitempty"`
}

// arrayMeta is the .zarray document.
type arrayMeta struct {
	Shape      []int       `json:"shape"`
	Chunks     []int       `json:"chunks"`
	Dtype      string      `json:"dtype"`
	Compressor *compressor `json:"compressor"`
	FillValue  interface{} `json:"fill_value"`
	Order      string      `json:"order"`
	Filters    interface{} `json:"filters"`
	ZarrFormat int         `json:"zarr_format"`
}

// Array is a chunked on-disk array rooted at a directory.
type Array struct {
	dir      string
	meta     arrayMeta
	elemSize int
}

// CreateGroup creates (or reuses) a Zarr group directory.
func CreateGroup(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create zarr group: %w", err)
	}
	doc := []byte("{\"zarr_format\": 2}")
	if err := os.WriteFile(filepath.Join(dir, ".zgroup"), doc, 0o644); err != nil {
		return fmt.Errorf("write .zgroup: %w", err)
	}
	return nil
}

// IsGroup reports whether dir holds a Zarr group.
func IsGroup(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".zgroup"))
	return err == nil
}

// Create makes a new array at dir with zlib-compressed chunks. Existing
// chunk data at the path is not removed; callers own directory hygiene.
func Create(dir string, shape, chunks []int, dtype string) (*Array, error) {
	size, ok := dtypeSize[dtype]
	if !ok {
		return nil, fmt.Errorf("unsupported zarr dtype %q", dtype)
	}
	if len(shape) == 0 || len(shape) != len(chunks) {
		return nil, fmt.Errorf("shape %v and chunks %v must be non-empty and equal rank", shape, chunks)
	}
	for d := range shape {
		if shape[d] <= 0 || chunks[d] <= 0 {
			return nil, fmt.Errorf("non-positive extent in shape %v chunks %v", shape, chunks)
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create zarr array dir: %w", err)
	}

	a := &Array{
		dir: dir,
		meta: arrayMeta{
			Shape:      append([]int(nil), shape...),
			Chunks:     append([]int(nil), chunks...),
			Dtype:      dtype,
			Compressor: &compressor{ID: "zlib", Level: 5},
			FillValue:  0,
			Order:      "C",
			Filters:    nil,
			ZarrFormat: 2,
		},
		elemSize: size,
	}
	if err := a.writeMeta(); err != nil {
		return nil, err
	}
	return a, nil
}

// Open reads an existing array's metadata.
func Open(dir string) (*Array, error) {
	raw, err := os.ReadFile(filepath.Join(dir, ".zarray"))
	if err != nil {
		return nil, fmt.Errorf("open zarr array: %w", err)
	}
	var meta arrayMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("parse .zarray: %w", err)
	}
	size, ok := dtypeSize[meta.Dtype]
	if !ok {
		return nil, fmt.Errorf("unsupported zarr dtype %q", meta.Dtype)
	}
	if meta.Order != "C" {
		return nil, fmt.Errorf("unsupported zarr order %q", meta.Order)
	}
	if meta.Compressor != nil && meta.Compressor.ID != "zlib" {
		return nil, fmt.Errorf("unsupported zarr compressor %q", meta.Compressor.ID)
	}
	if len(meta.Shape) == 0 || len(meta.Shape) != len(meta.Chunks) {
		return nil, fmt.Errorf("inconsistent zarr metadata: shape %v chunks %v", meta.Shape, meta.Chunks)
	}
	return &Array{dir: dir, meta: meta, elemSize: size}, nil
}

func (a *Array) writeMeta() error {
	doc, err := json.MarshalIndent(&a.meta, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal .zarray: %w", err)
	}
	if err := os.WriteFile(filepath.Join(a.dir, ".zarray"), doc, 0o644); err != nil {
		return fmt.Errorf("write .zarray: %w", err)
	}
	return nil
}

// Shape returns the array shape.
func (a *Array) Shape() []int { return append([]int(nil), a.meta.Shape...) }

// Chunks returns the chunk shape.
func (a *Array) Chunks() []int { return append([]int(nil), a.meta.Chunks...) }

// Dtype returns the dtype string.
func (a *Array) Dtype() string { return a.meta.Dtype }

// Len returns the total element count.
func (a *Array) Len() int {
	n := 1
	for _, s := range a.meta.Shape {
		n *= s
	}
	return n
}

// SetAttrs writes the .zattrs document next to the array or group at dir.
func SetAttrs(dir string, attrs map[string]interface{}) error {
	doc, err := json.MarshalIndent(attrs, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal .zattrs: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".zattrs"), doc, 0o644); err != nil {
		return fmt.Errorf("write .zattrs: %w", err)
	}
	return nil
}

// Attrs reads the .zattrs document at dir. A missing file yields an empty map.
func Attrs(dir string) (map[string]interface{}, error) {
	raw, err := os.ReadFile(filepath.Join(dir, ".zattrs"))
	if os.IsNotExist(err) {
		return map[string]interface{}{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read .zattrs: %w", err)
	}
	var attrs map[string]interface{}
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, fmt.Errorf("parse .zattrs: %w", err)
	}
	return attrs, nil
}

// chunkName renders the dot-separated chunk key, e.g. "0.2.1".
func chunkName(ci []int) string {
	parts := make([]string, len(ci))
	for i, c := range ci {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ".")
}

// chunkGrid returns the number of chunks along each dimension.
func (a *Array) chunkGrid() []int {
	grid := make([]int, len(a.meta.Shape))
	for d := range grid {
		grid[d] = (a.meta.Shape[d] + a.meta.Chunks[d] - 1) / a.meta.Chunks[d]
	}
	return grid
}

// strides returns C-order byte strides for the given dims.
func (a *Array) strides(dims []int) []int {
	s := make([]int, len(dims))
	acc := a.elemSize
	for d := len(dims) - 1; d >= 0; d-- {
		s[d] = acc
		acc *= dims[d]
	}
	return s
}

// copyChunk moves bytes between the full C-order buffer and one chunk
// buffer. Edge chunks copy only the in-bounds extent; the rest of the chunk
// buffer keeps its fill (zeros on write, untouched on read).
func (a *Array) copyChunk(full, chunk []byte, ci []int, toChunk bool) {
	ndim := len(a.meta.Shape)
	fullStride := a.strides(a.meta.Shape)
	chunkStride := a.strides(a.meta.Chunks)

	origin := make([]int, ndim)
	extent := make([]int, ndim)
	for d := 0; d < ndim; d++ {
		origin[d] = ci[d] * a.meta.Chunks[d]
		extent[d] = a.meta.Chunks[d]
		if rest := a.meta.Shape[d] - origin[d]; rest < extent[d] {
			extent[d] = rest
		}
	}

	var rec func(dim, fullOff, chunkOff int)
	rec = func(dim, fullOff, chunkOff int) {
		if dim == ndim-1 {
			n := extent[dim] * a.elemSize
			f := fullOff + origin[dim]*fullStride[dim]
			if toChunk {
				copy(chunk[chunkOff:chunkOff+n], full[f:f+n])
			} else {
				copy(full[f:f+n], chunk[chunkOff:chunkOff+n])
			}
			return
		}
		for i := 0; i < extent[dim]; i++ {
			rec(dim+1,
				fullOff+(origin[dim]+i)*fullStride[dim],
				chunkOff+i*chunkStride[dim])
		}
	}
	rec(0, 0, 0)
}

func (a *Array) chunkByteLen() int {
	n := a.elemSize
	for _, c := range a.meta.Chunks {
		n *= c
	}
	return n
}

// PutBytes writes the full array from a C-order byte buffer.
func (a *Array) PutBytes(full []byte) error {
	want := a.Len() * a.elemSize
	if len(full) != want {
		return fmt.Errorf("buffer length %d does not match array size %d", len(full), want)
	}

	grid := a.chunkGrid()
	ci := make([]int, len(grid))
	chunk := make([]byte, a.chunkByteLen())
	for {
		for i := range chunk {
			chunk[i] = 0
		}
		a.copyChunk(full, chunk, ci, true)
		if err := a.writeChunk(ci, chunk); err != nil {
			return err
		}
		if !nextChunk(ci, grid) {
			return nil
		}
	}
}

// GetBytes reads the full array into a C-order byte buffer. Missing chunks
// read as the fill value (zero).
func (a *Array) GetBytes() ([]byte, error) {
	full := make([]byte, a.Len()*a.elemSize)
	grid := a.chunkGrid()
	ci := make([]int, len(grid))
	for {
		chunk, err := a.readChunk(ci)
		if err != nil {
			return nil, err
		}
		if chunk != nil {
			a.copyChunk(full, chunk, ci, false)
		}
		if !nextChunk(ci, grid) {
			return full, nil
		}
	}
}

// nextChunk advances a C-order chunk index; false when exhausted.
func nextChunk(ci, grid []int) bool {
	for d := len(ci) - 1; d >= 0; d-- {
		ci[d]++
		if ci[d] < grid[d] {
			return true
		}
		ci[d] = 0
	}
	return false
}

func (a *Array) writeChunk(ci []int, raw []byte) error {
	var buf bytes.Buffer
	if a.meta.Compressor != nil {
		zw, err := zlib.NewWriterLevel(&buf, a.meta.Compressor.Level)
		if err != nil {
			return fmt.Errorf("zlib writer: %w", err)
		}
		if _, err := zw.Write(raw); err != nil {
			return fmt.Errorf("compress chunk %s: %w", chunkName(ci), err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("compress chunk %s: %w", chunkName(ci), err)
		}
	} else {
		buf.Write(raw)
	}
	path := filepath.Join(a.dir, chunkName(ci))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write chunk %s: %w", chunkName(ci), err)
	}
	return nil
}

// readChunk returns nil (no error) for chunks that were never written.
func (a *Array) readChunk(ci []int) ([]byte, error) {
	path := filepath.Join(a.dir, chunkName(ci))
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open chunk %s: %w", chunkName(ci), err)
	}
	defer f.Close()

	var r io.Reader = f
	if a.meta.Compressor != nil {
		zr, err := zlib.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("decompress chunk %s: %w", chunkName(ci), err)
		}
		defer zr.Close()
		r = zr
	}

	raw := make([]byte, a.chunkByteLen())
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("read chunk %s: %w", chunkName(ci), err)
	}
	return raw, nil
}

// Typed full-array accessors.

// PutFloat32s writes the full array; dtype must be <f4.
func (a *Array) PutFloat32s(data []float32) error {
	if a.meta.Dtype != DtypeFloat32 {
		return fmt.Errorf("dtype %s is not %s", a.meta.Dtype, DtypeFloat32)
	}
	buf := make([]byte, len(data)*4)
	for i, v := range data {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return a.PutBytes(buf)
}

// Float32s reads the full array; dtype must be <f4.
func (a *Array) Float32s() ([]float32, error) {
	if a.meta.Dtype != DtypeFloat32 {
		return nil, fmt.Errorf("dtype %s is not %s", a.meta.Dtype, DtypeFloat32)
	}
	buf, err := a.GetBytes()
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(buf)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out, nil
}

// PutUint8s writes the full array; dtype must be |u1.
func (a *Array) PutUint8s(data []uint8) error {
	if a.meta.Dtype != DtypeUint8 {
		return fmt.Errorf("dtype %s is not %s", a.meta.Dtype, DtypeUint8)
	}
	return a.PutBytes(data)
}

// Uint8s reads the full array; dtype must be |u1.
func (a *Array) Uint8s() ([]uint8, error) {
	if a.meta.Dtype != DtypeUint8 {
		return nil, fmt.Errorf("dtype %s is not %s", a.meta.Dtype, DtypeUint8)
	}
	return a.GetBytes()
}

// PutInt32s writes the full array; dtype must be <i4.
func (a *Array) PutInt32s(data []int32) error {
	if a.meta.Dtype != DtypeInt32 {
		return fmt.Errorf("dtype %s is not %s", a.meta.Dtype, DtypeInt32)
	}
	buf := make([]byte, len(data)*4)
	for i, v := range data {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(v))
	}
	return a.PutBytes(buf)
}

// Int32s reads the full array; dtype must be <i4.
func (a *Array) Int32s() ([]int32, error) {
	if a.meta.Dtype != DtypeInt32 {
		return nil, fmt.Errorf("dtype %s is not %s", a.meta.Dtype, DtypeInt32)
	}
	buf, err := a.GetBytes()
	if err != nil {
		return nil, err
	}
	out := make([]int32, len(buf)/4)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out, nil
}

// Section accessors address one index along the first axis. They require
// the array to be chunked with chunks[0] == 1 and chunks[d] == shape[d] for
// the remaining dimensions, so a section is exactly one chunk. Every stack
// array in this tool uses that layout.

func (a *Array) sectionable() error {
	if a.meta.Chunks[0] != 1 {
		return fmt.Errorf("array is not section-chunked: chunks %v", a.meta.Chunks)
	}
	for d := 1; d < len(a.meta.Shape); d++ {
		if a.meta.Chunks[d] != a.meta.Shape[d] {
			return fmt.Errorf("array is not section-chunked: chunks %v shape %v", a.meta.Chunks, a.meta.Shape)
		}
	}
	return nil
}

func (a *Array) sectionIndex(i int) ([]int, error) {
	if err := a.sectionable(); err != nil {
		return nil, err
	}
	if i < 0 || i >= a.meta.Shape[0] {
		return nil, fmt.Errorf("section %d out of range [0,%d)", i, a.meta.Shape[0])
	}
	ci := make([]int, len(a.meta.Shape))
	ci[0] = i
	return ci, nil
}

// PutSectionBytes writes section i from a C-order byte buffer.
func (a *Array) PutSectionBytes(i int, raw []byte) error {
	ci, err := a.sectionIndex(i)
	if err != nil {
		return err
	}
	if len(raw) != a.chunkByteLen() {
		return fmt.Errorf("section buffer length %d, want %d", len(raw), a.chunkByteLen())
	}
	return a.writeChunk(ci, raw)
}

// GetSectionBytes reads section i; never-written sections read as zeros.
func (a *Array) GetSectionBytes(i int) ([]byte, error) {
	ci, err := a.sectionIndex(i)
	if err != nil {
		return nil, err
	}
	raw, err := a.readChunk(ci)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		raw = make([]byte, a.chunkByteLen())
	}
	return raw, nil
}

// PutSectionFloat32s writes section i of a <f4 stack.
func (a *Array) PutSectionFloat32s(i int, data []float32) error {
	if a.meta.Dtype != DtypeFloat32 {
		return fmt.Errorf("dtype %s is not %s", a.meta.Dtype, DtypeFloat32)
	}
	buf := make([]byte, len(data)*4)
	for j, v := range data {
		binary.LittleEndian.PutUint32(buf[j*4:], math.Float32bits(v))
	}
	return a.PutSectionBytes(i, buf)
}

// GetSectionFloat32s reads section i of a <f4 stack.
func (a *Array) GetSectionFloat32s(i int) ([]float32, error) {
	if a.meta.Dtype != DtypeFloat32 {
		return nil, fmt.Errorf("dtype %s is not %s", a.meta.Dtype, DtypeFloat32)
	}
	raw, err := a.GetSectionBytes(i)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(raw)/4)
	for j := range out {
		out[j] = math.Float32frombits(binary.LittleEndian.Uint32(raw[j*4:]))
	}
	return out, nil
}

// PutSectionUint8s writes section i of a |u1 stack.
func (a *Array) PutSectionUint8s(i int, data []uint8) error {
	if a.meta.Dtype != DtypeUint8 {
		return fmt.Errorf("dtype %s is not %s", a.meta.Dtype, DtypeUint8)
	}
	return a.PutSectionBytes(i, data)
}

// GetSectionUint8s reads section i of a |u1 stack.
func (a *Array) GetSectionUint8s(i int) ([]uint8, error) {
	if a.meta.Dtype != DtypeUint8 {
		return nil, fmt.Errorf("dtype %s is not %s", a.meta.Dtype, DtypeUint8)
	}
	return a.GetSectionBytes(i)
}

// PutSectionInt32s writes section i of a <i4 stack.
func (a *Array) PutSectionInt32s(i int, data []int32) error {
	if a.meta.Dtype != DtypeInt32 {
		return fmt.Errorf("dtype %s is not %s", a.meta.Dtype, DtypeInt32)
	}
	buf := make([]byte, len(data)*4)
	for j, v := range data {
		binary.LittleEndian.PutUint32(buf[j*4:], uint32(v))
	}
	return a.PutSectionBytes(i, buf)
}

// GetSectionInt32s reads section i of a <i4 stack.
func (a *Array) GetSectionInt32s(i int) ([]int32, error) {
	if a.meta.Dtype != DtypeInt32 {
		return nil, fmt.Errorf("dtype %s is not %s", a.meta.Dtype, DtypeInt32)
	}
	raw, err := a.GetSectionBytes(i)
	if err != nil {
		return nil, err
	}
	out := make([]int32, len(raw)/4)
	for j := range out {
		out[j] = int32(binary.LittleEndian.Uint32(raw[j*4:]))
	}
	return out, nil
}
