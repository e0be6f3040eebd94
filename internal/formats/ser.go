package formats

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

/*
FEI SER (TIA Emispec) Series Parser

SER files hold one or more data elements recorded by FEI's TIA acquisition
suite. Everything is little-endian. The layout is:

├── Series header
│   ├── int16 ByteOrder (0x4949), int16 SeriesID (0x0197), int16 SeriesVersion
│   ├── int32 DataTypeID   - 0x4120 = 1D spectra, 0x4122 = 2D images
│   ├── int32 TagTypeID, int32 TotalElements, int32 ValidElements
│   ├── OffsetArrayOffset  - int32 before version 0x220, int64 from 0x220
│   └── int32 NumberDimensions + per-dimension calibration records
├── Data offset array (TotalElements entries, int32/int64 per version)
└── Data elements, each with X/Y calibration, a data type tag, and the pixels

Only 2D image series are accepted here; spectra are out of scope.
*/

const (
	serByteOrder  = 0x4949
	serSeriesID   = 0x0197
	serVersion220 = 0x0220
	serDataType2D = 0x4122
)

// SER element data type tags.
const (
	serUint8   = 1
	serUint16  = 2
	serUint32  = 3
	serInt8    = 4
	serInt16   = 5
	serInt32   = 6
	serFloat32 = 7
	serFloat64 = 8
)

// serCursor is a bounds-checked little-endian reader over an in-memory file.
type serCursor struct {
	buf []byte
	off int
	err error
}

func (c *serCursor) take(n int) []byte {
	if c.err != nil {
		return nil
	}
	if c.off+n > len(c.buf) {
		c.err = fmt.Errorf("truncated ser file at offset %d (need %d bytes)", c.off, n)
		return nil
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b
}

func (c *serCursor) i16() int16 {
	b := c.take(2)
	if b == nil {
		return 0
	}
	return int16(binary.LittleEndian.Uint16(b))
}

func (c *serCursor) i32() int32 {
	b := c.take(4)
	if b == nil {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(b))
}

func (c *serCursor) i64() int64 {
	b := c.take(8)
	if b == nil {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(b))
}

func (c *serCursor) f64() float64 {
	b := c.take(8)
	if b == nil {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

func (c *serCursor) skip(n int) { c.take(n) }

func (c *serCursor) seek(off int64) {
	if c.err != nil {
		return
	}
	if off < 0 || off > int64(len(c.buf)) {
		c.err = fmt.Errorf("ser offset %d out of range", off)
		return
	}
	c.off = int(off)
}

// LoadSER reads the first valid 2D element of a SER series.
func LoadSER(path string) (*Image, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open ser: %w", err)
	}

	c := &serCursor{buf: raw}

	if bo := c.i16(); bo != serByteOrder {
		return nil, fmt.Errorf("not a ser file: byte order 0x%04x", uint16(bo))
	}
	if id := c.i16(); id != serSeriesID {
		return nil, fmt.Errorf("not a ser file: series id 0x%04x", uint16(id))
	}
	version := c.i16()

	dataTypeID := c.i32()
	c.i32() // TagTypeID
	total := c.i32()
	valid := c.i32()

	if dataTypeID != serDataType2D {
		return nil, fmt.Errorf("ser series holds 1D data (type 0x%04x), expected 2D images", dataTypeID)
	}
	if valid <= 0 || total <= 0 {
		return nil, fmt.Errorf("ser series has no valid elements (%d/%d)", valid, total)
	}

	var offsetArrayOffset int64
	if version >= serVersion220 {
		offsetArrayOffset = c.i64()
	} else {
		offsetArrayOffset = int64(c.i32())
	}

	// Dimension records only describe the series axes; skip them.
	nDims := c.i32()
	for i := int32(0); i < nDims; i++ {
		c.i32() // DimensionSize
		c.f64() // CalibrationOffset
		c.f64() // CalibrationDelta
		c.i32() // CalibrationElement
		descLen := c.i32()
		c.skip(int(descLen))
		unitsLen := c.i32()
		c.skip(int(unitsLen))
	}
	if c.err != nil {
		return nil, c.err
	}

	c.seek(offsetArrayOffset)
	var dataOffset int64
	if version >= serVersion220 {
		dataOffset = c.i64()
	} else {
		dataOffset = int64(c.i32())
	}
	if c.err != nil {
		return nil, c.err
	}

	return readSERElement(c, dataOffset)
}

func readSERElement(c *serCursor, off int64) (*Image, error) {
	c.seek(off)

	c.f64() // CalibrationOffsetX
	deltaX := c.f64()
	c.i32() // CalibrationElementX
	c.f64() // CalibrationOffsetY
	c.f64() // CalibrationDeltaY
	c.i32() // CalibrationElementY

	dtype := c.i16()
	sizeX := int(c.i32())
	sizeY := int(c.i32())
	if c.err != nil {
		return nil, c.err
	}
	if sizeX <= 0 || sizeY <= 0 {
		return nil, fmt.Errorf("invalid ser element size %dx%d", sizeX, sizeY)
	}

	n := sizeX * sizeY
	im := &Image{
		W: sizeX,
		H: sizeY,
		// CalibrationDelta is meters per pixel.
		PixelSize: deltaX * 1e10,
		Data:      make([]float32, n),
	}

	var elemSize int
	switch dtype {
	case serUint8, serInt8:
		elemSize = 1
	case serUint16, serInt16:
		elemSize = 2
	case serUint32, serInt32, serFloat32:
		elemSize = 4
	case serFloat64:
		elemSize = 8
	default:
		return nil, fmt.Errorf("unsupported ser data type %d", dtype)
	}

	b := c.take(n * elemSize)
	if c.err != nil {
		return nil, c.err
	}

	for i := 0; i < n; i++ {
		switch dtype {
		case serUint8:
			im.Data[i] = float32(b[i])
		case serInt8:
			im.Data[i] = float32(int8(b[i]))
		case serUint16:
			im.Data[i] = float32(binary.LittleEndian.Uint16(b[i*2:]))
		case serInt16:
			im.Data[i] = float32(int16(binary.LittleEndian.Uint16(b[i*2:])))
		case serUint32:
			im.Data[i] = float32(binary.LittleEndian.Uint32(b[i*4:]))
		case serInt32:
			im.Data[i] = float32(int32(binary.LittleEndian.Uint32(b[i*4:])))
		case serFloat32:
			im.Data[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
		case serFloat64:
			im.Data[i] = float32(math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:])))
		}
	}

	return im, nil
}
