package formats

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strconv"
	"unicode/utf16"
)

/*
Gatan DigitalMicrograph (DM3/DM4) Parser

DM files are a serialized tag tree. The tree structure (tag names, counts,
type descriptors) is big-endian; tag payloads are little-endian in practice
(a header flag says so). DM4 widens most counts and lengths from 32 to 64
bits and adds a per-tag byte count; otherwise the two versions share the
same shape.

FILE LAYOUT:
├── Header
│   ├── uint32 version (3 or 4)
│   ├── uint32/uint64 root length
│   └── uint32 endian flag (1 = little-endian payloads)
└── Root tag group
    ├── uint8 sorted, uint8 open
    ├── uint32/uint64 tag count
    └── Tag entries
        ├── uint8 kind (0x14 = nested group, 0x15 = data tag)
        ├── uint16 name length + name (may be empty; entries are positional)
        ├── [DM4] uint64 total bytes
        └── Data tags: "%%%%", info array (type descriptor), payload

TYPE DESCRIPTORS (info array):
- [T]                               simple scalar of type T
- [15, _, n, (_, T1) .. (_, Tn)]    struct with n fields
- [18, len]                         byte string
- [20, T, count]                    array of simple type
- [20, 15, ..., count]              array of structs

The image of interest lives under ImageList[i].ImageData: its "Data" array,
"Dimensions" group, and "Calibrations.Dimension[0]" scale/units. ImageList
usually holds a thumbnail first and the full image second, so the largest
Data array wins.

Payload type IDs: 2 int16, 3 int32, 4 uint16, 5 uint32, 6 float32,
7 float64, 8 bool, 9 char, 10 int8, 11 int64, 12 uint64.
*/

const (
	dmKindGroup = 0x14
	dmKindTag   = 0x15

	dmTypeStruct = 15
	dmTypeString = 18
	dmTypeArray  = 20
)

// dmSimpleSize maps simple payload type IDs to their byte size.
var dmSimpleSize = map[int64]int{
	2: 2, 3: 4, 4: 2, 5: 4, 6: 4, 7: 8, 8: 1, 9: 1, 10: 1, 11: 8, 12: 8,
}

// dmGroup is a parsed tag group. Unnamed entries get positional keys
// ("0", "1", ...) so lookups stay uniform.
type dmGroup map[string]interface{}

// dmValue is a parsed data tag. Exactly one field is populated depending on
// the payload shape; large non-Data arrays are skipped and appear as nil.
type dmValue struct {
	scalar *float64
	str    string
	arr    []float32
}

type dmParser struct {
	buf     []byte
	off     int
	version int
	dataLE  bool
	err     error
}

func (p *dmParser) fail(format string, args ...interface{}) {
	if p.err == nil {
		p.err = fmt.Errorf(format, args...)
	}
}

func (p *dmParser) take(n int) []byte {
	if p.err != nil {
		return nil
	}
	if n < 0 || p.off+n > len(p.buf) {
		p.fail("truncated dm file at offset %d (need %d bytes)", p.off, n)
		return nil
	}
	b := p.buf[p.off : p.off+n]
	p.off += n
	return b
}

// Big-endian readers for the tree structure.

func (p *dmParser) u8() uint8 {
	b := p.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (p *dmParser) beU16() uint16 {
	b := p.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (p *dmParser) beU32() uint32 {
	b := p.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (p *dmParser) beU64() uint64 {
	b := p.take(8)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

// count reads a structure count: 32-bit in DM3, 64-bit in DM4.
func (p *dmParser) count() int64 {
	if p.version == 4 {
		return int64(p.beU64())
	}
	return int64(p.beU32())
}

// LoadDM reads the primary image of a DM3 or DM4 file.
func LoadDM(path string) (*Image, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open dm: %w", err)
	}

	p := &dmParser{buf: raw}
	version := int(p.beU32())
	if version != 3 && version != 4 {
		return nil, fmt.Errorf("not a dm3/dm4 file: version %d", version)
	}
	p.version = version
	p.count() // root length
	p.dataLE = p.beU32() == 1
	if p.err != nil {
		return nil, p.err
	}

	root := p.readGroup()
	if p.err != nil {
		return nil, p.err
	}

	return dmExtractImage(root)
}

func (p *dmParser) readGroup() dmGroup {
	p.u8() // sorted
	p.u8() // open
	n := p.count()
	if p.err != nil || n < 0 || n > 1<<20 {
		p.fail("implausible dm tag count %d", n)
		return nil
	}

	g := make(dmGroup, n)
	for i := int64(0); i < n && p.err == nil; i++ {
		kind := p.u8()
		nameLen := int(p.beU16())
		name := string(p.take(nameLen))
		if name == "" {
			name = strconv.FormatInt(i, 10)
		}
		if p.version == 4 {
			p.beU64() // total tag bytes; redundant with the type descriptor
		}

		switch kind {
		case dmKindGroup:
			g[name] = p.readGroup()
		case dmKindTag:
			g[name] = p.readTag(name)
		default:
			p.fail("unknown dm tag kind 0x%02x at offset %d", kind, p.off)
		}
	}
	return g
}

func (p *dmParser) readTag(name string) *dmValue {
	if sep := string(p.take(4)); p.err == nil && sep != "%%%%" {
		p.fail("bad dm tag separator %q", sep)
		return nil
	}

	infoLen := p.count()
	if p.err != nil || infoLen <= 0 || infoLen > 4096 {
		p.fail("implausible dm info length %d", infoLen)
		return nil
	}
	info := make([]int64, infoLen)
	for i := range info {
		info[i] = p.count()
	}
	if p.err != nil {
		return nil
	}

	switch info[0] {
	case dmTypeArray:
		return p.readArray(name, info)
	case dmTypeStruct:
		size, ok := dmStructSize(info, 1)
		if !ok {
			p.fail("bad dm struct descriptor for %q", name)
			return nil
		}
		p.take(size)
		return &dmValue{}
	case dmTypeString:
		return &dmValue{str: string(p.take(int(info[1])))}
	default:
		v := p.readScalar(info[0])
		return &dmValue{scalar: &v}
	}
}

// dmStructSize computes the byte size of a struct descriptor starting at
// info[i] == 15. Layout: 15, nameLen, nFields, then nFields pairs of
// (fieldNameLen, fieldType). Returns ok=false on malformed descriptors.
func dmStructSize(info []int64, i int) (int, bool) {
	if i+2 > len(info) {
		return 0, false
	}
	nFields := info[i+1]
	size := 0
	for f := int64(0); f < nFields; f++ {
		idx := i + 2 + int(f)*2 + 1
		if idx >= len(info) {
			return 0, false
		}
		s, ok := dmSimpleSize[info[idx]]
		if !ok {
			return 0, false
		}
		size += s
	}
	return size, true
}

func (p *dmParser) readScalar(typ int64) float64 {
	size, ok := dmSimpleSize[typ]
	if !ok {
		p.fail("unsupported dm scalar type %d", typ)
		return 0
	}
	b := p.take(size)
	if b == nil {
		return 0
	}
	return dmDecode(b, typ, p.dataLE)
}

func (p *dmParser) readArray(name string, info []int64) *dmValue {
	if len(info) < 3 {
		p.fail("short dm array descriptor")
		return nil
	}
	elemType := info[1]

	if elemType == dmTypeStruct {
		structSize, ok := dmStructSize(info, 1)
		if !ok {
			p.fail("bad dm struct array descriptor")
			return nil
		}
		n := info[len(info)-1]
		p.take(int(n) * structSize)
		return &dmValue{}
	}

	elemSize, ok := dmSimpleSize[elemType]
	if !ok {
		p.fail("unsupported dm array element type %d", elemType)
		return nil
	}
	n := info[len(info)-1]
	if n < 0 {
		p.fail("negative dm array length %d", n)
		return nil
	}

	// Short uint16 arrays are UTF-16 strings (units, labels). The image
	// payload itself is only decoded for tags named Data; every other bulk
	// array is skipped to keep memory flat.
	if elemType == 4 && n <= 512 && name != "Data" {
		b := p.take(int(n) * 2)
		if b == nil {
			return nil
		}
		u := make([]uint16, n)
		for i := range u {
			if p.dataLE {
				u[i] = binary.LittleEndian.Uint16(b[i*2:])
			} else {
				u[i] = binary.BigEndian.Uint16(b[i*2:])
			}
		}
		return &dmValue{str: string(utf16.Decode(u))}
	}

	if name != "Data" {
		p.take(int(n) * elemSize)
		return &dmValue{}
	}

	b := p.take(int(n) * elemSize)
	if b == nil {
		return nil
	}
	arr := make([]float32, n)
	for i := int64(0); i < n; i++ {
		arr[i] = float32(dmDecode(b[int(i)*elemSize:], elemType, p.dataLE))
	}
	return &dmValue{arr: arr}
}

func dmDecode(b []byte, typ int64, le bool) float64 {
	var order binary.ByteOrder = binary.BigEndian
	if le {
		order = binary.LittleEndian
	}
	switch typ {
	case 2:
		return float64(int16(order.Uint16(b)))
	case 3:
		return float64(int32(order.Uint32(b)))
	case 4:
		return float64(order.Uint16(b))
	case 5:
		return float64(order.Uint32(b))
	case 6:
		return float64(math.Float32frombits(order.Uint32(b)))
	case 7:
		return math.Float64frombits(order.Uint64(b))
	case 8, 9:
		return float64(b[0])
	case 10:
		return float64(int8(b[0]))
	case 11:
		return float64(int64(order.Uint64(b)))
	case 12:
		return float64(order.Uint64(b))
	}
	return 0
}

// Tree navigation helpers.

func (g dmGroup) group(name string) dmGroup {
	sub, _ := g[name].(dmGroup)
	return sub
}

func (g dmGroup) value(name string) *dmValue {
	v, _ := g[name].(*dmValue)
	return v
}

func (g dmGroup) scalar(name string) (float64, bool) {
	if v := g.value(name); v != nil && v.scalar != nil {
		return *v.scalar, true
	}
	return 0, false
}

// dmExtractImage walks ImageList and returns the largest decoded image,
// which skips past the embedded thumbnail.
func dmExtractImage(root dmGroup) (*Image, error) {
	list := root.group("ImageList")
	if list == nil {
		return nil, fmt.Errorf("dm file has no ImageList")
	}

	var best *Image
	for _, entry := range list {
		eg, ok := entry.(dmGroup)
		if !ok {
			continue
		}
		im := dmImageData(eg.group("ImageData"))
		if im == nil {
			continue
		}
		if best == nil || len(im.Data) > len(best.Data) {
			best = im
		}
	}
	if best == nil {
		return nil, fmt.Errorf("dm file contains no decodable 2D image")
	}
	return best, nil
}

func dmImageData(id dmGroup) *Image {
	if id == nil {
		return nil
	}
	data := id.value("Data")
	if data == nil || data.arr == nil {
		return nil
	}

	dims := id.group("Dimensions")
	if dims == nil {
		return nil
	}
	w, okW := dims.scalar("0")
	h, okH := dims.scalar("1")
	if !okW || !okH {
		return nil
	}
	if _, has3rd := dims.scalar("2"); has3rd {
		// 3D stacks in DM files are rare and unsupported here.
		return nil
	}
	if int(w)*int(h) != len(data.arr) {
		return nil
	}

	im := &Image{W: int(w), H: int(h), Data: data.arr}

	// Calibration: scale is in the units string, commonly nm per pixel.
	if cal := id.group("Calibrations"); cal != nil {
		if dim := cal.group("Dimension"); dim != nil {
			if d0 := dim.group("0"); d0 != nil {
				if scale, ok := d0.scalar("Scale"); ok {
					unit := ""
					if u := d0.value("Units"); u != nil {
						unit = u.str
					}
					im.PixelSize = dmScaleToAngstrom(scale, unit)
				}
			}
		}
	}
	return im
}

func dmScaleToAngstrom(scale float64, unit string) float64 {
	switch unit {
	case "nm":
		return scale * 10
	case "µm", "um":
		return scale * 1e4
	case "Å", "A":
		return scale
	case "":
		// Uncalibrated; leave unknown rather than guessing.
		return 0
	default:
		return 0
	}
}
