package mrc

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

/*
MRC2014 File Parser

MRC is the de facto interchange format for electron microscopy images and
cryo-ET volumes. Files begin with a fixed 1024-byte little-endian header,
optionally followed by an extended header (NSYMBT bytes), followed by the
image data in section order (x fastest, then y, then z).

HEADER LAYOUT (1024 bytes total):
├── Words 1-3    NX, NY, NZ          - grid size in each dimension
├── Word  4      MODE                - data type of the payload (see modes below)
├── Words 5-10   N*START, M*         - start offsets and sampling grid
├── Words 11-16  CELLA, CELLB        - cell dimensions (Å) and angles (deg)
├── Words 17-19  MAPC, MAPR, MAPS    - axis order (1=x, 2=y, 3=z)
├── Words 20-22  DMIN, DMAX, DMEAN   - density statistics
├── Word  23     ISPG                - space group (0 for images/stacks)
├── Word  24     NSYMBT              - extended header size in bytes
├── Words 25-49  EXTRA               - format extensions (EXTTYP/NVERSION live here)
├── Words 50-52  ORIGIN              - phase origin or frame of reference (Å)
├── Word  53     MAP                 - magic bytes "MAP "
├── Word  54     MACHST              - machine stamp (0x44 0x44 0x00 0x00 = little-endian)
├── Word  55     RMS                 - RMS deviation from mean
├── Word  56     NLABL               - number of used label slots
└── Words 57-256 LABEL(10)           - ten 80-character text labels

The pixel size in Å is CELLA / M per axis; EM software agrees on this even
where it disagrees on everything else in the header.
*/

// Supported MODE values. Other modes (complex transforms, 4-bit packed) are
// not produced by the instruments this tool targets and are rejected.
const (
	ModeInt8    = 0 // 8-bit signed integer
	ModeInt16   = 1 // 16-bit signed integer
	ModeFloat32 = 2 // 32-bit IEEE float
	ModeUint16  = 6 // 16-bit unsigned integer

	headerSize = 1024 // fixed header size in bytes
	labelCount = 10   // label slots in the header
	labelSize  = 80   // bytes per label
)

// magic is the format identifier at word 53.
var magic = [4]byte{'M', 'A', 'P', ' '}

// machstLE is the little-endian machine stamp.
var machstLE = [4]byte{0x44, 0x44, 0x00, 0x00}

// Header mirrors the fixed 1024-byte MRC2014 header. Field order matters:
// the struct is read and written with encoding/binary.
type Header struct {
	Nx, Ny, Nz                int32
	Mode                      int32
	NxStart, NyStart, NzStart int32
	Mx, My, Mz                int32
	CellA                     [3]float32
	CellB                     [3]float32
	MapC, MapR, MapS          int32
	DMin, DMax, DMean         float32
	ISpg                      int32
	NSymBt                    int32
	Extra                     [25]int32
	Origin                    [3]float32
	Map                       [4]byte
	MachSt                    [4]byte
	RMS                       float32
	NLabl                     int32
	Labels                    [labelCount][labelSize]byte
}

// PixelSize returns the x-axis pixel size in Å, or 0 when the sampling grid
// is unset (some acquisition software leaves MX at zero).
func (h *Header) PixelSize() float64 {
	if h.Mx == 0 || h.CellA[0] == 0 {
		return 0
	}
	return float64(h.CellA[0]) / float64(h.Mx)
}

// Volume holds decoded MRC data as float32 regardless of the on-disk mode.
// Data is indexed [(z*Ny+y)*Nx + x].
type Volume struct {
	Nx, Ny, Nz int
	PixelSize  float64 // Å per pixel, 0 if unknown
	Data       []float32
}

// At returns the voxel at (x, y, z).
func (v *Volume) At(x, y, z int) float32 {
	return v.Data[(z*v.Ny+y)*v.Nx+x]
}

// Section returns the z-th xy section as a slice aliasing Data.
func (v *Volume) Section(z int) []float32 {
	n := v.Nx * v.Ny
	return v.Data[z*n : (z+1)*n]
}

// ReadHeader parses and validates the fixed header.
func ReadHeader(r io.Reader) (*Header, error) {
	var h Header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("read mrc header: %w", err)
	}
	if h.Map != magic {
		// Pre-2014 files may omit the magic; fall back to sanity-checking
		// dimensions rather than refusing decades of archived data.
		if h.Nx <= 0 || h.Ny <= 0 || h.Nz <= 0 {
			return nil, fmt.Errorf("not an mrc file: bad magic %q and non-positive dimensions", h.Map[:])
		}
	}
	switch h.Mode {
	case ModeInt8, ModeInt16, ModeFloat32, ModeUint16:
	default:
		return nil, fmt.Errorf("unsupported mrc mode %d", h.Mode)
	}
	if h.NSymBt < 0 {
		return nil, fmt.Errorf("negative extended header size %d", h.NSymBt)
	}
	return &h, nil
}

// Read decodes a full MRC file into a float32 volume.
func Read(r io.Reader) (*Volume, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}

	// Skip the extended header; per-frame metadata there is not needed.
	if h.NSymBt > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(h.NSymBt)); err != nil {
			return nil, fmt.Errorf("skip extended header: %w", err)
		}
	}

	nx, ny, nz := int(h.Nx), int(h.Ny), int(h.Nz)
	n := nx * ny * nz
	if n <= 0 {
		return nil, fmt.Errorf("invalid mrc dimensions %dx%dx%d", nx, ny, nz)
	}

	vol := &Volume{
		Nx:        nx,
		Ny:        ny,
		Nz:        nz,
		PixelSize: h.PixelSize(),
		Data:      make([]float32, n),
	}

	switch h.Mode {
	case ModeFloat32:
		if err := binary.Read(r, binary.LittleEndian, vol.Data); err != nil {
			return nil, fmt.Errorf("read mode 2 data: %w", err)
		}
	case ModeInt8:
		raw := make([]int8, n)
		if err := binary.Read(r, binary.LittleEndian, raw); err != nil {
			return nil, fmt.Errorf("read mode 0 data: %w", err)
		}
		for i, v := range raw {
			vol.Data[i] = float32(v)
		}
	case ModeInt16:
		raw := make([]int16, n)
		if err := binary.Read(r, binary.LittleEndian, raw); err != nil {
			return nil, fmt.Errorf("read mode 1 data: %w", err)
		}
		for i, v := range raw {
			vol.Data[i] = float32(v)
		}
	case ModeUint16:
		raw := make([]uint16, n)
		if err := binary.Read(r, binary.LittleEndian, raw); err != nil {
			return nil, fmt.Errorf("read mode 6 data: %w", err)
		}
		for i, v := range raw {
			vol.Data[i] = float32(v)
		}
	}

	return vol, nil
}

// ReadFile decodes the MRC file at path.
func ReadFile(path string) (*Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mrc file: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Write encodes the volume as a mode 2 (float32) MRC file with density
// statistics computed from the data.
func Write(w io.Writer, vol *Volume) error {
	if len(vol.Data) != vol.Nx*vol.Ny*vol.Nz {
		return fmt.Errorf("volume data length %d does not match %dx%dx%d",
			len(vol.Data), vol.Nx, vol.Ny, vol.Nz)
	}

	dmin := float32(math.Inf(1))
	dmax := float32(math.Inf(-1))
	var sum float64
	for _, v := range vol.Data {
		if v < dmin {
			dmin = v
		}
		if v > dmax {
			dmax = v
		}
		sum += float64(v)
	}
	dmean := float32(0)
	if len(vol.Data) > 0 {
		dmean = float32(sum / float64(len(vol.Data)))
	}

	px := vol.PixelSize
	if px == 0 {
		px = 1
	}

	h := Header{
		Nx: int32(vol.Nx), Ny: int32(vol.Ny), Nz: int32(vol.Nz),
		Mode: ModeFloat32,
		Mx:   int32(vol.Nx), My: int32(vol.Ny), Mz: int32(vol.Nz),
		CellA: [3]float32{
			float32(px * float64(vol.Nx)),
			float32(px * float64(vol.Ny)),
			float32(px * float64(vol.Nz)),
		},
		CellB: [3]float32{90, 90, 90},
		MapC:  1, MapR: 2, MapS: 3,
		DMin: dmin, DMax: dmax, DMean: dmean,
		Map:    magic,
		MachSt: machstLE,
	}

	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return fmt.Errorf("write mrc header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, vol.Data); err != nil {
		return fmt.Errorf("write mrc data: %w", err)
	}
	return nil
}

// WriteFile encodes the volume to the MRC file at path.
func WriteFile(path string, vol *Volume) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create mrc file: %w", err)
	}
	if err := Write(f, vol); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
