package mrc

import (
	"bytes"
	"encoding/binary"
	"math"
	"path/filepath"
	"testing"
)

func TestHeaderSize(t *testing.T) {
	if got := binary.Size(&Header{}); got != headerSize {
		t.Fatalf("header size = %d, want %d", got, headerSize)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	vol := &Volume{
		Nx: 4, Ny: 3, Nz: 2,
		PixelSize: 7.84,
		Data:      make([]float32, 24),
	}
	for i := range vol.Data {
		vol.Data[i] = float32(i) - 5.5
	}

	path := filepath.Join(t.TempDir(), "test.mrc")
	if err := WriteFile(path, vol); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if got.Nx != 4 || got.Ny != 3 || got.Nz != 2 {
		t.Errorf("dimensions = %dx%dx%d, want 4x3x2", got.Nx, got.Ny, got.Nz)
	}
	if math.Abs(got.PixelSize-7.84) > 1e-4 {
		t.Errorf("pixel size = %v, want 7.84", got.PixelSize)
	}
	for i := range vol.Data {
		if got.Data[i] != vol.Data[i] {
			t.Fatalf("data[%d] = %v, want %v", i, got.Data[i], vol.Data[i])
		}
	}
}

func TestWriteHeaderStats(t *testing.T) {
	vol := &Volume{Nx: 2, Ny: 2, Nz: 1, Data: []float32{1, 2, 3, 10}}
	var buf bytes.Buffer
	if err := Write(&buf, vol); err != nil {
		t.Fatalf("Write: %v", err)
	}
	h, err := ReadHeader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if h.DMin != 1 || h.DMax != 10 {
		t.Errorf("dmin/dmax = %v/%v, want 1/10", h.DMin, h.DMax)
	}
	if math.Abs(float64(h.DMean)-4) > 1e-6 {
		t.Errorf("dmean = %v, want 4", h.DMean)
	}
	if h.Map != magic {
		t.Errorf("magic = %q, want %q", h.Map[:], magic[:])
	}
}

// buildFile assembles a minimal MRC file with the given mode and raw payload.
func buildFile(t *testing.T, mode int32, nx, ny, nz int32, payload interface{}) []byte {
	t.Helper()
	h := Header{
		Nx: nx, Ny: ny, Nz: nz,
		Mode: mode,
		Mx:   nx, My: ny, Mz: nz,
		CellA:  [3]float32{float32(nx), float32(ny), float32(nz)},
		MapC:   1, MapR: 2, MapS: 3,
		Map:    magic,
		MachSt: machstLE,
	}
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, &h); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, payload); err != nil {
		t.Fatalf("write payload: %v", err)
	}
	return buf.Bytes()
}

func TestReadModes(t *testing.T) {
	tests := []struct {
		name    string
		mode    int32
		payload interface{}
		want    []float32
	}{
		{"int8", ModeInt8, []int8{-1, 0, 1, 127}, []float32{-1, 0, 1, 127}},
		{"int16", ModeInt16, []int16{-300, 0, 300, 4}, []float32{-300, 0, 300, 4}},
		{"uint16", ModeUint16, []uint16{0, 40000, 7, 8}, []float32{0, 40000, 7, 8}},
		{"float32", ModeFloat32, []float32{0.5, -2.5, 3, 4}, []float32{0.5, -2.5, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := buildFile(t, tt.mode, 2, 2, 1, tt.payload)
			vol, err := Read(bytes.NewReader(raw))
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			for i, want := range tt.want {
				if vol.Data[i] != want {
					t.Errorf("data[%d] = %v, want %v", i, vol.Data[i], want)
				}
			}
		})
	}
}

func TestReadRejectsUnknownMode(t *testing.T) {
	raw := buildFile(t, 4, 2, 2, 1, []float32{0, 0, 0, 0, 0, 0, 0, 0})
	if _, err := Read(bytes.NewReader(raw)); err == nil {
		t.Error("expected error for mode 4 (complex), got nil")
	}
}

func TestReadSkipsExtendedHeader(t *testing.T) {
	h := Header{
		Nx: 2, Ny: 1, Nz: 1,
		Mode: ModeFloat32,
		Mx:   2, My: 1, Mz: 1,
		NSymBt: 16,
		Map:    magic,
		MachSt: machstLE,
	}
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, &h); err != nil {
		t.Fatal(err)
	}
	buf.Write(make([]byte, 16)) // extended header
	if err := binary.Write(&buf, binary.LittleEndian, []float32{5, 6}); err != nil {
		t.Fatal(err)
	}

	vol, err := Read(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if vol.Data[0] != 5 || vol.Data[1] != 6 {
		t.Errorf("data = %v, want [5 6]", vol.Data)
	}
}

func TestSectionAndAt(t *testing.T) {
	vol := &Volume{Nx: 2, Ny: 2, Nz: 2, Data: []float32{0, 1, 2, 3, 4, 5, 6, 7}}
	if got := vol.At(1, 1, 1); got != 7 {
		t.Errorf("At(1,1,1) = %v, want 7", got)
	}
	sec := vol.Section(1)
	if len(sec) != 4 || sec[0] != 4 {
		t.Errorf("Section(1) = %v, want [4 5 6 7]", sec)
	}
}
