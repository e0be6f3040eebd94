// Package copick reads copick project layouts: a JSON config naming an
// overlay and an optional static root, with tomograms stored per run as
// multiscale OME-Zarr under
// <root>/ExperimentRuns/<run>/VoxelSpacing<vs>/<algorithm>.zarr.
package copick

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/saber-data/saber/internal/zarr"
)

const runsDir = "ExperimentRuns"

// PickableObject is one annotation class declared by the project.
type PickableObject struct {
	Name       string  `json:"name"`
	IsParticle bool    `json:"is_particle"`
	Label      int     `json:"label"`
	Color      []int   `json:"color,omitempty"`
	Radius     float64 `json:"radius,omitempty"`
}

// Config mirrors the copick project JSON.
type Config struct {
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	ConfigType      string           `json:"config_type"`
	OverlayRoot     string           `json:"overlay_root"`
	StaticRoot      string           `json:"static_root,omitempty"`
	PickableObjects []PickableObject `json:"pickable_objects"`
}

// LoadConfig reads and validates a project config file.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.OverlayRoot == "" {
		return nil, fmt.Errorf("config %s: overlay_root is required", path)
	}
	return &cfg, nil
}

// localPath strips the local:// URI scheme copick configs use.
func localPath(root string) string {
	for _, prefix := range []string{"local://", "file://"} {
		if rest, ok := strings.CutPrefix(root, prefix); ok {
			return rest
		}
	}
	return root
}

// Project is an opened copick project. Lookups check the overlay root
// first, then the static root.
type Project struct {
	Config *Config
	roots  []string
}

// Open loads the config at path and resolves its storage roots.
func Open(path string) (*Project, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	roots := []string{localPath(cfg.OverlayRoot)}
	if cfg.StaticRoot != "" {
		roots = append(roots, localPath(cfg.StaticRoot))
	}
	return &Project{Config: cfg, roots: roots}, nil
}

// Runs lists run names across all roots, deduplicated and sorted.
func (p *Project) Runs() ([]string, error) {
	seen := map[string]bool{}
	for _, root := range p.roots {
		entries, err := os.ReadDir(filepath.Join(root, runsDir))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("listing runs under %s: %w", root, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				seen[e.Name()] = true
			}
		}
	}
	runs := make([]string, 0, len(seen))
	for name := range seen {
		runs = append(runs, name)
	}
	sort.Strings(runs)
	return runs, nil
}

// voxelDirName formats a voxel spacing directory the way copick writes it.
func voxelDirName(voxelSize float64) string {
	return fmt.Sprintf("VoxelSpacing%.3f", voxelSize)
}

// VoxelSpacings lists the voxel spacings available for a run.
func (p *Project) VoxelSpacings(run string) ([]float64, error) {
	seen := map[float64]bool{}
	for _, root := range p.roots {
		entries, err := os.ReadDir(filepath.Join(root, runsDir, run))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("listing voxel spacings for %s: %w", run, err)
		}
		for _, e := range entries {
			rest, ok := strings.CutPrefix(e.Name(), "VoxelSpacing")
			if !ok || !e.IsDir() {
				continue
			}
			vs, err := strconv.ParseFloat(rest, 64)
			if err != nil {
				continue
			}
			seen[vs] = true
		}
	}
	out := make([]float64, 0, len(seen))
	for vs := range seen {
		out = append(out, vs)
	}
	sort.Float64s(out)
	return out, nil
}

// Tomograms lists reconstruction algorithm names available for a run at one
// voxel spacing.
func (p *Project) Tomograms(run string, voxelSize float64) ([]string, error) {
	seen := map[string]bool{}
	for _, root := range p.roots {
		dir := filepath.Join(root, runsDir, run, voxelDirName(voxelSize))
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("listing tomograms in %s: %w", dir, err)
		}
		for _, e := range entries {
			if name, ok := strings.CutSuffix(e.Name(), ".zarr"); ok {
				seen[name] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// TomogramPath resolves the zarr group of a tomogram, preferring the
// overlay root.
func (p *Project) TomogramPath(run string, voxelSize float64, algorithm string) (string, error) {
	for _, root := range p.roots {
		path := filepath.Join(root, runsDir, run, voxelDirName(voxelSize), algorithm+".zarr")
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("tomogram %s/%s at %.3f not found in project %q",
		run, algorithm, voxelSize, p.Config.Name)
}

// Volume is a dense tomogram with copick (z, y, x) axis order.
type Volume struct {
	Nx, Ny, Nz int
	VoxelSize  float64 // Angstrom
	Data       []float32
}

// Section returns the xy plane at z.
func (v *Volume) Section(z int) []float32 {
	plane := v.Nx * v.Ny
	return v.Data[z*plane : (z+1)*plane]
}

// LoadTomogram reads the full-resolution scale ("0") of a tomogram into
// memory.
func (p *Project) LoadTomogram(run string, voxelSize float64, algorithm string) (*Volume, error) {
	group, err := p.TomogramPath(run, voxelSize, algorithm)
	if err != nil {
		return nil, err
	}
	arr, err := zarr.Open(filepath.Join(group, "0"))
	if err != nil {
		return nil, fmt.Errorf("opening tomogram array: %w", err)
	}
	shape := arr.Shape()
	if len(shape) != 3 {
		return nil, fmt.Errorf("tomogram %s: expected 3 dimensions, got %d", group, len(shape))
	}
	data, err := arr.Float32s()
	if err != nil {
		return nil, fmt.Errorf("reading tomogram %s: %w", group, err)
	}
	return &Volume{
		Nz:        shape[0],
		Ny:        shape[1],
		Nx:        shape[2],
		VoxelSize: voxelSize,
		Data:      data,
	}, nil
}
