// Package training builds classifier training datasets from segmentation
// output. A dataset is a zarr group with three arrays:
//
//	images  (N, S, S) float32   normalized frame crops
//	masks   (N, S, S) uint8     one instance per item, 1 inside
//	labels  (N, K)    int32     one-hot class rows, written by annotation
//
// Class names live in the group attributes, so the store is self-describing.
package training

import (
	"fmt"
	"path/filepath"

	"github.com/saber-data/saber/internal/preprocess"
	"github.com/saber-data/saber/internal/segment"
	"github.com/saber-data/saber/internal/zarr"
)

// DefaultItemSize is the per-side pixel count of stored items.
const DefaultItemSize = 256

const (
	imagesArray = "images"
	masksArray  = "masks"
	labelsArray = "labels"
)

// Item is one training example: a frame and a single instance mask, both
// resized to the dataset item size.
type Item struct {
	Image []float32
	Mask  []uint8
}

// FrameItems turns one segmented frame into training items, one per mask.
// The frame is resized with bilinear interpolation, masks with
// nearest-neighbor so mask values stay binary.
func FrameItems(image []float32, w, h int, masks []*segment.Mask, itemSize int) []Item {
	if itemSize <= 0 {
		itemSize = DefaultItemSize
	}
	resized := preprocess.ResizeBilinear(image, w, h, itemSize, itemSize)

	items := make([]Item, 0, len(masks))
	for _, m := range masks {
		bits := make([]float32, len(m.Bits))
		for i, b := range m.Bits {
			bits[i] = float32(b)
		}
		small := preprocess.ResizeNearest(bits, w, h, itemSize, itemSize)
		mask := make([]uint8, itemSize*itemSize)
		for i, v := range small {
			if v != 0 {
				mask[i] = 1
			}
		}
		img := make([]float32, len(resized))
		copy(img, resized)
		items = append(items, Item{Image: img, Mask: mask})
	}
	return items
}

// Write creates a dataset store at dir from collected items.
func Write(dir string, items []Item, itemSize int, classNames []string) error {
	if itemSize <= 0 {
		itemSize = DefaultItemSize
	}
	if len(items) == 0 {
		return fmt.Errorf("no training items to write")
	}
	n := len(items)

	if err := zarr.CreateGroup(dir); err != nil {
		return fmt.Errorf("creating dataset group: %w", err)
	}
	if err := zarr.SetAttrs(dir, map[string]interface{}{
		"class_names": classNames,
		"item_size":   itemSize,
	}); err != nil {
		return fmt.Errorf("writing dataset attrs: %w", err)
	}

	shape := []int{n, itemSize, itemSize}
	chunks := []int{1, itemSize, itemSize}
	images, err := zarr.Create(filepath.Join(dir, imagesArray), shape, chunks, zarr.DtypeFloat32)
	if err != nil {
		return fmt.Errorf("creating images array: %w", err)
	}
	masks, err := zarr.Create(filepath.Join(dir, masksArray), shape, chunks, zarr.DtypeUint8)
	if err != nil {
		return fmt.Errorf("creating masks array: %w", err)
	}

	plane := itemSize * itemSize
	for i, item := range items {
		if len(item.Image) != plane || len(item.Mask) != plane {
			return fmt.Errorf("item %d: size mismatch (image %d, mask %d, want %d)",
				i, len(item.Image), len(item.Mask), plane)
		}
		if err := images.PutSectionFloat32s(i, item.Image); err != nil {
			return fmt.Errorf("writing image %d: %w", i, err)
		}
		if err := masks.PutSectionUint8s(i, item.Mask); err != nil {
			return fmt.Errorf("writing mask %d: %w", i, err)
		}
	}
	return nil
}

// Dataset is an opened training store.
type Dataset struct {
	Dir        string
	ItemSize   int
	NumItems   int
	ClassNames []string

	images *zarr.Array
	masks  *zarr.Array
}

// Open opens an existing dataset store.
func Open(dir string) (*Dataset, error) {
	if !zarr.IsGroup(dir) {
		return nil, fmt.Errorf("%s is not a dataset store", dir)
	}
	attrs, err := zarr.Attrs(dir)
	if err != nil {
		return nil, fmt.Errorf("reading dataset attrs: %w", err)
	}

	images, err := zarr.Open(filepath.Join(dir, imagesArray))
	if err != nil {
		return nil, fmt.Errorf("opening images array: %w", err)
	}
	masks, err := zarr.Open(filepath.Join(dir, masksArray))
	if err != nil {
		return nil, fmt.Errorf("opening masks array: %w", err)
	}

	shape := images.Shape()
	if len(shape) != 3 || shape[1] != shape[2] {
		return nil, fmt.Errorf("images array has unexpected shape %v", shape)
	}

	ds := &Dataset{
		Dir:      dir,
		ItemSize: shape[1],
		NumItems: shape[0],
		images:   images,
		masks:    masks,
	}
	if raw, ok := attrs["class_names"].([]interface{}); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok {
				ds.ClassNames = append(ds.ClassNames, s)
			}
		}
	}
	return ds, nil
}

// Image reads one frame crop.
func (d *Dataset) Image(i int) ([]float32, error) {
	return d.images.GetSectionFloat32s(i)
}

// Mask reads one instance mask.
func (d *Dataset) Mask(i int) ([]uint8, error) {
	return d.masks.GetSectionUint8s(i)
}

// WriteLabels writes the one-hot labels array from an item -> classes map.
// Unlabeled items get all-zero rows. Rewriting is safe; the array is
// replaced wholesale.
func (d *Dataset) WriteLabels(itemClasses map[int][]int) error {
	k := len(d.ClassNames)
	if k == 0 {
		return fmt.Errorf("dataset %s has no class names", d.Dir)
	}
	labels, err := zarr.Create(
		filepath.Join(d.Dir, labelsArray),
		[]int{d.NumItems, k},
		[]int{d.NumItems, k},
		zarr.DtypeInt32,
	)
	if err != nil {
		return fmt.Errorf("creating labels array: %w", err)
	}

	rows := make([]int32, d.NumItems*k)
	for idx, classes := range itemClasses {
		if idx < 0 || idx >= d.NumItems {
			return fmt.Errorf("label index %d out of range [0,%d)", idx, d.NumItems)
		}
		for _, class := range classes {
			if class < 0 || class >= k {
				return fmt.Errorf("class %d out of range [0,%d)", class, k)
			}
			rows[idx*k+class] = 1
		}
	}
	if err := labels.PutInt32s(rows); err != nil {
		return fmt.Errorf("writing labels array: %w", err)
	}
	return nil
}

// SetClassNames rewrites the dataset's class list. Existing label rows are
// not touched, so callers should only change names, not reorder classes,
// once annotation has started.
func (d *Dataset) SetClassNames(names []string) error {
	if err := zarr.SetAttrs(d.Dir, map[string]interface{}{
		"class_names": names,
		"item_size":   d.ItemSize,
	}); err != nil {
		return fmt.Errorf("writing dataset attrs: %w", err)
	}
	d.ClassNames = append([]string(nil), names...)
	return nil
}

// Copy duplicates a dataset store, images and masks included, so annotation
// can write labels without touching the source store.
func Copy(srcDir, dstDir string) error {
	src, err := Open(srcDir)
	if err != nil {
		return fmt.Errorf("opening source dataset: %w", err)
	}

	items := make([]Item, src.NumItems)
	for i := range items {
		img, err := src.Image(i)
		if err != nil {
			return fmt.Errorf("reading image %d: %w", i, err)
		}
		mask, err := src.Mask(i)
		if err != nil {
			return fmt.Errorf("reading mask %d: %w", i, err)
		}
		items[i] = Item{Image: img, Mask: mask}
	}
	return Write(dstDir, items, src.ItemSize, src.ClassNames)
}

// Labels reads the one-hot labels array, or nil if annotation has not run.
func (d *Dataset) Labels() ([]int32, int, error) {
	labels, err := zarr.Open(filepath.Join(d.Dir, labelsArray))
	if err != nil {
		return nil, 0, nil
	}
	shape := labels.Shape()
	if len(shape) != 2 || shape[0] != d.NumItems {
		return nil, 0, fmt.Errorf("labels array has unexpected shape %v", shape)
	}
	data, err := labels.Int32s()
	if err != nil {
		return nil, 0, fmt.Errorf("reading labels array: %w", err)
	}
	return data, shape[1], nil
}
