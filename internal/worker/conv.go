package worker

import (
	"github.com/saber-data/saber/internal/segment"
	"github.com/saber-data/saber/internal/worker/pb"
)

// masksToProto packs filtered instance masks into a wire response.
func masksToProto(masks []*segment.Mask, w, h int) *pb.SegmentResponse {
	resp := &pb.SegmentResponse{
		Masks:  make([]*pb.InstanceMask, 0, len(masks)),
		Width:  int32(w),
		Height: int32(h),
	}
	for _, m := range masks {
		resp.Masks = append(resp.Masks, &pb.InstanceMask{
			Id:    int32(m.ID),
			Bits:  m.Bits,
			Area:  int32(m.Area),
			Score: m.Score,
		})
	}
	return resp
}

// masksFromProto rebuilds instance masks from a wire response. Area and the
// bounding box are recomputed from the bitmap rather than trusted from the
// sender.
func masksFromProto(resp *pb.SegmentResponse) []*segment.Mask {
	w, h := int(resp.Width), int(resp.Height)
	masks := make([]*segment.Mask, 0, len(resp.Masks))
	for _, im := range resp.Masks {
		if len(im.Bits) != w*h {
			continue
		}
		m := &segment.Mask{
			ID:    int(im.Id),
			Bits:  im.Bits,
			W:     w,
			H:     h,
			Score: im.Score,
			MinX:  w, MinY: h,
		}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if m.Bits[y*w+x] == 0 {
					continue
				}
				m.Area++
				if x < m.MinX {
					m.MinX = x
				}
				if y < m.MinY {
					m.MinY = y
				}
				if x > m.MaxX {
					m.MaxX = x
				}
				if y > m.MaxY {
					m.MaxY = y
				}
			}
		}
		masks = append(masks, m)
	}
	return masks
}
