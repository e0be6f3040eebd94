package preprocess

// ResizeBilinear resamples a w×h image to wOut×hOut with bilinear
// interpolation. Used to fit arbitrary micrograph sizes to the fixed model
// input resolution; scientific resampling goes through Rescale instead.
func ResizeBilinear(data []float32, w, h, wOut, hOut int) []float32 {
	out := make([]float32, wOut*hOut)
	if w == 0 || h == 0 || wOut == 0 || hOut == 0 {
		return out
	}
	if w == wOut && h == hOut {
		copy(out, data)
		return out
	}

	sx := float64(w) / float64(wOut)
	sy := float64(h) / float64(hOut)
	for yo := 0; yo < hOut; yo++ {
		fy := (float64(yo)+0.5)*sy - 0.5
		y0 := int(fy)
		if fy < 0 {
			y0 = 0
			fy = 0
		}
		y1 := y0 + 1
		if y1 >= h {
			y1 = h - 1
		}
		wy := float32(fy - float64(y0))

		for xo := 0; xo < wOut; xo++ {
			fx := (float64(xo)+0.5)*sx - 0.5
			x0 := int(fx)
			if fx < 0 {
				x0 = 0
				fx = 0
			}
			x1 := x0 + 1
			if x1 >= w {
				x1 = w - 1
			}
			wx := float32(fx - float64(x0))

			top := data[y0*w+x0]*(1-wx) + data[y0*w+x1]*wx
			bot := data[y1*w+x0]*(1-wx) + data[y1*w+x1]*wx
			out[yo*wOut+xo] = top*(1-wy) + bot*wy
		}
	}
	return out
}

// ResizeNearest resamples with nearest-neighbor lookup. Used for mask
// upsampling, where interpolation would invent in-between labels.
func ResizeNearest(data []float32, w, h, wOut, hOut int) []float32 {
	out := make([]float32, wOut*hOut)
	if w == 0 || h == 0 || wOut == 0 || hOut == 0 {
		return out
	}
	for yo := 0; yo < hOut; yo++ {
		ys := yo * h / hOut
		for xo := 0; xo < wOut; xo++ {
			xs := xo * w / wOut
			out[yo*wOut+xo] = data[ys*w+xs]
		}
	}
	return out
}
