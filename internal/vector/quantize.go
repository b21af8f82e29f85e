package vector

import (
	"image"
	"image/color"
)

// quantize reduces img to at most k colors using iterative cluster
// refinement (k-means over RGB). It returns the palette and a per-pixel
// palette index map. Seeding and iteration order are deterministic so the
// same input always traces to the same document.
func quantize(img *image.NRGBA, k int) ([]color.NRGBA, []int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	n := w * h
	if k < 2 {
		k = 2
	}
	if k > n {
		k = n
	}

	px := make([][3]float64, n)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := img.NRGBAAt(b.Min.X+x, b.Min.Y+y)
			// Composite translucent pixels over white so alpha does not
			// smear the clusters.
			if c.A < 255 {
				a := float64(c.A) / 255
				c.R = uint8(float64(c.R)*a + 255*(1-a))
				c.G = uint8(float64(c.G)*a + 255*(1-a))
				c.B = uint8(float64(c.B)*a + 255*(1-a))
			}
			px[y*w+x] = [3]float64{float64(c.R), float64(c.G), float64(c.B)}
		}
	}

	// Evenly spaced seeds over the pixel sequence.
	centers := make([][3]float64, k)
	for i := 0; i < k; i++ {
		centers[i] = px[i*(n-1)/maxInt(k-1, 1)]
	}

	assign := make([]int, n)
	const maxIterations = 10
	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, p := range px {
			best, bestDist := 0, distSq(p, centers[0])
			for c := 1; c < k; c++ {
				if d := distSq(p, centers[c]); d < bestDist {
					best, bestDist = c, d
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		sums := make([][3]float64, k)
		counts := make([]int, k)
		for i, p := range px {
			c := assign[i]
			sums[c][0] += p[0]
			sums[c][1] += p[1]
			sums[c][2] += p[2]
			counts[c]++
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				continue
			}
			centers[c] = [3]float64{
				sums[c][0] / float64(counts[c]),
				sums[c][1] / float64(counts[c]),
				sums[c][2] / float64(counts[c]),
			}
		}
	}

	palette := make([]color.NRGBA, k)
	for c := 0; c < k; c++ {
		palette[c] = color.NRGBA{
			R: uint8(clamp255(centers[c][0])),
			G: uint8(clamp255(centers[c][1])),
			B: uint8(clamp255(centers[c][2])),
			A: 255,
		}
	}
	return palette, assign
}

func distSq(a, b [3]float64) float64 {
	dr := a[0] - b[0]
	dg := a[1] - b[1]
	db := a[2] - b[2]
	return dr*dr + dg*dg + db*db
}

func clamp255(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
