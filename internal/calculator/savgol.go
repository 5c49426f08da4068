package calculator

import "math"

// SavitzkyGolay smooths the series by fitting a least-squares polynomial of
// the given order over a sliding window and evaluating it at the window
// centre. The first and last half-windows are evaluated on the polynomial
// fitted to the first and last full window respectively.
//
// The window is forced to an odd value of at least 3 and the order is kept
// below the window. Undefined samples are skipped and stay undefined in the
// output. The input is returned unchanged (as a copy) when it holds fewer
// samples, or fewer defined samples, than the window. Output is not clipped.
func SavitzkyGolay(series []float64, window, order int) []float64 {
	out := make([]float64, len(series))
	copy(out, series)

	if window%2 == 0 {
		window++
	}
	if window < 3 {
		window = 3
	}
	if len(series) < window {
		return out
	}

	idx := make([]int, 0, len(series))
	vals := make([]float64, 0, len(series))
	for i, v := range series {
		if math.IsNaN(v) {
			continue
		}
		idx = append(idx, i)
		vals = append(vals, v)
	}
	if len(vals) < window {
		return out
	}

	if order >= window {
		order = window - 1
	}
	if order < 0 {
		order = 0
	}

	smoothed := savgolFilter(vals, window, order)
	for k, i := range idx {
		out[i] = smoothed[k]
	}
	return out
}

// savgolFilter runs the filter over a fully defined series with len(x) >= window.
func savgolFilter(x []float64, window, order int) []float64 {
	n := len(x)
	half := window / 2
	y := make([]float64, n)

	center := savgolWeights(window, order, 0)
	for i := half; i < n-half; i++ {
		y[i] = dot(center, x[i-half:i+half+1])
	}

	for i := 0; i < half; i++ {
		w := savgolWeights(window, order, float64(i-half))
		y[i] = dot(w, x[:window])
	}
	tailStart := n - window
	tailCenter := n - 1 - half
	for i := n - half; i < n; i++ {
		w := savgolWeights(window, order, float64(i-tailCenter))
		y[i] = dot(w, x[tailStart:])
	}
	return y
}

// savgolWeights returns the linear weights that evaluate, at offset t from
// the window centre, the least-squares polynomial fitted over the window.
// Offsets are scaled by the half-width to keep the normal equations well
// conditioned; the weights do not depend on that scaling.
func savgolWeights(window, order int, t float64) []float64 {
	half := window / 2
	scale := float64(half)
	terms := order + 1

	// Normal matrix M[i][j] = sum_k u_k^(i+j), right-hand side p_j = t^j.
	m := make([][]float64, terms)
	for i := range m {
		m[i] = make([]float64, terms)
	}
	for k := 0; k < window; k++ {
		u := float64(k-half) / scale
		for i := 0; i < terms; i++ {
			for j := 0; j < terms; j++ {
				m[i][j] += math.Pow(u, float64(i+j))
			}
		}
	}
	p := make([]float64, terms)
	for j := range p {
		p[j] = math.Pow(t/scale, float64(j))
	}

	z := solveLinear(m, p)

	w := make([]float64, window)
	for k := 0; k < window; k++ {
		u := float64(k-half) / scale
		for j := 0; j < terms; j++ {
			w[k] += math.Pow(u, float64(j)) * z[j]
		}
	}
	return w
}

// solveLinear solves a·z = b by Gaussian elimination with partial pivoting.
// a and b are modified in place.
func solveLinear(a [][]float64, b []float64) []float64 {
	n := len(b)
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for r := col + 1; r < n; r++ {
			f := a[r][col] / a[col][col]
			for c := col; c < n; c++ {
				a[r][c] -= f * a[col][c]
			}
			b[r] -= f * b[col]
		}
	}

	z := make([]float64, n)
	for r := n - 1; r >= 0; r-- {
		s := b[r]
		for c := r + 1; c < n; c++ {
			s -= a[r][c] * z[c]
		}
		z[r] = s / a[r][r]
	}
	return z
}

func dot(w, x []float64) float64 {
	s := 0.0
	for i := range w {
		s += w[i] * x[i]
	}
	return s
}
