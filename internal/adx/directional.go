package adx

import "math"

// directionalIndex is 100 * dm / tr, with a zero true range yielding 0
func directionalIndex(dm, tr float64) float64 {
	if tr == 0 {
		return 0
	}
	return 100 * (dm / tr)
}

// dxComponents returns |+DI - -DI|, +DI + -DI and DX. A zero sum yields DX 0.
func dxComponents(plusDI, minusDI float64) (diff, sum, dx float64) {
	diff = math.Abs(plusDI - minusDI)
	sum = plusDI + minusDI
	if sum == 0 {
		return diff, sum, 0
	}
	return diff, sum, 100 * (diff / sum)
}
