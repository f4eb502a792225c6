package adx

import (
	"math"

	"github.com/trogers1052/adx-service/internal/models"
)

// trueRange returns TR for every bar. The first bar has no previous close,
// so its TR is just High - Low.
func trueRange(series models.Series) []float64 {
	tr := make([]float64, len(series))
	for i, bar := range series {
		if i == 0 {
			tr[i] = bar.High - bar.Low
			continue
		}
		prevClose := series[i-1].Close
		tr[i] = max(
			bar.High-bar.Low,
			math.Abs(bar.High-prevClose),
			math.Abs(bar.Low-prevClose),
		)
	}
	return tr
}

// directionalMovement returns +DM1 and -DM1 for every bar; both are 0 on the first bar.
// At most one of the two is nonzero for any bar.
func directionalMovement(series models.Series) (plusDM, minusDM []float64) {
	plusDM = make([]float64, len(series))
	minusDM = make([]float64, len(series))
	for i := 1; i < len(series); i++ {
		upMove := series[i].High - series[i-1].High
		downMove := series[i-1].Low - series[i].Low

		if upMove > downMove && upMove > 0 {
			plusDM[i] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i] = downMove
		}
	}
	return plusDM, minusDM
}
