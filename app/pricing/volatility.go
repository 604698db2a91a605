package pricing

import (
	"math"

	"github.com/joefazee/optionsdesk/models"
	"gonum.org/v1/gonum/stat"
)

// RealizedVolatility annualises the standard deviation of log returns
// between consecutive price points, which must be in time order. The
// sampling period is the mean spacing of the points. ok is false when there
// are fewer than three usable points or the price never moved.
func RealizedVolatility(points []models.PricePoint) (vol float64, ok bool) {
	if len(points) < 3 {
		return 0, false
	}

	returns := make([]float64, 0, len(points)-1)
	var elapsed float64
	for i := 1; i < len(points); i++ {
		prev, _ := points[i-1].Price.Float64()
		cur, _ := points[i].Price.Float64()
		if prev <= 0 || cur <= 0 {
			continue
		}
		returns = append(returns, math.Log(cur/prev))
		elapsed += points[i].ObservedAt.Sub(points[i-1].ObservedAt).Seconds()
	}
	if len(returns) < 2 || elapsed <= 0 {
		return 0, false
	}

	period := elapsed / float64(len(returns))
	sd := stat.StdDev(returns, nil)
	if math.IsNaN(sd) || sd == 0 {
		return 0, false
	}
	return sd * math.Sqrt(SecondsPerYear/period), true
}
