package pricing

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

var ErrInvalidModelInput = errors.New("pricing: spot, strike, volatility and time must be positive")

// Greeks are the sensitivities of a call's value per token.
// Theta is per year, Vega and Rho per unit (not per percent).
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Vega  float64 `json:"vega"`
	Theta float64 `json:"theta"`
	Rho   float64 `json:"rho"`
}

// BlackScholes prices a European call and put on a non-dividend asset.
// An American call on such an asset is never exercised early, so the call
// value also holds for American options.
func BlackScholes(spot, strike, rate, vol, years float64) (call, put float64, err error) {
	if spot <= 0 || strike <= 0 || vol <= 0 || years <= 0 {
		return 0, 0, ErrInvalidModelInput
	}
	d1, d2 := dParams(spot, strike, rate, vol, years)
	n := distuv.UnitNormal
	discount := strike * math.Exp(-rate*years)

	call = spot*n.CDF(d1) - discount*n.CDF(d2)
	put = discount*n.CDF(-d2) - spot*n.CDF(-d1)
	return call, put, nil
}

// CallGreeks returns the call's sensitivities.
func CallGreeks(spot, strike, rate, vol, years float64) (Greeks, error) {
	if spot <= 0 || strike <= 0 || vol <= 0 || years <= 0 {
		return Greeks{}, ErrInvalidModelInput
	}
	d1, d2 := dParams(spot, strike, rate, vol, years)
	n := distuv.UnitNormal
	sqrtT := math.Sqrt(years)
	discount := strike * math.Exp(-rate*years)

	return Greeks{
		Delta: n.CDF(d1),
		Gamma: n.Prob(d1) / (spot * vol * sqrtT),
		Vega:  spot * n.Prob(d1) * sqrtT,
		Theta: -spot*n.Prob(d1)*vol/(2*sqrtT) - rate*discount*n.CDF(d2),
		Rho:   discount * years * n.CDF(d2),
	}, nil
}

func dParams(spot, strike, rate, vol, years float64) (d1, d2 float64) {
	sqrtT := math.Sqrt(years)
	d1 = (math.Log(spot/strike) + (rate+vol*vol/2)*years) / (vol * sqrtT)
	return d1, d1 - vol*sqrtT
}
