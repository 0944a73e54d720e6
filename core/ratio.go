package core

import "math"

// ElectronTemperature is the assumed electron temperature [K].
const ElectronTemperature = 7000.0

// RatioA computes the factor a(Te, nu) of Dickinson et al. (2003), Eq. 8,
// used to convert H-alpha intensity to free-free brightness temperature.
func RatioA(te, nuGHz float64) float64 {
	term1 := 0.366 * math.Pow(nuGHz, 0.1) * math.Pow(te, -0.15)
	term2 := math.Log(4.995e-2/nuGHz) + 1.5*math.Log(te)
	return term1 * term2
}

// RatioMilliKelvinPerRayleigh is the H-alpha to free-free brightness
// temperature ratio [mK/R] of Dickinson et al. (2003), Eq. 11.
//
// The "10^3" factor printed in Eq. 11 is omitted; the published equation
// appears to carry it in error.
func RatioMilliKelvinPerRayleigh(te, nuGHz float64) float64 {
	t4 := te / 1e4
	return 8.396 * RatioA(te, nuGHz) * math.Pow(nuGHz, -2.1) *
		math.Pow(t4, 0.667) * math.Pow(10, 0.029/t4) * (1 + 0.08)
}

// RatioKelvinPerRayleigh is RatioMilliKelvinPerRayleigh in [K/R].
func RatioKelvinPerRayleigh(te, nuGHz float64) float64 {
	return RatioMilliKelvinPerRayleigh(te, nuGHz) * 1e-3
}
