package weather

import "github.com/shopspring/decimal"

// TemperaturePlaces is the number of decimal places a sample temperature keeps.
const TemperaturePlaces = 2

// RoundTemperature rounds v half-to-even at TemperaturePlaces, so 10.005 becomes
// 10.00 and 10.015 becomes 10.02. v is taken at its shortest decimal form.
func RoundTemperature(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).RoundBank(TemperaturePlaces)
}

// AverageReadings reduces the successful readings of one location into a rounded average.
// The denominator is the number of readings, never the number of configured sources.
// It reports false when there is nothing to average.
func AverageReadings(readings []Reading) (decimal.Decimal, bool) {
	if len(readings) == 0 {
		return decimal.Zero, false
	}

	var sum float64
	for _, r := range readings {
		sum += r.TemperatureC
	}

	return RoundTemperature(sum / float64(len(readings))), true
}
