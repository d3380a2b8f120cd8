package derive

import (
	"github.com/shopspring/decimal"

	"tripquote/internal/domain"
)

// TotalCost = flight + visa + land + tax
//   - (GST - waived) when the package includes GST
//   - (TCS - waived) when the package includes TCS
func TotalCost(c domain.Costs) float64 {
	total := decimal.NewFromFloat(c.FlightCost).
		Add(decimal.NewFromFloat(c.VisaCost)).
		Add(decimal.NewFromFloat(c.LandPackageCost)).
		Add(decimal.NewFromFloat(c.TotalTax))
	if c.PackageWithGST {
		total = total.Add(decimal.NewFromFloat(c.GST).Sub(decimal.NewFromFloat(c.GstWaivedOff)))
	}
	if c.PackageWithTCS {
		total = total.Add(decimal.NewFromFloat(c.TCS).Sub(decimal.NewFromFloat(c.TcsWaivedOff)))
	}
	return total.InexactFloat64()
}

// FlightCost sums the selected offers, preferring each offer's custom price,
// rounded to paise.
func FlightCost(offers []domain.FlightOffer) float64 {
	sum := decimal.Zero
	for _, f := range offers {
		sum = sum.Add(decimal.NewFromFloat(f.EffectivePrice()))
	}
	return sum.Round(2).InexactFloat64()
}
