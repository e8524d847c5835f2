package refuel

type Refuel struct {
	ID            int64   `json:"id"`
	DateMs        int64   `json:"date"`
	Litres        float64 `json:"litres"`
	PricePerLitre float64 `json:"price_per_litre"`
	TotalCost     float64 `json:"total_cost"`
	OdometerKm    float64 `json:"odometer_km,omitempty"`
}

// Input is a refuel as entered by the rider. Either TotalCost or
// PricePerLitre must be set; the other is derived.
type Input struct {
	Litres        float64 `json:"litres" validate:"gt=0"`
	TotalCost     float64 `json:"total_cost" validate:"gte=0"`
	PricePerLitre float64 `json:"price_per_litre" validate:"gte=0"`
	OdometerKm    float64 `json:"odometer_km" validate:"gte=0"`
	DateMs        int64   `json:"date" validate:"gte=0"`
}
