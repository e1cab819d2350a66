package enums

// StockStatus summarizes how much of a variant is left to sell.
type StockStatus string

const (
	StockStatusInStock    StockStatus = "in_stock"
	StockStatusLowStock   StockStatus = "low_stock"
	StockStatusOutOfStock StockStatus = "out_of_stock"
)

// String implements fmt.Stringer.
func (s StockStatus) String() string {
	return string(s)
}

// StockStatusFor buckets an available count against the low-stock threshold.
func StockStatusFor(available, lowThreshold int) StockStatus {
	switch {
	case available <= 0:
		return StockStatusOutOfStock
	case available <= lowThreshold:
		return StockStatusLowStock
	default:
		return StockStatusInStock
	}
}
