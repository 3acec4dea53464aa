package models

// PriceAnalysis summarizes nightly prices. Only prices above zero count
// towards the average, highest and lowest values.
type PriceAnalysis struct {
	AveragePrice      float64 `json:"average_price"`
	HighestPrice      float64 `json:"highest_price"`
	LowestPrice       float64 `json:"lowest_price"`
	TotalListings     int     `json:"total_listings"`
	ListingsWithPrice int     `json:"listings_with_price"`
}

// DateRange spans the earliest start date and latest end date of a set of
// entries.
type DateRange struct {
	Earliest string `json:"earliest"`
	Latest   string `json:"latest"`
}

// InsightReport holds the computed analytics for one site.
type InsightReport struct {
	Site             Site          `json:"site"`
	PriceAnalysis    PriceAnalysis `json:"price_analysis"`
	UniqueProperties int           `json:"unique_properties"`
	AverageRating    float64       `json:"average_rating"`
	DateRange        DateRange     `json:"date_range"`
	MostExpensive    *Listing      `json:"most_expensive,omitempty"`
	TopRated         []Listing     `json:"top_rated"`
}

// PricedListing is a stored entry reduced to numbers for analysis, with the
// search window it was seen in.
type PricedListing struct {
	Listing
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}
