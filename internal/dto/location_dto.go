package dto

// Location API DTOs

type GeocodeResponse struct {
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type ReverseGeocodeResult struct {
	FormattedAddress string  `json:"formatted_address"`
	Street           string  `json:"street,omitempty"`
	HouseNumber      string  `json:"house_number,omitempty"`
	City             string  `json:"city,omitempty"`
	State            string  `json:"state,omitempty"`
	ZipCode          string  `json:"zip_code,omitempty"`
	Country          string  `json:"country,omitempty"`
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
}
