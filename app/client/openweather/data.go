package openweather

// Entry is one three-hour slot of the 5 day forecast.
type Entry struct {
	Dt   int64  `json:"dt"`
	Text string `json:"dt_txt"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	// Pop is the probability of precipitation, 0..1
	Pop float64 `json:"pop"`
}

type forecastResponse struct {
	List []Entry `json:"list"`
	City struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"city"`
}
