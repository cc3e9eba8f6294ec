package orchestrator

import "strings"

// Placeholder tokens the LLM plan uses as forward/back references between
// steps. The vocabulary is part of the prompt wire contract and must not
// be renamed.
const (
	TokenFoundCity                = "FOUND_CITY"
	TokenFoundCode                = "FOUND_CODE"
	TokenFoundCityCode            = "FOUND_CITY_CODE"
	TokenFoundRegionCode          = "FOUND_REGION_CODE"
	TokenFoundRegionIataCode      = "FOUND_REGION_IATA_CODE"
	TokenFoundNextGoodWeatherDate = "FOUND_NEXT_GOOD_WEATHER_DATE"
	TokenFoundSunnyDay            = "FOUND_SUNNY_DAY"
	TokenFoundGoodWeatherDate     = "FOUND_GOOD_WEATHER_DATE"

	TokenIncludeFlightResults  = "INCLUDE_FLIGHT_RESULTS_HERE"
	TokenIncludeDatabaseTable  = "INCLUDE_DATABASE_RESULTS_TABLE_HERE"
	TokenIncludeMeetingDetails = "INCLUDE_MEETING_DETAILS_HERE"
	TokenIncludeMeetingLink    = "INCLUDE_MEETING_LINK_HERE"
	TokenIncludeWeatherResults = "INCLUDE_WEATHER_RESULTS_HERE"
	TokenIncludeLocationResult = "INCLUDE_LOCATION_RESULTS_HERE"
	TokenIncludeMeetingID      = "INCLUDE_MEETING_ID_HERE"

	TokenTodayDate    = "{{today_date}}"
	TokenTomorrowDate = "{{tomorrow_date}}"

	// prefix for context back-references like {{previous_result_city}}
	previousResultPrefix = "previous_result"
)

// codeTokens are the placeholders that resolve to an IATA code.
var codeTokens = map[string]bool{
	TokenFoundCode:           true,
	TokenFoundCityCode:       true,
	TokenFoundRegionCode:     true,
	TokenFoundRegionIataCode: true,
}

// dateTokens are the placeholders that resolve to a good-weather date.
var dateTokens = map[string]bool{
	TokenFoundNextGoodWeatherDate: true,
	TokenFoundSunnyDay:            true,
	TokenFoundGoodWeatherDate:     true,
}

// includeField extracts <FIELD> from an INCLUDE_<FIELD>_HERE token,
// lower-cased: INCLUDE_MAXIMUM_PRICE_HERE -> "maximum_price".
func includeField(token string) string {
	inner := strings.TrimSuffix(strings.TrimPrefix(token, "INCLUDE_"), "_HERE")
	return strings.ToLower(inner)
}

// cityNameMap normalizes city aliases before weather or IATA lookups.
var cityNameMap = map[string]string{
	"bangalore": "Bengaluru",
	"bengaluru": "Bengaluru",
	"mumbai":    "Bombay",
}

// cityToIataMap avoids search/LLM round-trips for common cities.
var cityToIataMap = map[string]string{
	"bengaluru":          "BLR",
	"bangalore":          "BLR",
	"delhi":              "DEL",
	"mumbai":             "BOM",
	"bombay":             "BOM",
	"chennai":            "MAA",
	"madras":             "MAA",
	"kolkata":            "CCU",
	"calcutta":           "CCU",
	"hyderabad":          "HYD",
	"pune":               "PNQ",
	"ahmedabad":          "AMD",
	"kochi":              "COK",
	"cochin":             "COK",
	"trivandrum":         "TRV",
	"thiruvananthapuram": "TRV",
}

func normalizeCityName(city string) string {
	if mapped, ok := cityNameMap[strings.ToLower(strings.TrimSpace(city))]; ok {
		return mapped
	}
	return city
}

func knownIataCode(city string) (string, bool) {
	code, ok := cityToIataMap[strings.ToLower(strings.TrimSpace(city))]
	return code, ok
}
