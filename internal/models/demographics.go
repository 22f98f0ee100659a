package models

import "strings"

const unknownValue = "Unknown"

// UKCountries are the location suffixes treated as the United Kingdom
var UKCountries = map[string]bool{
	"UK":             true,
	"UNITED KINGDOM": true,
	"ENGLAND":        true,
	"SCOTLAND":       true,
	"WALES":          true,
}

// AgeGroup buckets an age into the reporting bands
func AgeGroup(age *float64) string {
	if age == nil {
		return unknownValue
	}
	switch a := *age; {
	case a < 26:
		return "18-25"
	case a < 36:
		return "26-35"
	case a < 51:
		return "36-50"
	case a < 66:
		return "51-65"
	default:
		return "66+"
	}
}

// CountryFromLocation takes the last comma-separated component of a
// "city, region, country" location, upper-cased
func CountryFromLocation(location string) string {
	parts := strings.Split(location, ",")
	country := strings.ToUpper(strings.TrimSpace(parts[len(parts)-1]))
	if country == "" {
		return unknownValue
	}
	return country
}

// NewUserProfile derives the demographic fields of a user
func NewUserProfile(userID int64, location string, age *float64) UserProfile {
	country := CountryFromLocation(location)
	return UserProfile{
		UserID:   userID,
		Location: strings.TrimSpace(location),
		Age:      age,
		AgeGroup: AgeGroup(age),
		Country:  country,
		IsUK:     UKCountries[country],
	}
}
