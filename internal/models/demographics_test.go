package models

import "testing"

func TestAgeGroup(t *testing.T) {
	age := func(v float64) *float64 { return &v }

	tests := []struct {
		age  *float64
		want string
	}{
		{age: nil, want: "Unknown"},
		{age: age(18), want: "18-25"},
		{age: age(25), want: "18-25"},
		{age: age(25.5), want: "18-25"},
		{age: age(26), want: "26-35"},
		{age: age(50), want: "36-50"},
		{age: age(65), want: "51-65"},
		{age: age(66), want: "66+"},
	}

	for _, tt := range tests {
		if got := AgeGroup(tt.age); got != tt.want {
			t.Errorf("AgeGroup(%v) = %q, want %q", tt.age, got, tt.want)
		}
	}
}

func TestNewUserProfile(t *testing.T) {
	tests := []struct {
		location    string
		wantCountry string
		wantUK      bool
	}{
		{location: "london, england, united kingdom", wantCountry: "UNITED KINGDOM", wantUK: true},
		{location: "edinburgh, scotland", wantCountry: "SCOTLAND", wantUK: true},
		{location: "stockton, california, usa", wantCountry: "USA", wantUK: false},
		{location: "somewhere, ", wantCountry: "Unknown", wantUK: false},
		{location: "", wantCountry: "Unknown", wantUK: false},
	}

	for _, tt := range tests {
		u := NewUserProfile(7, tt.location, nil)
		if u.Country != tt.wantCountry {
			t.Errorf("Country for %q = %q, want %q", tt.location, u.Country, tt.wantCountry)
		}
		if u.IsUK != tt.wantUK {
			t.Errorf("IsUK for %q = %v, want %v", tt.location, u.IsUK, tt.wantUK)
		}
		if u.AgeGroup != "Unknown" {
			t.Errorf("AgeGroup = %q, want Unknown", u.AgeGroup)
		}
	}
}
