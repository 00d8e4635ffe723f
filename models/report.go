package models

import "time"

// DashboardSnapshot is the read model behind the live dashboard
type DashboardSnapshot struct {
	GeneratedAt       time.Time
	TargetsCount      int64
	ClicksCount       int64
	CredentialsCount  int64
	RecentClicks      []*Click
	RecentCredentials []*Credential
	Targets           []*Target
}

// LocationCount is one row of a geolocation breakdown
type LocationCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Report is the read model behind the snapshot document
type Report struct {
	GeneratedAt       time.Time
	TargetsCount      int64
	ClicksCount       int64
	CredentialsCount  int64
	ResultsCount      int64
	SuccessfulResults int64
	SuccessRate       float64
	Targets           []*Target
	RecentCredentials []*Credential
	TopCountries      []LocationCount
	TopCities         []LocationCount
}
