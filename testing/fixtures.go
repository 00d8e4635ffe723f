// Package testing provides test utilities and database setup for testing the tracking pipeline
package testing

import (
	"github.com/amirphl/lurewatch/models"
	"github.com/amirphl/lurewatch/utils"
	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/datatypes"
)

// FakeTarget builds an unsaved target with realistic data
func FakeTarget() *models.Target {
	return &models.Target{
		Email: gofakeit.Email(),
		URL:   gofakeit.URL(),
	}
}

// FakeLocation builds a successful lookup record in the given country and city
func FakeLocation(country, city string) models.LocationInfo {
	return models.LocationInfo{
		IP:      gofakeit.IPv4Address(),
		Country: country,
		Region:  gofakeit.State(),
		City:    city,
		ISP:     gofakeit.Company(),
		Org:     gofakeit.Company(),
	}
}

// FakeClick builds an unsaved click for targetID carrying token
func FakeClick(targetID *uint, token string) *models.Click {
	return &models.Click{
		TargetID:    targetID,
		IP:          gofakeit.IPv4Address(),
		UserAgent:   gofakeit.UserAgent(),
		Token:       token,
		Geolocation: datatypes.NewJSONType(FakeLocation(gofakeit.Country(), gofakeit.City())),
	}
}

// FakeCredential builds an unsaved submission located in country and city
func FakeCredential(targetID *uint, country, city string) *models.Credential {
	return &models.Credential{
		TargetID:          targetID,
		Email:             gofakeit.Email(),
		PasswordSubmitted: true,
		IP:                gofakeit.IPv4Address(),
		UserAgent:         gofakeit.UserAgent(),
		Token:             utils.ToPtr(gofakeit.UUID()),
		Geolocation:       datatypes.NewJSONType(FakeLocation(country, city)),
	}
}

// FakeToken returns a fresh tracking token
func FakeToken() string {
	return gofakeit.UUID()
}
