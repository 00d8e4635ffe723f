package models

// UnknownLocation is used for any geolocation field the provider left empty
const UnknownLocation = "Unknown"

// LocalLocation tags loopback visitors, which are never looked up
const LocalLocation = "Local"

// LocationInfo is the normalized geolocation record attached to clicks and credentials
// A failed lookup keeps IP and sets Error; the other fields stay empty
type LocationInfo struct {
	IP      string `json:"ip,omitempty"`
	Country string `json:"country,omitempty"`
	Region  string `json:"region,omitempty"`
	City    string `json:"city,omitempty"`
	ISP     string `json:"isp,omitempty"`
	Org     string `json:"org,omitempty"`
	Mobile  bool   `json:"mobile,omitempty"`
	Proxy   bool   `json:"proxy,omitempty"`
	Hosting bool   `json:"hosting,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Failed reports whether the lookup ended in an error record
func (l LocationInfo) Failed() bool { return l.Error != "" }

// CountryOrUnknown returns Country, or UnknownLocation when it is empty
func (l LocationInfo) CountryOrUnknown() string {
	if l.Country == "" {
		return UnknownLocation
	}
	return l.Country
}

// CityOrUnknown returns City, or UnknownLocation when it is empty
func (l LocationInfo) CityOrUnknown() string {
	if l.City == "" {
		return UnknownLocation
	}
	return l.City
}

// RegionOrUnknown returns Region, or UnknownLocation when it is empty
func (l LocationInfo) RegionOrUnknown() string {
	if l.Region == "" {
		return UnknownLocation
	}
	return l.Region
}
