// Package services holds the outbound clients used by the tracking pipeline
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/amirphl/lurewatch/logger"
	"github.com/amirphl/lurewatch/models"
)

const ipAPIFields = "status,message,country,regionName,city,isp,org,as,mobile,proxy,hosting,query"

var errInvalidIP = errors.New("invalid IP address")

var geolocationLookups = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lurewatch_geolocation_lookups_total",
		Help: "Geolocation lookups partitioned by outcome",
	},
	[]string{"outcome"},
)

// Resolver maps a client IP to a location record
// Implementations never fail; problems are reported in LocationInfo.Error
type Resolver interface {
	Resolve(ctx context.Context, ip string) models.LocationInfo
}

// IPAPIResolver queries the ip-api.com JSON endpoint
type IPAPIResolver struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

func NewIPAPIResolver(baseURL string, timeout time.Duration) *IPAPIResolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &IPAPIResolver{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
		Timeout:    timeout,
	}
}

type ipAPIResp struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	Country    string `json:"country"`
	RegionName string `json:"regionName"`
	City       string `json:"city"`
	ISP        string `json:"isp"`
	Org        string `json:"org"`
	AS         string `json:"as"`
	Mobile     bool   `json:"mobile"`
	Proxy      bool   `json:"proxy"`
	Hosting    bool   `json:"hosting"`
	Query      string `json:"query"`
}

// IsLoopback reports whether ip names the local machine
func IsLoopback(ip string) bool {
	switch ip {
	case "127.0.0.1", "::1", "localhost":
		return true
	}
	return false
}

// LocalLocation is the record used for loopback visitors
func LocalLocation(ip string) models.LocationInfo {
	return models.LocationInfo{
		IP:      ip,
		Country: models.LocalLocation,
		Region:  models.LocalLocation,
		City:    models.LocalLocation,
	}
}

func (r *IPAPIResolver) Resolve(ctx context.Context, ip string) models.LocationInfo {
	if IsLoopback(ip) {
		geolocationLookups.WithLabelValues("local").Inc()
		return LocalLocation(ip)
	}

	loc, err := r.lookup(ctx, ip)
	if err != nil {
		geolocationLookups.WithLabelValues("failure").Inc()
		logger.FromContext(ctx).Warn("geolocation lookup failed", zap.String("ip", ip), zap.Error(err))
		return models.LocationInfo{IP: ip, Error: err.Error()}
	}
	geolocationLookups.WithLabelValues("success").Inc()
	return loc
}

func (r *IPAPIResolver) lookup(ctx context.Context, ip string) (models.LocationInfo, error) {
	// the address may come from a forwarded header; never let it shape the provider URL
	if net.ParseIP(ip) == nil {
		return models.LocationInfo{}, errInvalidIP
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/json/%s?fields=%s", r.BaseURL, url.PathEscape(ip), ipAPIFields)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.LocationInfo{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return models.LocationInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.LocationInfo{}, fmt.Errorf("geolocation provider returned status %d", resp.StatusCode)
	}

	var out ipAPIResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.LocationInfo{}, fmt.Errorf("failed to decode geolocation response: %w", err)
	}
	if out.Status != "success" {
		msg := out.Message
		if msg == "" {
			msg = "lookup failed"
		}
		return models.LocationInfo{}, errors.New(msg)
	}

	resolved := out.Query
	if resolved == "" {
		resolved = ip
	}
	return models.LocationInfo{
		IP:      resolved,
		Country: orUnknown(out.Country),
		Region:  orUnknown(out.RegionName),
		City:    orUnknown(out.City),
		ISP:     orUnknown(out.ISP),
		Org:     orUnknown(out.Org),
		Mobile:  out.Mobile,
		Proxy:   out.Proxy,
		Hosting: out.Hosting,
	}, nil
}

func orUnknown(s string) string {
	if s == "" {
		return models.UnknownLocation
	}
	return s
}
