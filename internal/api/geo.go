package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"clickwar/internal/config"
	"clickwar/internal/constants"
	"clickwar/internal/domain"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// GeoClient maps client IPs to country codes through an ip-api style
// endpoint. Lookups that fail resolve to the unknown country and are not
// cached.
type GeoClient struct {
	urlFormat string
	ttl       time.Duration
	client    *fasthttp.Client
	logger    zerolog.Logger

	cacheMu sync.RWMutex
	cache   map[string]geoEntry
}

type geoEntry struct {
	country   string
	expiresAt time.Time
}

type GeoResponse struct {
	Status      string `json:"status"`
	CountryCode string `json:"countryCode"`
	Message     string `json:"message"`
}

func NewGeoClient(cfg *config.Config, logger zerolog.Logger) *GeoClient {
	return &GeoClient{
		urlFormat: cfg.GeoAPIURL,
		ttl:       cfg.GeoCacheTTL,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		logger: logger,
		cache:  make(map[string]geoEntry),
	}
}

func (c *GeoClient) Resolve(ctx context.Context, ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() || parsed.IsLinkLocalUnicast() {
		return constants.UnknownCountry
	}

	now := time.Now()
	c.cacheMu.RLock()
	entry, ok := c.cache[ip]
	c.cacheMu.RUnlock()
	if ok && now.Before(entry.expiresAt) {
		return entry.country
	}

	ctx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	resp, err := doRequest[GeoResponse](ctx, c, fmt.Sprintf(c.urlFormat, ip))
	if err != nil {
		c.logger.Warn().Err(err).Str("ip", ip).Msg("geolocation lookup failed")
		return constants.UnknownCountry
	}
	if resp.Status != "success" {
		c.logger.Debug().Str("ip", ip).Str("message", resp.Message).Msg("geolocation returned no country")
		return constants.UnknownCountry
	}

	country := domain.NormalizeCountry(resp.CountryCode)
	if !domain.ValidCountryCode(country) {
		return constants.UnknownCountry
	}

	c.cacheMu.Lock()
	c.cache[ip] = geoEntry{country: country, expiresAt: now.Add(c.ttl)}
	c.cacheMu.Unlock()

	return country
}

// PurgeExpired drops stale cache entries and reports how many were removed.
func (c *GeoClient) PurgeExpired() int {
	now := time.Now()
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	n := 0
	for ip, e := range c.cache {
		if !now.Before(e.expiresAt) {
			delete(c.cache, ip)
			n++
		}
	}
	return n
}

func doRequest[T any](ctx context.Context, client *GeoClient, url string) (*T, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	deadline, ok := ctx.Deadline()
	if ok {
		if err := client.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, err
		}
	} else {
		if err := client.client.Do(req, resp); err != nil {
			return nil, err
		}
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("geolocation API error: %d", resp.StatusCode())
	}

	var result T
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}
