package geocode

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Geocoder 坐标反查地址
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (string, error)
}

// nominatimResponse Nominatim /reverse 响应（只取用到的字段）
type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
	Address     struct {
		HouseNumber string `json:"house_number"`
		Road        string `json:"road"`
		City        string `json:"city"`
		Town        string `json:"town"`
		Village     string `json:"village"`
		State       string `json:"state"`
	} `json:"address"`
}

// NominatimClient Nominatim 兼容的逆地理编码客户端
type NominatimClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewNominatimClient 创建逆地理编码客户端
func NewNominatimClient(baseURL, userAgent string, timeout time.Duration, logger *zap.Logger) *NominatimClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent)

	return &NominatimClient{httpClient: client, logger: logger}
}

// Reverse 返回 "street, city, region" 形式的地址；字段缺失时回退到 display_name
func (c *NominatimClient) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	var result nominatimResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"format": "jsonv2",
			"lat":    strconv.FormatFloat(lat, 'f', 6, 64),
			"lon":    strconv.FormatFloat(lon, 'f', 6, 64),
		}).
		SetResult(&result).
		Get("/reverse")
	if err != nil {
		return "", fmt.Errorf("reverse geocode request failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("reverse geocode returned status %d", resp.StatusCode())
	}
	if result.Error != "" {
		return "", fmt.Errorf("reverse geocode: %s", result.Error)
	}

	address := formatAddress(result)
	c.logger.Debug("Reverse geocoded location",
		zap.Float64("latitude", lat),
		zap.Float64("longitude", lon),
		zap.String("address", address),
	)
	return address, nil
}

func formatAddress(r nominatimResponse) string {
	street := strings.TrimSpace(strings.Join(nonEmpty(r.Address.HouseNumber, r.Address.Road), " "))
	city := firstNonEmpty(r.Address.City, r.Address.Town, r.Address.Village)
	parts := nonEmpty(street, city, r.Address.State)
	if len(parts) == 0 {
		return r.DisplayName
	}
	return strings.Join(parts, ", ")
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
