package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/civicgrid/grievance-engine/internal/config"
)

// Place is the human-readable locality for a coordinate pair. Zero values
// mean the lookup failed; ticket creation proceeds regardless.
type Place struct {
	Area       string
	PostalCode string
}

// Geocoder resolves coordinates to a Place. Best effort only.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (Place, error)
}

// NominatimGeocoder calls an OSM Nominatim-compatible reverse endpoint with
// a bounded timeout.
type NominatimGeocoder struct {
	cfg    config.GeocodeConfig
	client *http.Client
}

// NewNominatimGeocoder constructs the geocoding client.
func NewNominatimGeocoder(cfg config.GeocodeConfig) *NominatimGeocoder {
	return &NominatimGeocoder{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout()},
	}
}

type nominatimResponse struct {
	Address struct {
		Suburb        string `json:"suburb"`
		Neighbourhood string `json:"neighbourhood"`
		City          string `json:"city"`
		Postcode      string `json:"postcode"`
	} `json:"address"`
}

// Reverse implements Geocoder.
func (g *NominatimGeocoder) Reverse(ctx context.Context, lat, lon float64) (Place, error) {
	query := url.Values{}
	query.Set("format", "jsonv2")
	query.Set("lat", fmt.Sprintf("%f", lat))
	query.Set("lon", fmt.Sprintf("%f", lon))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.Endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return Place{}, err
	}
	req.Header.Set("User-Agent", "grievance-engine/1.0")

	resp, err := g.client.Do(req)
	if err != nil {
		return Place{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Place{}, fmt.Errorf("geocode status %d", resp.StatusCode)
	}

	var decoded nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Place{}, fmt.Errorf("decode geocode response: %w", err)
	}

	area := decoded.Address.Suburb
	if area == "" {
		area = decoded.Address.Neighbourhood
	}
	if area == "" {
		area = decoded.Address.City
	}
	return Place{Area: area, PostalCode: decoded.Address.Postcode}, nil
}
