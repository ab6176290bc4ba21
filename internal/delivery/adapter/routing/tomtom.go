package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"logileet/internal/delivery/domain"
	"logileet/internal/shared/apperrors"
)

// maxWaypoints caps the stored route size; longer provider polylines are
// thinned by keeping every Nth point.
const maxWaypoints = 150

// TomTomProvider computes road routes via the TomTom calculateRoute API.
type TomTomProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewTomTomProvider(baseURL, apiKey string, timeout time.Duration) *TomTomProvider {
	return &TomTomProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type routeResponse struct {
	Routes []struct {
		Summary struct {
			LengthInMeters      float64 `json:"lengthInMeters"`
			TravelTimeInSeconds float64 `json:"travelTimeInSeconds"`
		} `json:"summary"`
		Legs []struct {
			Points []struct {
				Latitude  float64 `json:"latitude"`
				Longitude float64 `json:"longitude"`
			} `json:"points"`
		} `json:"legs"`
	} `json:"routes"`
}

func (p *TomTomProvider) ComputeRoute(ctx context.Context, pickup, dropoff domain.Location) (*domain.Route, error) {
	endpoint := fmt.Sprintf("%s/routing/1/calculateRoute/%f,%f:%f,%f/json?key=%s&traffic=true&routeType=fastest",
		p.baseURL, pickup.Latitude, pickup.Longitude, dropoff.Latitude, dropoff.Longitude, url.QueryEscape(p.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrExternalServiceDegraded, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrExternalServiceDegraded, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: routing API returned %d", apperrors.ErrExternalServiceDegraded, resp.StatusCode)
	}

	var parsed routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrExternalServiceDegraded, err)
	}

	if len(parsed.Routes) == 0 || len(parsed.Routes[0].Legs) == 0 {
		return nil, fmt.Errorf("%w: no routes returned", apperrors.ErrExternalServiceDegraded)
	}

	route := parsed.Routes[0]
	points := route.Legs[0].Points

	step := int(math.Max(1, math.Ceil(float64(len(points))/maxWaypoints)))
	waypoints := make([]domain.Waypoint, 0, len(points)/step+1)
	for i := 0; i < len(points); i += step {
		waypoints = append(waypoints, domain.Waypoint{Lat: points[i].Latitude, Lng: points[i].Longitude})
	}

	return &domain.Route{
		Waypoints:         waypoints,
		Distance:          route.Summary.LengthInMeters,
		EstimatedDuration: int(math.Round(route.Summary.TravelTimeInSeconds / 60)),
	}, nil
}
