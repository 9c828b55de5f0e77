package service

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/jvcardoso/pro-team-care-console/internal/api"
	"github.com/jvcardoso/pro-team-care-console/internal/model"
)

var cepPattern = regexp.MustCompile(`^\d{8}$`)

type GeocodingService struct {
	client *api.Client
}

func NewGeocodingService(client *api.Client) *GeocodingService {
	return &GeocodingService{client: client}
}

func (s *GeocodingService) Geocode(ctx context.Context, address string) (model.GeocodeResult, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return model.GeocodeResult{}, &api.Error{Code: api.CodeValidation, Message: "address cannot be empty"}
	}
	var result model.GeocodeResult
	query := url.Values{"q": {address}}
	if err := s.client.Get(ctx, "/geocoding/address", query, &result); err != nil {
		return model.GeocodeResult{}, err
	}
	return result, nil
}

// LookupCEP resolves a Brazilian postal code. Punctuation is stripped before
// validation, so "01310-100" and "01310100" are the same lookup.
func (s *GeocodingService) LookupCEP(ctx context.Context, cep string) (model.GeocodeResult, error) {
	normalized := strings.NewReplacer("-", "", ".", "", " ", "").Replace(cep)
	if !cepPattern.MatchString(normalized) {
		return model.GeocodeResult{}, &api.Error{Code: api.CodeValidation, Message: fmt.Sprintf("invalid CEP: %s", cep)}
	}
	var result model.GeocodeResult
	if err := s.client.Get(ctx, "/geocoding/cep/"+normalized, nil, &result); err != nil {
		return model.GeocodeResult{}, err
	}
	return result, nil
}
