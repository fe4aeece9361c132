// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/fault"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// IncidentClass is the Weaviate class holding historical fire incidents.
const IncidentClass = "FireIncident"

// GetFireIncidentSchema returns the class definition for stored incidents.
// Vectors are supplied by the client (Query.Vector), so the vectorizer is
// disabled.
func GetFireIncidentSchema() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       IncidentClass,
		Description: "A recorded wildfire incident with its conditions and outcome.",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{
				Name:         "name",
				DataType:     []string{"text"},
				Description:  "Incident name.",
				Tokenization: "field",
			},
			{
				Name:            "year",
				DataType:        []string{"int"},
				Description:     "Year the incident occurred.",
				IndexFilterable: indexFilterable,
			},
			{
				Name:        "wind_speed",
				DataType:    []string{"number"},
				Description: "Sustained wind speed in mph.",
			},
			{
				Name:        "humidity",
				DataType:    []string{"number"},
				Description: "Relative humidity in percent.",
			},
			{
				Name:        "slope_percent",
				DataType:    []string{"number"},
				Description: "Terrain slope at the fire head.",
			},
			{
				Name:        "fuel_index",
				DataType:    []string{"number"},
				Description: "Fuel volatility index, 0 through 4.",
			},
			{
				Name:            "contained",
				DataType:        []string{"boolean"},
				Description:     "Whether the incident was contained.",
				IndexFilterable: indexFilterable,
			},
			{
				Name:        "acres_burned",
				DataType:    []string{"number"},
				Description: "Final burned area in acres.",
			},
			{
				Name:        "outcome",
				DataType:    []string{"text"},
				Description: "One-line outcome narrative.",
			},
		},
	}
}

// EnsureIncidentSchema creates the incident class when it does not exist.
func EnsureIncidentSchema(ctx context.Context, client *weaviate.Client) error {
	class := GetFireIncidentSchema()
	_, err := client.Schema().ClassGetter().WithClassName(class.Class).Do(ctx)
	if err == nil {
		return nil
	}
	slog.Info("incident schema not found, creating it", "class", class.Class)
	if err := client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("failed to create schema for class %s: %w", class.Class, err)
	}
	return nil
}

// WeaviateAnalogStore is a Source backed by a Weaviate vector index. Used
// when the incident corpus outgrows the packaged in-memory set.
//
// # Thread Safety
//
// Safe for concurrent use; the underlying client handles connection
// pooling.
type WeaviateAnalogStore struct {
	client *weaviate.Client
}

// NewWeaviateAnalogStore wraps an existing Weaviate client.
func NewWeaviateAnalogStore(client *weaviate.Client) *WeaviateAnalogStore {
	return &WeaviateAnalogStore{client: client}
}

// incidentID derives a stable object ID from the incident's name and
// year, so seeding the same incident twice targets the same object.
func incidentID(f AnalogFire) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s|%d", f.Name, f.Year))).String()
}

// isAlreadyStored reports whether an insert failed only because the
// object ID already exists.
func isAlreadyStored(err error) bool {
	var clientErr *fault.WeaviateClientError
	return errors.As(err, &clientErr) && clientErr.StatusCode == http.StatusUnprocessableEntity
}

// Seed loads incidents into the store with their condition vectors. IDs
// are deterministic, so re-running against a populated store skips the
// incidents already present instead of duplicating them.
func (s *WeaviateAnalogStore) Seed(ctx context.Context, fires []AnalogFire) error {
	for _, f := range fires {
		props := map[string]any{
			"name":          f.Name,
			"year":          f.Year,
			"wind_speed":    f.WindSpeed,
			"humidity":      f.Humidity,
			"slope_percent": f.Slope,
			"fuel_index":    f.FuelIndex,
			"contained":     f.Contained,
			"acres_burned":  f.AcresBurned,
			"outcome":       f.Outcome,
		}
		_, err := s.client.Data().Creator().
			WithClassName(IncidentClass).
			WithID(incidentID(f)).
			WithProperties(props).
			WithVector(f.conditions()).
			Do(ctx)
		if err != nil {
			if isAlreadyStored(err) {
				continue
			}
			return fmt.Errorf("failed to seed incident %q: %w", f.Name, err)
		}
	}
	return nil
}

// incidentQueryResponse mirrors the GraphQL shape of a FireIncident query.
type incidentQueryResponse struct {
	Get struct {
		FireIncident []incidentResult `json:"FireIncident"`
	} `json:"Get"`
}

type incidentResult struct {
	Name        string  `json:"name"`
	Year        int     `json:"year"`
	WindSpeed   float64 `json:"wind_speed"`
	Humidity    float64 `json:"humidity"`
	Slope       float64 `json:"slope_percent"`
	FuelIndex   float64 `json:"fuel_index"`
	Contained   bool    `json:"contained"`
	AcresBurned float64 `json:"acres_burned"`
	Outcome     string  `json:"outcome"`
	Additional  struct {
		Certainty float64 `json:"certainty"`
	} `json:"_additional"`
}

// Nearest implements Source with a NearVector search over the incident
// class. Certainty is mapped onto the distance scale (lower is closer) so
// scores compare with the in-memory index.
func (s *WeaviateAnalogStore) Nearest(ctx context.Context, q Query, k int) ([]ScoredAnalog, error) {
	if k <= 0 {
		return nil, nil
	}

	nearVector := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(q.Vector())

	// Certainty is always [0,1]; distance varies by metric.
	fields := []graphql.Field{
		{Name: "name"},
		{Name: "year"},
		{Name: "wind_speed"},
		{Name: "humidity"},
		{Name: "slope_percent"},
		{Name: "fuel_index"},
		{Name: "contained"},
		{Name: "acres_burned"},
		{Name: "outcome"},
		{Name: "_additional", Fields: []graphql.Field{
			{Name: "certainty"},
		}},
	}

	result, err := s.client.GraphQL().Get().
		WithClassName(IncidentClass).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(k).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate incident search failed: %w", err)
	}

	parsed, err := parseIncidentResponse(result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse incident results: %w", err)
	}

	analogs := make([]ScoredAnalog, 0, len(parsed.Get.FireIncident))
	for _, r := range parsed.Get.FireIncident {
		analogs = append(analogs, ScoredAnalog{
			Fire: AnalogFire{
				Name:        r.Name,
				Year:        r.Year,
				WindSpeed:   r.WindSpeed,
				Humidity:    r.Humidity,
				Slope:       r.Slope,
				FuelIndex:   r.FuelIndex,
				Contained:   r.Contained,
				AcresBurned: r.AcresBurned,
				Outcome:     r.Outcome,
			},
			Distance: 1.0 - r.Additional.Certainty,
		})
	}
	return analogs, nil
}

func parseIncidentResponse(resp *models.GraphQLResponse) (*incidentQueryResponse, error) {
	if resp == nil {
		return nil, fmt.Errorf("nil GraphQL response")
	}
	respBytes, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GraphQL response data: %w", err)
	}
	var result incidentQueryResponse
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal incident response: %w", err)
	}
	return &result, nil
}
