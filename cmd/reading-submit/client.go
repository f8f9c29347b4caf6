package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"weather-server/entities"
)

// collection is one writable endpoint family on the server.
type collection struct {
	kind entities.Kind
	tier entities.Tier
}

func collections() []collection {
	var out []collection
	for _, tier := range entities.Tiers() {
		for _, kind := range entities.Kinds() {
			out = append(out, collection{kind: kind, tier: tier})
		}
	}
	return out
}

func (c collection) path() string {
	if c.tier == entities.Protected {
		return "/weather/protected/" + c.kind.String()
	}
	return "/weather/" + c.kind.Plural()
}

func (c collection) label() string {
	return fmt.Sprintf("%s %s", c.tier, c.kind)
}

type formField struct {
	name    string
	prompt  string
	numeric bool
}

var measurementFields = []formField{
	{"value", "Value", true},
	{"value_units", "Value units (e.g. C, %, hPa)", false},
	{"value_error_range", "Value error range", true},
	{"latitude", "Latitude (-90 to 90)", true},
	{"longitude", "Longitude (-180 to 180)", true},
	{"elevation", "Elevation", true},
	{"elevation_units", "Elevation units (e.g. m)", false},
	{"timestamp", "Timestamp (2017-05-07T21:46:04)", false},
}

var locationFields = []formField{
	{"city", "City", false},
	{"province", "Province", false},
	{"country", "Country", false},
}

func (c collection) fields() []formField {
	if c.tier == entities.Protected {
		return append(append([]formField(nil), measurementFields...), locationFields...)
	}
	return measurementFields
}

// buildInput turns the typed answers into a request body and checks it
// with the same rules the server applies.
func buildInput(c collection, values map[string]string) (entities.ReadingInput, error) {
	num := func(name string) (*float64, error) {
		raw := strings.TrimSpace(values[name])
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a number", name, raw)
		}
		return &v, nil
	}

	var in entities.ReadingInput
	var err error
	if in.Value, err = num("value"); err != nil {
		return in, err
	}
	if in.ValueErrorRange, err = num("value_error_range"); err != nil {
		return in, err
	}
	if in.Latitude, err = num("latitude"); err != nil {
		return in, err
	}
	if in.Longitude, err = num("longitude"); err != nil {
		return in, err
	}
	if in.Elevation, err = num("elevation"); err != nil {
		return in, err
	}
	in.ValueUnits = strings.TrimSpace(values["value_units"])
	in.ElevationUnits = strings.TrimSpace(values["elevation_units"])
	in.Timestamp = strings.TrimSpace(values["timestamp"])
	if c.tier == entities.Protected {
		in.City = strings.TrimSpace(values["city"])
		in.Province = strings.TrimSpace(values["province"])
		in.Country = strings.TrimSpace(values["country"])
	}

	fields, err := in.Fields()
	if err != nil {
		return in, err
	}
	if _, err := entities.NewReading(c.kind, c.tier, fields); err != nil {
		return in, err
	}
	return in, nil
}

type apiClient struct {
	baseURL string
	http    *http.Client
	token   string
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *apiClient) login(ctx context.Context, username, password string) error {
	var out struct {
		AccessToken string `json:"access_token"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := a.do(ctx, http.MethodPost, "/auth", body, http.StatusOK, &out); err != nil {
		return err
	}
	if out.AccessToken == "" {
		return fmt.Errorf("server returned no access token")
	}
	a.token = out.AccessToken
	return nil
}

// submit posts the reading and returns the id the server assigned.
func (a *apiClient) submit(ctx context.Context, c collection, in entities.ReadingInput) (uint64, error) {
	var out struct {
		ID uint64 `json:"id"`
	}
	if err := a.do(ctx, http.MethodPost, c.path(), in, http.StatusCreated, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

func (a *apiClient) do(ctx context.Context, method, path string, body any, want int, out any) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "JWT "+a.token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("server not reachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		var apiErr struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
