// Package lookup contains minimal helpers for the external lookup commands:
// GIF search, movie metadata, and weather. Every call is a JSON GET with a
// deadline; a failure surfaces as a visible error reply, never a crash.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Base URLs, variables so tests can point the client at a mock server.
type Client struct {
	GiphyBase    string
	TenorBase    string
	OMDBBase     string
	GeocodeBase  string
	ForecastBase string

	GiphyKey string
	TenorKey string
	OMDBKey  string

	HTTPClient *http.Client
}

// NewClient returns a Client against the production endpoints.
func NewClient(giphyKey, tenorKey, omdbKey string) *Client {
	return &Client{
		GiphyBase:    "https://api.giphy.com/v1/gifs/search",
		TenorBase:    "https://tenor.googleapis.com/v2/search",
		OMDBBase:     "https://www.omdbapi.com/",
		GeocodeBase:  "https://geocoding-api.open-meteo.com/v1/search",
		ForecastBase: "https://api.open-meteo.com/v1/forecast",
		GiphyKey:     giphyKey,
		TenorKey:     tenorKey,
		OMDBKey:      omdbKey,
	}
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func (c *Client) getJSON(ctx context.Context, base string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base, nil)
	if err != nil {
		return err
	}
	req.URL.RawQuery = params.Encode()
	resp, err := c.http().Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lookup %s: status %d", req.URL.Host, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// SearchGiphy returns the URL of the top GIF for the query, or "".
func (c *Client) SearchGiphy(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("api_key", c.GiphyKey)
	params.Set("q", query)
	params.Set("limit", "1")
	params.Set("rating", "r")

	var body struct {
		Data []struct {
			Images struct {
				Original struct {
					URL string `json:"url"`
				} `json:"original"`
			} `json:"images"`
		} `json:"data"`
	}
	if err := c.getJSON(ctx, c.GiphyBase, params, &body); err != nil {
		return "", err
	}
	if len(body.Data) == 0 {
		return "", nil
	}
	return body.Data[0].Images.Original.URL, nil
}

// SearchTenor returns the URL of the top Tenor GIF for the query, or "".
func (c *Client) SearchTenor(ctx context.Context, query string) (string, error) {
	urls, err := c.TenorGIFs(ctx, query, 1)
	if err != nil {
		return "", err
	}
	if len(urls) == 0 {
		return "", nil
	}
	return urls[0], nil
}

// TenorGIFs returns up to limit GIF URLs for the query.
func (c *Client) TenorGIFs(ctx context.Context, query string, limit int) ([]string, error) {
	params := url.Values{}
	params.Set("key", c.TenorKey)
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))

	var body struct {
		Results []struct {
			MediaFormats struct {
				GIF struct {
					URL string `json:"url"`
				} `json:"gif"`
			} `json:"media_formats"`
		} `json:"results"`
	}
	if err := c.getJSON(ctx, c.TenorBase, params, &body); err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(body.Results))
	for _, r := range body.Results {
		if u := r.MediaFormats.GIF.URL; u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}

// Title is the OMDb record subset shown in chat.
type Title struct {
	Title  string `json:"Title"`
	Year   string `json:"Year"`
	Rating string `json:"imdbRating"`
	Genre  string `json:"Genre"`
	Plot   string `json:"Plot"`
}

// LookupTitle resolves a movie or series title. mediaType is "movie",
// "series", or empty for either. Returns nil when nothing matched.
func (c *Client) LookupTitle(ctx context.Context, title, mediaType string) (*Title, error) {
	params := url.Values{}
	params.Set("apikey", c.OMDBKey)
	params.Set("t", title)
	params.Set("plot", "short")
	if mediaType != "" {
		params.Set("type", mediaType)
	}

	var body struct {
		Title
		Response string `json:"Response"`
	}
	if err := c.getJSON(ctx, c.OMDBBase, params, &body); err != nil {
		return nil, err
	}
	if body.Response == "False" {
		return nil, nil
	}
	return &body.Title, nil
}

// Weather is a current conditions snapshot.
type Weather struct {
	City    string
	Country string
	TempF   float64
	WindMPH float64
}

// CurrentWeather geocodes the city and fetches its current conditions.
// Returns nil when the city does not resolve.
func (c *Client) CurrentWeather(ctx context.Context, city string) (*Weather, error) {
	geoParams := url.Values{}
	geoParams.Set("name", city)
	geoParams.Set("count", "1")

	var geo struct {
		Results []struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
			Name      string  `json:"name"`
			Country   string  `json:"country"`
		} `json:"results"`
	}
	if err := c.getJSON(ctx, c.GeocodeBase, geoParams, &geo); err != nil {
		return nil, err
	}
	if len(geo.Results) == 0 {
		return nil, nil
	}
	loc := geo.Results[0]

	wxParams := url.Values{}
	wxParams.Set("latitude", fmt.Sprintf("%g", loc.Latitude))
	wxParams.Set("longitude", fmt.Sprintf("%g", loc.Longitude))
	wxParams.Set("current_weather", "true")
	wxParams.Set("temperature_unit", "fahrenheit")

	var wx struct {
		CurrentWeather struct {
			Temperature float64 `json:"temperature"`
			Windspeed   float64 `json:"windspeed"`
		} `json:"current_weather"`
	}
	if err := c.getJSON(ctx, c.ForecastBase, wxParams, &wx); err != nil {
		return nil, err
	}
	return &Weather{
		City:    loc.Name,
		Country: loc.Country,
		TempF:   wx.CurrentWeather.Temperature,
		WindMPH: wx.CurrentWeather.Windspeed,
	}, nil
}
