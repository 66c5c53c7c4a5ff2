// Package catalog talks to the public Google Books volumes API.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"book_market/internal/domain/model"

	"github.com/pkg/errors"
)

// ErrUpstream marks a non-2xx answer from the catalog API.
var ErrUpstream = errors.New("catalog upstream error")

type GoogleBooksClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewGoogleBooksClient(baseURL, apiKey string, timeout time.Duration) *GoogleBooksClient {
	return &GoogleBooksClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type volumesResponse struct {
	Items []struct {
		ID         string `json:"id"`
		VolumeInfo struct {
			Title         string   `json:"title"`
			Authors       []string `json:"authors"`
			Description   string   `json:"description"`
			AverageRating float64  `json:"averageRating"`
			RatingsCount  int      `json:"ratingsCount"`
			ImageLinks    struct {
				Thumbnail string `json:"thumbnail"`
			} `json:"imageLinks"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

// Search runs a keyword query. With an API key the keyed request goes first
// and a failure falls back to the anonymous quota.
func (c *GoogleBooksClient) Search(ctx context.Context, query string) ([]model.CatalogVolume, error) {
	if c.apiKey != "" {
		vols, err := c.search(ctx, query, c.apiKey)
		if err == nil {
			return vols, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
	}
	return c.search(ctx, query, "")
}

func (c *GoogleBooksClient) search(ctx context.Context, query, key string) ([]model.CatalogVolume, error) {
	params := url.Values{}
	params.Set("q", query)
	if key != "" {
		params.Set("key", key)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/volumes?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build catalog request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "catalog request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, errors.Wrap(ErrUpstream, fmt.Sprintf("status %d", resp.StatusCode))
	}

	var body volumesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Wrap(err, "decode catalog response")
	}

	vols := make([]model.CatalogVolume, 0, len(body.Items))
	for _, it := range body.Items {
		vols = append(vols, model.CatalogVolume{
			ID:            it.ID,
			Title:         it.VolumeInfo.Title,
			Authors:       it.VolumeInfo.Authors,
			Description:   it.VolumeInfo.Description,
			Thumbnail:     it.VolumeInfo.ImageLinks.Thumbnail,
			AverageRating: it.VolumeInfo.AverageRating,
			RatingsCount:  it.VolumeInfo.RatingsCount,
		})
	}
	return vols, nil
}
