package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// DefaultBaseURL is the public Fake Store API.
const DefaultBaseURL = "https://fakestoreapi.com"

// HTTPGetter executes GET requests. Both httpclient.Client and
// httpclient.BreakerClient satisfy it.
type HTTPGetter interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// Client reads product data from the upstream catalog. Failures surface as
// errors to the calling page; nothing here touches cart state.
type Client struct {
	http    HTTPGetter
	baseURL string
}

// NewClient creates a catalog client against the given base URL.
func NewClient(http HTTPGetter, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{http: http, baseURL: baseURL}
}

// apiProduct is the upstream wire shape. Prices arrive as decimal floats and
// are converted to integer cents at this boundary.
type apiProduct struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Image       string  `json:"image"`
	Rating      *struct {
		Rate  float64 `json:"rate"`
		Count int     `json:"count"`
	} `json:"rating"`
}

func (p *apiProduct) toDomain() domain.Product {
	out := domain.Product{
		ID:          p.ID,
		Title:       p.Title,
		Price:       toCents(p.Price),
		Description: p.Description,
		Category:    p.Category,
		ImageURL:    p.Image,
	}
	if p.Rating != nil {
		out.Rating = &domain.Rating{Rate: p.Rating.Rate, Count: p.Rating.Count}
	}
	return out
}

// toCents converts a decimal price to integer cents. All storefront
// arithmetic happens in cents so repeated cart mutations cannot accumulate
// floating point drift.
func toCents(price float64) int64 {
	return int64(math.Round(price * 100))
}

// ListProducts fetches the full product listing.
func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var raw []apiProduct
	if err := c.getJSON(ctx, c.baseURL+"/products", &raw); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	products := make([]domain.Product, len(raw))
	for i := range raw {
		products[i] = raw[i].toDomain()
	}
	return products, nil
}

// ListCategories fetches the category names.
func (c *Client) ListCategories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := c.getJSON(ctx, c.baseURL+"/products/categories", &categories); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// GetProduct fetches a single product by ID.
func (c *Client) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var raw apiProduct
	if err := c.getJSON(ctx, fmt.Sprintf("%s/products/%d", c.baseURL, id), &raw); err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}

	// The upstream returns 200 with an empty body for unknown IDs.
	if raw.ID == 0 {
		return nil, apperrors.NotFound("product", fmt.Sprintf("%d", id))
	}

	product := raw.toDomain()
	return &product, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	resp, err := c.http.Get(ctx, url)
	if err != nil {
		return apperrors.ServiceUnavailable("product catalog is unavailable")
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NotFound("catalog resource", url)
	case resp.StatusCode != http.StatusOK:
		return apperrors.ServiceUnavailable(fmt.Sprintf("product catalog returned status %d", resp.StatusCode))
	}

	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode catalog response: %w", err)
	}
	return nil
}
