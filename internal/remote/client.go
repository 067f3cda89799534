package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/roamline/roamline/internal/domain"
)

// Client is the HTTP implementation of Backend against the Roamline API.
//
// Status mapping: 404 → domain.ErrNotFound, 422 → domain.ErrValidation,
// any other non-2xx and every transport error → domain.ErrRemote.
type Client struct {
	baseURL string
	userID  string
	http    *http.Client
}

// Compile-time check: Client must satisfy Backend.
var _ Backend = (*Client)(nil)

// NewClient constructs a Client for the API at baseURL, acting as userID.
// The user id is sent as the X-User-ID header on every request.
// If httpClient is nil a client with a 15 second timeout is used.
func NewClient(baseURL, userID string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		userID:  userID,
		http:    httpClient,
	}
}

func (c *Client) CreateTrip(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	var out domain.Trip
	if err := c.do(ctx, http.MethodPost, "/v1/trips", trip, &out); err != nil {
		return domain.Trip{}, fmt.Errorf("remote.Client.CreateTrip: %w", err)
	}
	return out, nil
}

func (c *Client) UpdateTrip(ctx context.Context, id string, trip domain.Trip) (domain.Trip, error) {
	var out domain.Trip
	if err := c.do(ctx, http.MethodPut, "/v1/trips/"+url.PathEscape(id), trip, &out); err != nil {
		return domain.Trip{}, fmt.Errorf("remote.Client.UpdateTrip: %w", err)
	}
	return out, nil
}

func (c *Client) DeleteTrip(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/v1/trips/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("remote.Client.DeleteTrip: %w", err)
	}
	return nil
}

func (c *Client) AddTripStop(ctx context.Context, tripID string, stop domain.TripStop) (domain.TripStop, error) {
	var out domain.TripStop
	path := "/v1/trips/" + url.PathEscape(tripID) + "/stops"
	if err := c.do(ctx, http.MethodPost, path, stop, &out); err != nil {
		return domain.TripStop{}, fmt.Errorf("remote.Client.AddTripStop: %w", err)
	}
	return out, nil
}

func (c *Client) UpdateTripStop(ctx context.Context, id string, stop domain.TripStop) (domain.TripStop, error) {
	var out domain.TripStop
	path := "/v1/trips/" + url.PathEscape(stop.TripID) + "/stops/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodPut, path, stop, &out); err != nil {
		return domain.TripStop{}, fmt.Errorf("remote.Client.UpdateTripStop: %w", err)
	}
	return out, nil
}

func (c *Client) DeleteTripStop(ctx context.Context, tripID, stopID string) error {
	path := "/v1/trips/" + url.PathEscape(tripID) + "/stops/" + url.PathEscape(stopID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("remote.Client.DeleteTripStop: %w", err)
	}
	return nil
}

func (c *Client) UpdateStopOrder(ctx context.Context, tripID, stopID string, order int) (domain.TripStop, error) {
	var out domain.TripStop
	path := "/v1/trips/" + url.PathEscape(tripID) + "/stops/" + url.PathEscape(stopID) + "/order"
	body := map[string]int{"stop_order": order}
	if err := c.do(ctx, http.MethodPut, path, body, &out); err != nil {
		return domain.TripStop{}, fmt.Errorf("remote.Client.UpdateStopOrder: %w", err)
	}
	return out, nil
}

func (c *Client) GetTripByID(ctx context.Context, id string) (domain.Trip, error) {
	var out domain.Trip
	if err := c.do(ctx, http.MethodGet, "/v1/trips/"+url.PathEscape(id), nil, &out); err != nil {
		return domain.Trip{}, fmt.Errorf("remote.Client.GetTripByID: %w", err)
	}
	return out, nil
}

// errorEnvelope matches the API's {"error":{"code","message"}} error body.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// do performs one request/response cycle. body and out may be nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encode request: %v", domain.ErrRemote, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", domain.ErrRemote, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.userID != "" {
		req.Header.Set("X-User-ID", c.userID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRemote, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", domain.ErrRemote, err)
		}
		return nil
	}

	var env errorEnvelope
	_ = json.NewDecoder(resp.Body).Decode(&env)
	msg := env.Error.Message
	if msg == "" {
		msg = resp.Status
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, msg)
	case http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", domain.ErrValidation, msg)
	default:
		return fmt.Errorf("%w: %s: %s", domain.ErrRemote, resp.Status, msg)
	}
}
