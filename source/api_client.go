package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	bk "github.com/hanksha/field-booking-realtime/booking"
	"github.com/hanksha/field-booking-realtime/notification"
	"github.com/patrickmn/go-cache"
)

// APIClient fetches snapshots from the booking platform's REST API.
type APIClient struct {
	baseURL string
	token   string
	client  *http.Client
	cache   *cache.Cache
}

type ClientOption func(*APIClient)

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *APIClient) { c.client = client }
}

// WithSnapshotTTL sets how long a bookings snapshot is reused. Zero disables the memo.
func WithSnapshotTTL(ttl time.Duration) ClientOption {
	return func(c *APIClient) {
		if ttl <= 0 {
			c.cache = nil
			return
		}
		c.cache = cache.New(ttl, 2*ttl)
	}
}

func NewAPIClient(baseURL, token string, opts ...ClientOption) *APIClient {
	c := &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		cache: cache.New(5*time.Second, 30*time.Second),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *APIClient) FetchBookings(ctx context.Context, scope bk.Scope) ([]bk.Booking, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	key := scope.String()
	if c.cache != nil {
		if cached, found := c.cache.Get(key); found {
			return cloneBookings(cached.([]bk.Booking)), nil
		}
	}

	bookingsURL, err := c.getURL("bookings")
	if err != nil {
		return nil, err
	}

	query := url.Values{
		"scope": {string(scope.Kind)},
		"id":    {strconv.FormatInt(scope.ID, 10)},
	}

	bookings := []bk.Booking{}
	if err := c.getJSON(ctx, bookingsURL+"?"+query.Encode(), &bookings); err != nil {
		return nil, fmt.Errorf("failed to fetch bookings for scope %v: %w", scope, err)
	}

	if c.cache != nil {
		c.cache.Set(key, cloneBookings(bookings), cache.DefaultExpiration)
	}

	return bookings, nil
}

func (c *APIClient) GetBookingByID(ctx context.Context, id int64) (bk.Booking, error) {
	bookingURL, err := c.getURL("bookings", strconv.FormatInt(id, 10))
	if err != nil {
		return bk.Booking{}, err
	}

	var b bk.Booking
	if err := c.getJSON(ctx, bookingURL, &b); err != nil {
		if errors.Is(err, errNotFound) {
			return bk.Booking{}, bk.ErrBookingNotFound
		}
		return bk.Booking{}, fmt.Errorf("failed to fetch booking %d: %w", id, err)
	}

	return b, nil
}

func (c *APIClient) FetchNotifications(ctx context.Context, userID int64) ([]notification.Notification, error) {
	notificationsURL, err := c.getURL("users", strconv.FormatInt(userID, 10), "notifications")
	if err != nil {
		return nil, err
	}

	list := []notification.Notification{}
	if err := c.getJSON(ctx, notificationsURL, &list); err != nil {
		return nil, fmt.Errorf("failed to fetch notifications for user %d: %w", userID, err)
	}

	for i := range list {
		list[i].UserID = userID
	}

	return list, nil
}

// Flush drops every memoized snapshot.
func (c *APIClient) Flush() {
	if c.cache != nil {
		c.cache.Flush()
	}
}

var errNotFound = errors.New("resource not found")

func (c *APIClient) getJSON(ctx context.Context, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed create new request: %w", err)
	}

	c.setHeaders(req)

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}

	defer res.Body.Close()

	bodyBytes, readErr := io.ReadAll(res.Body)

	if res.StatusCode == http.StatusNotFound {
		return errNotFound
	}

	if res.StatusCode != http.StatusOK {
		if readErr != nil {
			return fmt.Errorf("request failed with status %d; also failed reading body: %w", res.StatusCode, readErr)
		}
		return fmt.Errorf("request failed with status '%v' and body:\n%v", res.StatusCode, string(bodyBytes))
	}

	if readErr != nil {
		return fmt.Errorf("failed to read body: %w", readErr)
	}

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("failed reading body: %w", err)
	}

	return nil
}

func (c *APIClient) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *APIClient) getURL(elem ...string) (string, error) {
	clientURL, err := url.JoinPath(c.baseURL, elem...)
	if err != nil {
		return "", fmt.Errorf("failed to create URL: %w", err)
	}

	return clientURL, nil
}

func cloneBookings(in []bk.Booking) []bk.Booking {
	out := make([]bk.Booking, len(in))
	copy(out, in)
	return out
}
