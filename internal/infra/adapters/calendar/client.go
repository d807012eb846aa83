package calendar

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"rental-booking-bot/internal/domain"
	"rental-booking-bot/internal/domain/model"
	"rental-booking-bot/internal/domain/ports/adapter"
)

var _ adapter.CalendarAPI = (*Client)(nil)

// Client talks to the RealtyCalendar HTTP API. The v2 endpoints authenticate
// with an x-user-token obtained from sign_in; create uses a signed payload
// and delete/lookup use a separate form-based login that returns a bearer
// token.
type Client struct {
	http     *resty.Client
	username string
	password string
	signer   *Signer
	log      *zerolog.Logger

	mu    sync.Mutex
	token string
}

func NewClient(baseURL, username, password string, signer *Signer, logger *zerolog.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("calendar baseURL cannot be empty")
	}
	if username == "" || password == "" {
		return nil, errors.New("calendar credentials cannot be empty")
	}
	calLog := logger.With().Str("component", "CalendarClient").Logger()
	http := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)
	return &Client{http: http, username: username, password: password, signer: signer, log: &calLog}, nil
}

const dateLayout = "2006-01-02"

// toUpstreamDate converts "2006-01-02" to the "02.01.2006" form the
// availability endpoint expects.
func toUpstreamDate(d string) string {
	t, err := time.Parse(dateLayout, d)
	if err != nil {
		return d
	}
	return t.Format("02.01.2006")
}

// ensureToken signs in once and caches the v2 auth token.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}
	var out struct {
		Success   bool   `json:"success"`
		AuthToken string `json:"auth_token"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"username": c.username, "password": c.password}).
		SetResult(&out).
		Post("/v2/sign_in")
	if err != nil {
		return "", fmt.Errorf("calendar sign_in: %w", err)
	}
	if resp.IsError() || out.AuthToken == "" {
		return "", fmt.Errorf("calendar sign_in: status %s", resp.Status())
	}
	c.token = out.AuthToken
	return c.token, nil
}

// dropToken discards the cached v2 token after an authorization failure.
func (c *Client) dropToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

func (c *Client) Search(ctx context.Context, checkIn, checkOut string, guests int) ([]adapter.AvailableApartment, error) {
	if guests <= 0 {
		guests = 1
	}
	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}
	var out struct {
		Apartments []struct {
			ID    int64  `json:"id"`
			Title string `json:"title"`
		} `json:"apartments"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("x-user-token", token).
		SetQueryParams(map[string]string{
			"humans":     fmt.Sprintf("%d", guests),
			"begin_date": toUpstreamDate(checkIn),
			"end_date":   toUpstreamDate(checkOut),
		}).
		SetResult(&out).
		Get("/v2/apartments")
	if err != nil {
		return nil, fmt.Errorf("calendar search: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("calendar search: status %s", resp.Status())
	}
	if len(out.Apartments) == 0 {
		return nil, domain.ErrNoAvailability
	}
	result := make([]adapter.AvailableApartment, 0, len(out.Apartments))
	for _, a := range out.Apartments {
		result = append(result, adapter.AvailableApartment{
			ID:    fmt.Sprintf("%d", a.ID),
			Title: a.Title,
		})
	}
	return result, nil
}

func (c *Client) QuoteNightly(ctx context.Context, apartmentID, checkIn, checkOut string) (int64, error) {
	nights, err := model.Nights(checkIn, checkOut)
	if err != nil {
		return 0, err
	}
	token, err := c.ensureToken(ctx)
	if err != nil {
		return 0, err
	}
	var out struct {
		Price float64 `json:"price"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("x-user-token", token).
		SetQueryParams(map[string]string{"begin_date": checkIn, "end_date": checkOut}).
		SetResult(&out).
		Get(fmt.Sprintf("/v2/apartments/%s/price", apartmentID))
	if err != nil {
		return 0, fmt.Errorf("calendar price %s: %w", apartmentID, err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("calendar price %s: status %s", apartmentID, resp.Status())
	}
	return int64(math.Ceil(out.Price / float64(nights))), nil
}

func (c *Client) CreateOfferLink(ctx context.Context, checkIn, checkOut string, items []adapter.OfferItem) (*adapter.Offer, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}
	type linkItem struct {
		ApartmentID     string `json:"apartment_id"`
		ApartmentTitle  string `json:"apartment_title"`
		Amount          int64  `json:"amount"`
		IsSpecialAmount bool   `json:"is_special_amount"`
	}
	body := map[string]interface{}{
		"begin_date":        checkIn,
		"end_date":          checkOut,
		"lifetime":          0,
		"extra_charge":      0,
		"extra_charge_type": "percent",
		"guests_count":      1,
	}
	reqItems := make([]linkItem, 0, len(items))
	for _, it := range items {
		reqItems = append(reqItems, linkItem{
			ApartmentID:    it.ApartmentID,
			ApartmentTitle: it.Title,
			Amount:         it.NightlyAmount,
		})
	}
	body["items"] = reqItems

	var out struct {
		Basket struct {
			URL    string `json:"url"`
			Source struct {
				Items []adapter.OfferItem `json:"items"`
			} `json:"source"`
		} `json:"basket"`
		Errors []string `json:"errors"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("x-user-token", token).
		SetBody(body).
		SetResult(&out).
		SetError(&out).
		Post("/v2/carts/copy_link")
	if err != nil {
		return nil, fmt.Errorf("calendar copy_link: %w", err)
	}
	if resp.IsError() {
		c.log.Warn().Int("status", resp.StatusCode()).Strs("errors", out.Errors).Msg("copy_link rejected")
		for _, e := range out.Errors {
			if strings.Contains(e, "войти в систему") {
				c.dropToken()
				return nil, domain.ErrAuthExpired
			}
		}
		return nil, domain.ErrLinkUnavailable
	}
	if out.Basket.URL == "" {
		return nil, domain.ErrLinkUnavailable
	}
	return &adapter.Offer{URL: out.Basket.URL, Items: out.Basket.Source.Items}, nil
}

func (c *Client) CreateBooking(ctx context.Context, customer adapter.BookingCustomer, apartmentID, checkIn, checkOut string, nightly int64) (*model.BookingRecord, error) {
	if _, err := model.Nights(checkIn, checkOut); err != nil {
		return nil, err
	}
	event := map[string]interface{}{
		"begin_date": checkIn,
		"end_date":   checkOut,
		"status":     5,
		"amount":     nightly,
		"notes":      "",
		"client_attributes": map[string]interface{}{
			"fio":              customer.Name,
			"phone":            customer.Phone,
			"additional_phone": "+77777777777",
			"email":            "vatsap@test.com",
		},
	}
	sign, err := c.signer.Sign(event)
	if err != nil {
		return nil, err
	}

	var out struct {
		ID int64 `json:"id"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Cache-Control", "no-cache").
		SetBody(map[string]interface{}{"event_calendar": event, "sign": sign}).
		SetResult(&out).
		Post(fmt.Sprintf("/api/v1/apartments/%s/event_calendars", apartmentID))
	if err != nil {
		return nil, fmt.Errorf("calendar create booking: %w", err)
	}
	if resp.StatusCode() != 201 {
		c.log.Warn().Int("status", resp.StatusCode()).Str("apartment_id", apartmentID).Msg("booking rejected")
		return nil, domain.ErrBookingRejected
	}
	return &model.BookingRecord{
		EventID:     fmt.Sprintf("%d", out.ID),
		ApartmentID: apartmentID,
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		Amount:      nightly,
		Phone:       customer.Phone,
	}, nil
}

// bearerToken runs the form-based v1 login used by delete and lookup. It is
// a separate auth flow from the v2 token.
func (c *Client) bearerToken(ctx context.Context) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "multipart/form-data").
		SetMultipartFormData(map[string]string{"login": c.username, "password": c.password}).
		SetResult(&out).
		Post("/api/v1/auth/login")
	if err != nil {
		return "", fmt.Errorf("calendar v1 login: %w", err)
	}
	if resp.IsError() || out.Token == "" {
		return "", fmt.Errorf("calendar v1 login: status %s", resp.Status())
	}
	return out.Token, nil
}

func (c *Client) DeleteBooking(ctx context.Context, apartmentID, eventID string) error {
	token, err := c.bearerToken(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCancelFailed, err)
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		Delete(fmt.Sprintf("/v2/event_calendars/%s", eventID))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCancelFailed, err)
	}
	if resp.StatusCode() != 200 && resp.StatusCode() != 204 {
		c.log.Warn().Int("status", resp.StatusCode()).Str("event_id", eventID).Msg("delete rejected")
		return domain.ErrCancelFailed
	}
	return nil
}

// normalizePhone keeps the digits of a phone for comparison.
func normalizePhone(p string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, p)
}

func (c *Client) FindBookingByPhone(ctx context.Context, phone string) (*model.BookingRecord, error) {
	if phone == "" {
		return nil, domain.ErrInvalidArgument
	}
	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	// The event calendar is windowed around today; active stays fall inside.
	now := time.Now()
	var out struct {
		Items []struct {
			ApartmentID int64 `json:"apartment_id"`
			Events      []struct {
				ID        int64   `json:"id"`
				BeginDate string  `json:"begin_date"`
				EndDate   string  `json:"end_date"`
				Amount    float64 `json:"amount"`
				Client    struct {
					Phone string `json:"phone"`
				} `json:"client"`
			} `json:"events"`
		} `json:"items"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-User-Token", token).
		SetQueryParams(map[string]string{
			"begin_date": now.AddDate(0, -1, 0).Format(dateLayout),
			"end_date":   now.AddDate(0, 2, 0).Format(dateLayout),
		}).
		SetQueryParamsFromValues(map[string][]string{"statuses[]": {"booked", "request"}}).
		SetResult(&out).
		Get("/v2/event_calendars/")
	if err != nil {
		return nil, fmt.Errorf("calendar lookup: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("calendar lookup: status %s", resp.Status())
	}

	want := normalizePhone(phone)
	for _, item := range out.Items {
		for _, ev := range item.Events {
			if ev.Client.Phone == "" {
				continue
			}
			if normalizePhone(ev.Client.Phone) == want {
				return &model.BookingRecord{
					EventID:     fmt.Sprintf("%d", ev.ID),
					ApartmentID: fmt.Sprintf("%d", item.ApartmentID),
					CheckIn:     ev.BeginDate,
					CheckOut:    ev.EndDate,
					Amount:      int64(ev.Amount),
					Phone:       ev.Client.Phone,
				}, nil
			}
		}
	}
	return nil, domain.ErrNotFound
}
