package client

import (
	"fmt"
	"net/url"
)

// RentalsClient calls the rentals API as one authenticated user.
type RentalsClient struct {
	httpClient *HttpClient
}

func NewRentalsClient(baseURL, token string) *RentalsClient {
	c := NewHttpClient(baseURL)
	c.Token = token
	return &RentalsClient{httpClient: c}
}

func (c *RentalsClient) HTTP() *HttpClient {
	return c.httpClient
}

func (c *RentalsClient) Initiate(body any) (*Response, error) {
	return c.httpClient.POST("/api/v1/rentals/initiate", body)
}

func (c *RentalsClient) Confirm(body any, idempotencyKey string) (*Response, error) {
	if idempotencyKey == "" {
		return c.httpClient.POST("/api/v1/rentals/confirm", body)
	}
	return c.httpClient.POSTWithHeaders("/api/v1/rentals/confirm", body, map[string]string{
		"Idempotency-Key": idempotencyKey,
	})
}

func (c *RentalsClient) VerifyOtp(rentalID, userID, otp string) (*Response, error) {
	return c.httpClient.POST("/api/v1/rentals/otp-verify", map[string]string{
		"rental_id": rentalID,
		"user_id":   userID,
		"otp":       otp,
	})
}

func (c *RentalsClient) Orders(userID string, step, limit int) (*Response, error) {
	path := fmt.Sprintf("/api/v1/rentals/user/%s/orders?step=%d&limit=%d", url.PathEscape(userID), step, limit)
	return c.httpClient.GET(path)
}

func (c *RentalsClient) TopMatches(query url.Values) (*Response, error) {
	path := "/api/v1/matches/top"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return c.httpClient.GET(path)
}

func (c *RentalsClient) AdminConfirm(rentalID string) (*Response, error) {
	return c.httpClient.POST("/api/v1/admin/rentals/"+url.PathEscape(rentalID)+"/confirm", nil)
}

func (c *RentalsClient) AdminCancel(rentalID, reason string) (*Response, error) {
	return c.httpClient.POST("/api/v1/admin/rentals/"+url.PathEscape(rentalID)+"/cancel", map[string]string{"reason": reason})
}

func (c *RentalsClient) AdminComplete(rentalID string) (*Response, error) {
	return c.httpClient.POST("/api/v1/admin/rentals/"+url.PathEscape(rentalID)+"/complete", nil)
}

func (c *RentalsClient) AdminActive(city string, step, limit int) (*Response, error) {
	q := url.Values{}
	if city != "" {
		q.Set("city", city)
	}
	q.Set("step", fmt.Sprint(step))
	q.Set("limit", fmt.Sprint(limit))
	return c.httpClient.GET("/api/v1/admin/rentals/active?" + q.Encode())
}

func (c *RentalsClient) AdminPending(step, limit int) (*Response, error) {
	return c.httpClient.GET(fmt.Sprintf("/api/v1/admin/rentals/pending?step=%d&limit=%d", step, limit))
}
