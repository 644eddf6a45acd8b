package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

type SMSGateway struct {
	baseURL  string
	apiKey   string
	signName string
	httpc    *http.Client
}

func NewSMSGateway(baseURL, apiKey, signName string) *SMSGateway {
	if baseURL == "" {
		baseURL = "http://localhost:9000"
	}
	return &SMSGateway{
		baseURL:  baseURL,
		apiKey:   apiKey,
		signName: signName,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type smsRequest struct {
	Phone    string `json:"phone"`
	SignName string `json:"signName"`
	Template string `json:"template"`
	Content  string `json:"content"`
}

type smsResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (g *SMSGateway) Send(ctx context.Context, phone, kind, message string) error {
	u, err := url.Parse(g.baseURL)
	if err != nil {
		return errors.Wrap(err, "parse base url")
	}
	u.Path = "/sms/send"

	body, err := json.Marshal(smsRequest{
		Phone:    phone,
		SignName: g.signName,
		Template: kind,
		Content:  message,
	})
	if err != nil {
		return errors.Wrap(err, "encode sms request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", g.apiKey)

	resp, err := g.httpc.Do(req)
	if err != nil {
		return errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("sms gateway http %d", resp.StatusCode)
	}

	var r smsResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return errors.Wrap(err, "decode")
	}
	if r.Code != "OK" {
		return fmt.Errorf("sms gateway code=%s message=%s", r.Code, r.Message)
	}
	return nil
}
