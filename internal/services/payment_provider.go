package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ProviderIntent is what the external provider hands back when an intent is
// created: its id plus the client secret the frontend confirms with.
type ProviderIntent struct {
	ID           string
	ClientSecret string
	Status       string
}

// PaymentProvider is the outbound boundary to the card-payment provider.
// Implementations must bound every call with the context deadline; a
// timeout is reported as an error, never as success.
type PaymentProvider interface {
	CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*ProviderIntent, error)
	CreateTransfer(ctx context.Context, amountCents int64, currency string, destination string, metadata map[string]string) (string, error)
	CreateAccount(ctx context.Context, email string) (string, error)
	CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error)
}

// StripeProvider talks to the Stripe REST API directly. The API is plain
// form-encoded HTTP, so a small client keeps the whole boundary visible
// and mockable.
type StripeProvider struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

func NewStripeProvider(baseURL, secretKey string, timeout time.Duration) *StripeProvider {
	return &StripeProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (p *StripeProvider) CreateIntent(
	ctx context.Context,
	amountCents int64,
	currency string,
	metadata map[string]string,
) (*ProviderIntent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountCents, 10))
	form.Set("currency", currency)
	form.Set("automatic_payment_methods[enabled]", "true")
	for key, value := range metadata {
		form.Set(fmt.Sprintf("metadata[%s]", key), value)
	}

	var intent struct {
		ID           string `json:"id"`
		ClientSecret string `json:"client_secret"`
		Status       string `json:"status"`
	}
	if err := p.post(ctx, "/v1/payment_intents", form, &intent); err != nil {
		return nil, err
	}
	return &ProviderIntent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       intent.Status,
	}, nil
}

func (p *StripeProvider) CreateTransfer(
	ctx context.Context,
	amountCents int64,
	currency string,
	destination string,
	metadata map[string]string,
) (string, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountCents, 10))
	form.Set("currency", currency)
	form.Set("destination", destination)
	for key, value := range metadata {
		form.Set(fmt.Sprintf("metadata[%s]", key), value)
	}

	var transfer struct {
		ID string `json:"id"`
	}
	if err := p.post(ctx, "/v1/transfers", form, &transfer); err != nil {
		return "", err
	}
	return transfer.ID, nil
}

// CreateAccount provisions an express account for a coach. Payouts stay
// disabled until the account.updated callback reports otherwise.
func (p *StripeProvider) CreateAccount(ctx context.Context, email string) (string, error) {
	form := url.Values{}
	form.Set("type", "express")
	if email != "" {
		form.Set("email", email)
	}

	var account struct {
		ID string `json:"id"`
	}
	if err := p.post(ctx, "/v1/accounts", form, &account); err != nil {
		return "", err
	}
	return account.ID, nil
}

func (p *StripeProvider) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	form := url.Values{}
	form.Set("account", accountID)
	form.Set("refresh_url", refreshURL)
	form.Set("return_url", returnURL)
	form.Set("type", "account_onboarding")

	var link struct {
		URL string `json:"url"`
	}
	if err := p.post(ctx, "/v1/account_links", form, &link); err != nil {
		return "", err
	}
	return link.URL, nil
}

// post wraps every provider error, transport or HTTP, into
// ErrProviderFailure so callers stay provider-agnostic.
func (p *StripeProvider) post(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		p.baseURL+path,
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s returned status %d", ErrProviderFailure, path, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}
	return nil
}
