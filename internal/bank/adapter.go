package bank

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/frahmantamala/payment-engine/internal"
)

// SyncResult is what a successful institution sync reports.
type SyncResult struct {
	LoginID       string    `json:"login_id"`
	AccountsSeen  int       `json:"accounts_seen"`
	BalancesAsOf  time.Time `json:"balances_as_of"`
	InstitutionID string    `json:"institution_id"`
}

// Adapter is the stubbed bank connectivity client. When a mock API URL is
// configured it calls it; otherwise (or on request-build failure paths in
// simulate mode) it fabricates outcomes with the configured failure rate.
// Real institution connectivity is out of scope.
type Adapter struct {
	apiURL      string
	apiKey      string
	timeout     time.Duration
	simulate    bool
	failureRate float64
	client      *http.Client
	logger      *slog.Logger
	rng         *rand.Rand
}

type AdapterConfig struct {
	MockAPIURL  string
	APIKey      string
	Timeout     time.Duration
	Simulate    bool
	FailureRate float64
}

func NewAdapter(cfg AdapterConfig, logger *slog.Logger) *Adapter {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Adapter{
		apiURL:      cfg.MockAPIURL,
		apiKey:      cfg.APIKey,
		timeout:     timeout,
		simulate:    cfg.Simulate,
		failureRate: cfg.FailureRate,
		client:      &http.Client{Timeout: timeout},
		logger:      logger,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Sync pulls the institution state for a login. Failures are categorized:
// timeouts and 5xx responses are external_dependency and therefore
// retryable.
func (a *Adapter) Sync(ctx context.Context, loginID string) (*SyncResult, *internal.AppError) {
	if a.simulate {
		return a.simulateSync(ctx, loginID)
	}

	url := fmt.Sprintf("%s/v1/logins/%s/sync", a.apiURL, loginID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, internal.NewSystemError(internal.ReasonUnknown, "failed to build sync request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	a.logger.Info("syncing bank login", "login_id", loginID, "url", url)

	resp, err := a.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, internal.NewTimeoutError(internal.ReasonBankTimeout, "bank sync timed out", err)
		}
		return nil, internal.NewExternalError(internal.ReasonBankUnavailable, "bank API unreachable", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, internal.NewNotFoundError(internal.ReasonLoginNotFound, "login unknown to the institution")
	case resp.StatusCode >= 500:
		return nil, internal.NewExternalError(internal.ReasonBankUnavailable,
			fmt.Sprintf("bank API returned status %d", resp.StatusCode), nil)
	case resp.StatusCode != http.StatusOK:
		return nil, internal.NewSystemError(internal.ReasonUnknown,
			fmt.Sprintf("unexpected bank API status %d", resp.StatusCode), nil)
	}

	var result SyncResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, internal.NewExternalError(internal.ReasonBankUnavailable, "failed to decode sync response", err)
	}
	result.LoginID = loginID

	a.logger.Info("bank login synced",
		"login_id", loginID,
		"accounts_seen", result.AccountsSeen)

	return &result, nil
}

func (a *Adapter) simulateSync(ctx context.Context, loginID string) (*SyncResult, *internal.AppError) {
	delay := time.Duration(100+a.rng.Intn(400)) * time.Millisecond
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return nil, internal.NewTimeoutError(internal.ReasonBankTimeout, "bank sync timed out", ctx.Err())
	}

	if a.rng.Float64() < a.failureRate {
		a.logger.Warn("simulated bank sync failure", "login_id", loginID)
		return nil, internal.NewExternalError(internal.ReasonBankUnavailable, "simulated bank outage", nil)
	}

	return &SyncResult{
		LoginID:       loginID,
		AccountsSeen:  1 + a.rng.Intn(4),
		BalancesAsOf:  time.Now().UTC(),
		InstitutionID: "sim-institution",
	}, nil
}
