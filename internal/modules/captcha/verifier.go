// README: Human-challenge verification against the reCAPTCHA siteverify endpoint.
package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Peer-Ride/peer-ride-functions/internal/apperr"
	"github.com/Peer-Ride/peer-ride-functions/internal/config"
)

var (
	ErrTokenRequired  = apperr.InvalidArgument("captcha token is required")
	ErrRejected       = apperr.PermissionDenied("captcha verification failed")
	ErrLowScore       = apperr.PermissionDenied("captcha score too low")
	ErrActionMismatch = apperr.PermissionDenied("captcha action mismatch")
)

// Result mirrors the provider reply. Score is nil for challenges that are
// not scored (checkbox and invisible).
type Result struct {
	Success bool     `json:"success"`
	Score   *float64 `json:"score,omitempty"`
	Action  string   `json:"action"`
}

// siteverifyResponse is the provider's reply.
type siteverifyResponse struct {
	Success    bool     `json:"success"`
	Score      *float64 `json:"score"`
	Action     string   `json:"action"`
	Hostname   string   `json:"hostname"`
	ErrorCodes []string `json:"error-codes"`
}

type Verifier struct {
	cfg    config.RecaptchaConfig
	client *http.Client
}

func NewVerifier(cfg config.RecaptchaConfig) *Verifier {
	return &Verifier{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

// Verify checks token with the provider. When action is non-empty the
// provider must report the same action.
func (v *Verifier) Verify(ctx context.Context, token, action string) (Result, error) {
	if !v.cfg.Enabled {
		return Result{Success: true, Action: action}, nil
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return Result{}, ErrTokenRequired
	}

	form := url.Values{"secret": {v.cfg.Secret}, "response": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.VerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, fmt.Errorf("build siteverify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return Result{}, apperr.Unavailable("captcha provider unreachable: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Result{}, apperr.Unavailable("captcha provider returned %d", resp.StatusCode)
	}

	var body siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{}, apperr.Unavailable("captcha provider reply unreadable: %v", err)
	}

	res := Result{Success: body.Success, Score: body.Score, Action: body.Action}
	switch {
	case !body.Success:
		return res, ErrRejected
	case body.Score != nil && *body.Score < v.cfg.MinScore:
		return res, ErrLowScore
	case action != "" && body.Action != action:
		return res, ErrActionMismatch
	}
	return res, nil
}
