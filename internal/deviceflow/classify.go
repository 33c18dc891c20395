package deviceflow

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/wrale/friendsweep/internal/platform"
)

// Token endpoint error values
const (
	errorAuthorizationPending = "authorization_pending"
	errorSlowDown             = "slow_down"
	errorExpiredToken         = "expired_token"
	errorAccessDenied         = "access_denied"
)

type tokenErrorBody struct {
	Error     string `json:"error"`
	ErrorCode string `json:"errorCode"` // Namespaced platform code, e.g. errors.com.epicgames.account.oauth.slow_down
}

// errorValue returns the error field, falling back to the last segment of
// the namespaced errorCode
func (b tokenErrorBody) errorValue() string {
	if b.Error != "" {
		return b.Error
	}
	if i := strings.LastIndex(b.ErrorCode, "."); i >= 0 {
		return b.ErrorCode[i+1:]
	}
	return b.ErrorCode
}

// Classify interprets one raw token poll response
func Classify(resp *platform.PollResponse) Outcome {
	if resp.Successful() {
		var auth Authorization
		if err := json.Unmarshal(resp.Body, &auth); err != nil {
			return Outcome{Kind: OutcomeTerminal, Err: fmt.Errorf("%w: %v", ErrInvalidTokenResponse, err)}
		}
		if auth.AccessToken == "" || auth.AccountID == "" {
			return Outcome{Kind: OutcomeTerminal, Err: fmt.Errorf("%w: missing access token or account id", ErrInvalidTokenResponse)}
		}
		return Outcome{Kind: OutcomeResolved, Authorization: &auth}
	}

	var body tokenErrorBody
	parsed := json.Unmarshal(resp.Body, &body) == nil

	switch body.errorValue() {
	case errorAuthorizationPending:
		return Outcome{Kind: OutcomePending, Err: ErrAuthorizationPending}
	case errorSlowDown:
		return Outcome{Kind: OutcomeSlowDown, Err: ErrSlowDown}
	case errorExpiredToken:
		return Outcome{Kind: OutcomeTerminal, Err: ErrAuthorizationExpired}
	case errorAccessDenied:
		return Outcome{Kind: OutcomeTerminal, Err: ErrAuthorizationDenied}
	}

	// Unrecognized or unparsable answers keep polling only on a plain 400
	if resp.StatusCode == http.StatusBadRequest {
		return Outcome{Kind: OutcomePending, Err: ErrAuthorizationPending}
	}

	upstream := &platform.UpstreamError{
		Op:     platform.OpPollToken,
		Status: resp.StatusCode,
		Body:   string(resp.Body),
	}
	if !parsed {
		return Outcome{Kind: OutcomeTerminal, Err: fmt.Errorf("unparsable token response: %w", upstream)}
	}
	return Outcome{Kind: OutcomeTerminal, Err: upstream}
}
