// Package platform provides the transport to the gaming platform's identity and
// social-graph services
package platform

import (
	"encoding/base64"
	"encoding/json"
)

// ClientCredential is the application's client identifier and secret pair
type ClientCredential struct {
	ID     string
	Secret string
}

// BasicAuth returns the Authorization header value for client-level calls
func (c ClientCredential) BasicAuth() string {
	return "basic " + base64.StdEncoding.EncodeToString([]byte(c.ID+":"+c.Secret))
}

// DeviceAuthorization is the device code payload issued by the account service
type DeviceAuthorization struct {
	DeviceCode              string `json:"device_code"`
	VerificationURI         string `json:"verification_uri"`
	VerificationURIComplete string `json:"verification_uri_complete"`
	UserCode                string `json:"user_code"`
	ExpiresIn               int    `json:"expires_in"` // Seconds until the code expires server-side
	Interval                int    `json:"interval"`   // Suggested poll interval in seconds
}

// PollResponse is the uninterpreted result of one device code token request.
// The caller decides what the status and body mean.
type PollResponse struct {
	StatusCode int
	Body       []byte
}

// Successful reports whether the token endpoint answered with a 2xx status
func (r *PollResponse) Successful() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Friend is one entry of the user's friends list
type Friend struct {
	AccountID   string  `json:"accountId"`
	DisplayName string  `json:"displayName"`
	Alias       *string `json:"alias,omitempty"`
	Status      *string `json:"status,omitempty"`
	Favorite    *bool   `json:"favorite,omitempty"`
	Created     *string `json:"created,omitempty"`
}

// FriendsSummary is the friends summary document. Lists other than Friends
// are passed through untouched for display.
type FriendsSummary struct {
	Friends   []Friend          `json:"friends"`
	Incoming  []json.RawMessage `json:"incoming,omitempty"`
	Outgoing  []json.RawMessage `json:"outgoing,omitempty"`
	Suggested []json.RawMessage `json:"suggested,omitempty"`
	Blocklist []json.RawMessage `json:"blocklist,omitempty"`
}

// DisplayNames indexes friend display names by account id
func (s *FriendsSummary) DisplayNames() map[string]string {
	names := make(map[string]string, len(s.Friends))
	for _, f := range s.Friends {
		names[f.AccountID] = f.DisplayName
	}
	return names
}
