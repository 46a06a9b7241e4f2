package auth

import (
	"fmt"

	"golang.org/x/oauth2/clientcredentials"
)

// Conf represents the configuration needed for authentication.
// It includes the client ID, client secret, and the token URL.
type Conf struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	TokenURL     string   `json:"token_url"`
	Scopes       []string `json:"scopes"`
}

// Enabled reports whether credentials are configured.
func (c Conf) Enabled() bool { return c.ClientID != "" }

// Validate checks that an enabled configuration is complete.
func (c Conf) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if c.ClientSecret == "" || c.TokenURL == "" {
		return fmt.Errorf("auth: client_secret and token_url are required with client_id")
	}
	return nil
}

func (c *Conf) toOauth2Config() clientcredentials.Config {
	return clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.TokenURL,
		Scopes:       c.Scopes,
	}
}
