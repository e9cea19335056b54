// services/oauth_client.go
package services

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// OAuthClient does the code-for-token exchange and profile fetch against
// Google and the Facebook Graph API.
type OAuthClient struct {
	HTTPClient *http.Client

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	FacebookAppID       string
	FacebookAppSecret   string
	FacebookRedirectURL string
}

func NewOAuthClient() *OAuthClient {
	return &OAuthClient{
		HTTPClient:          &http.Client{Timeout: 15 * time.Second},
		GoogleClientID:      os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:  os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:   os.Getenv("GOOGLE_REDIRECT_URL"),
		FacebookAppID:       os.Getenv("FACEBOOK_APP_ID"),
		FacebookAppSecret:   os.Getenv("FACEBOOK_APP_SECRET"),
		FacebookRedirectURL: os.Getenv("FACEBOOK_REDIRECT_URL"),
	}
}

// OAuthProfile is the provider-agnostic identity both exchanges produce.
type OAuthProfile struct {
	ProviderID string
	Email      string
	Name       string
}

func (o *OAuthClient) GoogleAuthURL() string {
	q := url.Values{}
	q.Set("client_id", o.GoogleClientID)
	q.Set("redirect_uri", o.GoogleRedirectURL)
	q.Set("response_type", "code")
	q.Set("scope", "openid email profile")
	return "https://accounts.google.com/o/oauth2/v2/auth?" + q.Encode()
}

func (o *OAuthClient) FacebookAuthURL() string {
	q := url.Values{}
	q.Set("client_id", o.FacebookAppID)
	q.Set("redirect_uri", o.FacebookRedirectURL)
	q.Set("response_type", "code")
	q.Set("scope", "email,public_profile")
	return "https://www.facebook.com/v19.0/dialog/oauth?" + q.Encode()
}

// ExchangeGoogle swaps the authorization code for an access token and fetches
// the userinfo document.
func (o *OAuthClient) ExchangeGoogle(code string) (*OAuthProfile, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", o.GoogleClientID)
	form.Set("client_secret", o.GoogleClientSecret)
	form.Set("redirect_uri", o.GoogleRedirectURL)
	form.Set("grant_type", "authorization_code")

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := o.postForm("https://oauth2.googleapis.com/token", form, &tokenResp); err != nil {
		return nil, fmt.Errorf("google token exchange: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("google token exchange returned no access token")
	}

	var info struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := o.getJSON("https://openidconnect.googleapis.com/v1/userinfo", tokenResp.AccessToken, &info); err != nil {
		return nil, fmt.Errorf("google userinfo: %w", err)
	}
	return &OAuthProfile{ProviderID: info.Sub, Email: info.Email, Name: info.Name}, nil
}

// ExchangeFacebook swaps the code via the Graph API and fetches id/name/email.
func (o *OAuthClient) ExchangeFacebook(code string) (*OAuthProfile, error) {
	q := url.Values{}
	q.Set("code", code)
	q.Set("client_id", o.FacebookAppID)
	q.Set("client_secret", o.FacebookAppSecret)
	q.Set("redirect_uri", o.FacebookRedirectURL)

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := o.getJSONURL("https://graph.facebook.com/v19.0/oauth/access_token?"+q.Encode(), &tokenResp); err != nil {
		return nil, fmt.Errorf("facebook token exchange: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("facebook token exchange returned no access token")
	}

	var info struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	meURL := "https://graph.facebook.com/v19.0/me?fields=id,name,email&access_token=" + url.QueryEscape(tokenResp.AccessToken)
	if err := o.getJSONURL(meURL, &info); err != nil {
		return nil, fmt.Errorf("facebook profile: %w", err)
	}
	return &OAuthProfile{ProviderID: info.ID, Email: info.Email, Name: info.Name}, nil
}

func (o *OAuthClient) postForm(endpoint string, form url.Values, out interface{}) error {
	resp, err := o.HTTPClient.Post(endpoint, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeOAuthResponse(resp, out)
}

func (o *OAuthClient) getJSON(endpoint, bearer string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeOAuthResponse(resp, out)
}

func (o *OAuthClient) getJSONURL(endpoint string, out interface{}) error {
	resp, err := o.HTTPClient.Get(endpoint)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeOAuthResponse(resp, out)
}

func decodeOAuthResponse(resp *http.Response, out interface{}) error {
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
