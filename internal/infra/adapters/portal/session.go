package portal

import (
	"encoding/json"
	"fmt"
	"os"
)

// Session holds the four cookie tokens the merchant portal requires. It is
// owned by the Portal and never exposed as mutable global state; a Stale
// session forces the browser-driven re-authentication path.
type Session struct {
	CSRFToken     string `json:"CSRF_Token"`
	AuthToken     string `json:"Auth_Token"`
	SecurityToken string `json:"Security_Token"`
	SessionToken  string `json:"Session_Token"`

	Stale bool `json:"-"`
}

// Complete reports whether all four tokens are present.
func (s Session) Complete() bool {
	return s.CSRFToken != "" && s.AuthToken != "" && s.SecurityToken != "" && s.SessionToken != ""
}

// CookieHeader renders the tokens as a Cookie header value.
func (s Session) CookieHeader() string {
	return fmt.Sprintf("CSRF_Token=%s; Auth_Token=%s; Security_Token=%s; Session_Token=%s",
		s.CSRFToken, s.AuthToken, s.SecurityToken, s.SessionToken)
}

// savedCookie matches the browser cookie dump persisted on disk, so tokens
// survive a process restart without re-running the login flow.
type savedCookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain,omitempty"`
	Path   string `json:"path,omitempty"`
}

func sessionFromCookies(cookies []savedCookie) Session {
	var s Session
	for _, c := range cookies {
		switch c.Name {
		case "CSRF_Token":
			s.CSRFToken = c.Value
		case "Auth_Token":
			s.AuthToken = c.Value
		case "Security_Token":
			s.SecurityToken = c.Value
		case "Session_Token":
			s.SessionToken = c.Value
		}
	}
	return s
}

func loadCookieFile(path string) ([]savedCookie, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cookies []savedCookie
	if err := json.Unmarshal(b, &cookies); err != nil {
		return nil, err
	}
	return cookies, nil
}

func writeCookieFile(path string, cookies []savedCookie) error {
	b, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}
