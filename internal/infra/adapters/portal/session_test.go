//go:build !integration

package portal

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestSession_Complete(t *testing.T) {
	full := Session{CSRFToken: "a", AuthToken: "b", SecurityToken: "c", SessionToken: "d"}
	if !full.Complete() {
		t.Fatal("expected complete session")
	}
	missing := full
	missing.SecurityToken = ""
	if missing.Complete() {
		t.Fatal("a missing token must not read as complete")
	}
}

func TestSession_CookieHeader(t *testing.T) {
	s := Session{CSRFToken: "csrf", AuthToken: "auth", SecurityToken: "sec", SessionToken: "sess"}
	h := s.CookieHeader()
	for _, want := range []string{"CSRF_Token=csrf", "Auth_Token=auth", "Security_Token=sec", "Session_Token=sess"} {
		if !strings.Contains(h, want) {
			t.Fatalf("header %q misses %q", h, want)
		}
	}
}

func TestSessionFromCookies(t *testing.T) {
	cookies := []savedCookie{
		{Name: "CSRF_Token", Value: "csrf"},
		{Name: "_ga", Value: "tracker"},
		{Name: "Auth_Token", Value: "auth"},
		{Name: "Security_Token", Value: "sec"},
		{Name: "Session_Token", Value: "sess"},
	}
	s := sessionFromCookies(cookies)
	if !s.Complete() {
		t.Fatalf("expected complete session, got %+v", s)
	}
	if s.CSRFToken != "csrf" || s.SessionToken != "sess" {
		t.Fatalf("unexpected tokens %+v", s)
	}
}

func TestCookieFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	cookies := []savedCookie{
		{Name: "CSRF_Token", Value: "csrf", Domain: "portal.example", Path: "/"},
		{Name: "Session_Token", Value: "sess"},
	}

	if err := writeCookieFile(path, cookies); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	got, err := loadCookieFile(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(got) != 2 || got[0].Value != "csrf" || got[1].Name != "Session_Token" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestLoadCookieFile_Missing(t *testing.T) {
	if _, err := loadCookieFile(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
