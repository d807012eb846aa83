package portal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"rental-booking-bot/internal/domain"
	"rental-booking-bot/internal/domain/ports/adapter"
	"rental-booking-bot/internal/infra/metrics"
)

var _ adapter.PaymentPortal = (*Portal)(nil)

// Portal lists today's incoming transfers from the Kaspi merchant portal.
// Tier 1 reuses cached session tokens over plain HTTP; when the portal
// answers unauthorized the tokens are stale and tier 2 re-authenticates
// through the shared browser, persisting the fresh cookies for next time.
type Portal struct {
	http      *resty.Client
	login     string
	password  string
	serviceID string
	cookiePath string
	browser   *Browser
	log       *zerolog.Logger

	// mu guards session; only one authentication flow runs at a time.
	mu      sync.Mutex
	session Session
	loaded  bool
}

func NewPortal(baseURL, login, password, serviceID, cookiePath string, browser *Browser, logger *zerolog.Logger) *Portal {
	pLog := logger.With().Str("component", "KaspiPortal").Logger()
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json, text/javascript, */*; q=0.01").
		SetHeader("Origin", baseURL).
		SetHeader("Referer", baseURL+"/new").
		SetHeader("X-Requested-With", "XMLHttpRequest").
		SetTimeout(20 * time.Second)
	return &Portal{
		http:      httpClient,
		login:     login,
		password:  password,
		serviceID: serviceID,
		cookiePath: cookiePath,
		browser:   browser,
		log:       &pLog,
	}
}

// currentSession returns the cached session, reading the on-disk cookie
// mirror on first use so a restarted process can skip the login flow.
func (p *Portal) currentSession() Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded {
		p.loaded = true
		if cookies, err := loadCookieFile(p.cookiePath); err == nil {
			p.session = sessionFromCookies(cookies)
		} else if !os.IsNotExist(err) {
			p.log.Warn().Err(err).Msg("cookie cache unreadable")
		}
	}
	return p.session
}

func (p *Portal) storeSession(s Session) {
	p.mu.Lock()
	p.session = s
	p.mu.Unlock()
}

// TodayOperations tries cached tokens first and falls back to a browser
// login only when the portal rejects them.
func (p *Portal) TodayOperations(ctx context.Context) ([]adapter.Operation, error) {
	session := p.currentSession()
	if session.Complete() && !session.Stale {
		ops, err := p.fetchOperations(ctx, session)
		if err == nil {
			metrics.PaymentChecks.WithLabelValues("fast", "found").Inc()
			return ops, nil
		}
		if !errors.Is(err, domain.ErrAuthExpired) {
			metrics.PaymentChecks.WithLabelValues("fast", "error").Inc()
			return nil, err
		}
		// Stale cache, not an error: fall through to the browser.
		p.log.Info().Msg("portal session stale, re-authenticating")
		session.Stale = true
		p.storeSession(session)
	}

	session, err := p.authenticate(ctx)
	if err != nil {
		metrics.PortalLogins.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.PortalLogins.WithLabelValues("ok").Inc()

	ops, err := p.fetchOperations(ctx, session)
	if err != nil {
		metrics.PaymentChecks.WithLabelValues("slow", "error").Inc()
		return nil, err
	}
	metrics.PaymentChecks.WithLabelValues("slow", "found").Inc()
	return ops, nil
}

// fetchOperations issues the operations-list request for today's range.
// A 401 maps to domain.ErrAuthExpired so callers can distinguish a stale
// session from a real failure.
func (p *Portal) fetchOperations(ctx context.Context, session Session) ([]adapter.Operation, error) {
	today := time.Now().Format("2006-01-02")
	body := map[string]interface{}{
		"searchText": "",
		"searchType": "0",
		"startDate":  today + "T00:00:00",
		"endDate":    today + "T23:59:59",
		"services":   []string{p.serviceID},
	}

	var out struct {
		Data []adapter.Operation `json:"data"`
	}
	resp, err := p.http.R().
		SetContext(ctx).
		SetHeader("Cookie", session.CookieHeader()).
		SetBody(body).
		SetResult(&out).
		Post("/new/Operation/GetOperations")
	if err != nil {
		return nil, fmt.Errorf("portal operations: %w", err)
	}
	if resp.StatusCode() == http.StatusUnauthorized {
		return nil, domain.ErrAuthExpired
	}
	if resp.IsError() {
		return nil, fmt.Errorf("portal operations: status %s", resp.Status())
	}
	return out.Data, nil
}

// authenticate drives the browser login flow and returns a fresh session.
// Only one flow runs at a time; a second caller blocked on the mutex reuses
// the session the first one produced.
func (p *Portal) authenticate(ctx context.Context) (Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session.Complete() && !p.session.Stale {
		return p.session, nil
	}

	tabCtx, closeTab, err := p.browser.Tab(ctx)
	if err != nil {
		return Session{}, fmt.Errorf("portal browser: %w", err)
	}
	defer closeTab()

	tabCtx, cancel := context.WithTimeout(tabCtx, 2*time.Minute)
	defer cancel()

	// Seed the tab with any persisted cookies so a still-valid login is
	// detected instead of repeated.
	persisted, _ := loadCookieFile(p.cookiePath)
	if err := chromedp.Run(tabCtx, setCookies(p.http.BaseURL, persisted)); err != nil {
		return Session{}, fmt.Errorf("portal set cookies: %w", err)
	}

	if err := chromedp.Run(tabCtx, chromedp.Navigate(p.http.BaseURL+"/new")); err != nil {
		return Session{}, fmt.Errorf("portal navigate: %w", err)
	}

	var loggedIn bool
	if err := chromedp.Run(tabCtx, chromedp.Evaluate(
		`!!document.querySelector('a[href*="logout"]') || !!document.querySelector('.logout-button')`,
		&loggedIn,
	)); err != nil {
		return Session{}, fmt.Errorf("portal login check: %w", err)
	}

	if !loggedIn {
		p.log.Info().Msg("portal login required")
		if err := chromedp.Run(tabCtx,
			chromedp.WaitVisible("#Login", chromedp.ByID),
			chromedp.Click("#Login", chromedp.ByID),
			chromedp.SendKeys("#Login", p.login, chromedp.ByID),
			chromedp.Click("#submit", chromedp.ByID),
			chromedp.WaitVisible("#Password", chromedp.ByID),
			chromedp.SendKeys("#Password", p.password, chromedp.ByID),
			chromedp.Click("#submit", chromedp.ByID),
			chromedp.WaitVisible(`a[href*="logout"], .logout-button`, chromedp.ByQuery),
		); err != nil {
			return Session{}, fmt.Errorf("portal login flow: %w", err)
		}
	}

	var cookies []savedCookie
	if err := chromedp.Run(tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		got, err := network.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range got {
			cookies = append(cookies, savedCookie{Name: c.Name, Value: c.Value, Domain: c.Domain, Path: c.Path})
		}
		return nil
	})); err != nil {
		return Session{}, fmt.Errorf("portal read cookies: %w", err)
	}

	if err := writeCookieFile(p.cookiePath, cookies); err != nil {
		p.log.Warn().Err(err).Msg("cookie cache not persisted")
	}

	session := sessionFromCookies(cookies)
	if !session.Complete() {
		return Session{}, domain.ErrAuthExpired
	}
	p.session = session
	return session, nil
}

// setCookies installs persisted cookies into the tab before navigation.
func setCookies(baseURL string, cookies []savedCookie) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		for _, c := range cookies {
			param := network.SetCookie(c.Name, c.Value)
			if c.Domain != "" {
				param = param.WithDomain(c.Domain)
			} else {
				param = param.WithURL(baseURL)
			}
			if c.Path != "" {
				param = param.WithPath(c.Path)
			}
			if err := param.Do(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}
