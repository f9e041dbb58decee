package browser

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
)

// SessionStore persists browser cookies between runs so a successful login
// can be reused.
type SessionStore struct {
	path string
	now  func() time.Time
}

type storedCookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	Session  bool    `json:"session"`
	SameSite string  `json:"sameSite,omitempty"`
}

type sessionFile struct {
	SavedAt time.Time      `json:"saved_at"`
	Cookies []storedCookie `json:"cookies"`
}

func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path, now: time.Now}
}

func (s *SessionStore) Path() string {
	return s.path
}

func (s *SessionStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load returns the stored cookies that have not expired. A missing file is
// not an error.
func (s *SessionStore) Load() ([]*network.CookieParam, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	var file sessionFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}

	now := s.now()
	params := make([]*network.CookieParam, 0, len(file.Cookies))
	for _, c := range file.Cookies {
		p := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		}
		if c.SameSite != "" {
			p.SameSite = network.CookieSameSite(c.SameSite)
		}
		if !c.Session && c.Expires > 0 {
			expires := time.Unix(0, int64(c.Expires*float64(time.Second)))
			if expires.Before(now) {
				continue
			}
			t := cdp.TimeSinceEpoch(expires)
			p.Expires = &t
		}
		params = append(params, p)
	}
	return params, nil
}

func (s *SessionStore) Save(cookies []*network.Cookie) error {
	file := sessionFile{SavedAt: s.now().UTC(), Cookies: make([]storedCookie, 0, len(cookies))}
	for _, c := range cookies {
		file.Cookies = append(file.Cookies, storedCookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			Session:  c.Session,
			SameSite: string(c.SameSite),
		})
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Delete removes the stored session. Deleting a missing session succeeds.
func (s *SessionStore) Delete() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
