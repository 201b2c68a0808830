// Package docstore writes one document per reading to a Firebase Realtime
// Database over its REST API. Each write replaces the document at
// /{location}/{sensor}.
package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ghalamif/airdaq/internal/app/payload"
	"github.com/ghalamif/airdaq/internal/domain"
	"github.com/ghalamif/airdaq/internal/ports"
)

const (
	defaultAuthURL  = "https://identitytoolkit.googleapis.com/v1"
	defaultTokenURL = "https://securetoken.googleapis.com/v1/token"

	// refreshSkew renews the ID token this long before it expires.
	refreshSkew = time.Minute
)

type Config struct {
	DatabaseURL string `yaml:"database_url"`
	APIKey      string `yaml:"api_key"`
	// Email and Password select email sign-in; empty means anonymous sign-up.
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	AuthURL  string `yaml:"auth_url"`
	TokenURL string `yaml:"token_url"`
}

func (c *Config) ApplyDefaults() {
	if c.AuthURL == "" {
		c.AuthURL = defaultAuthURL
	}
	if c.TokenURL == "" {
		c.TokenURL = defaultTokenURL
	}
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database_url is required")
	}
	if c.APIKey == "" {
		return errors.New("api_key is required")
	}
	if (c.Email == "") != (c.Password == "") {
		return errors.New("email and password must be set together")
	}
	return nil
}

type session struct {
	idToken      string
	refreshToken string
	uid          string
	expires      time.Time
}

type Transport struct {
	name   string
	cfg    Config
	client *http.Client
	now    func() time.Time

	mu   sync.Mutex
	sess *session
}

func New(name string, cfg Config, client *http.Client) (*Transport, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("docstore %s: %w", name, err)
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Transport{
		name:   name,
		cfg:    cfg,
		client: client,
		now:    time.Now,
	}, nil
}

func (t *Transport) Name() string { return t.name }

// Open establishes an authenticated session.
func (t *Transport) Open(ctx context.Context) error {
	body := map[string]any{"returnSecureToken": true}
	endpoint := "/accounts:signUp"
	if t.cfg.Email != "" {
		endpoint = "/accounts:signInWithPassword"
		body["email"] = t.cfg.Email
		body["password"] = t.cfg.Password
	}

	var resp struct {
		IDToken      string `json:"idToken"`
		RefreshToken string `json:"refreshToken"`
		ExpiresIn    string `json:"expiresIn"`
		LocalID      string `json:"localId"`
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	u := strings.TrimRight(t.cfg.AuthURL, "/") + endpoint + "?key=" + url.QueryEscape(t.cfg.APIKey)
	if err := t.postJSON(ctx, u, "application/json", bytes.NewReader(raw), &resp); err != nil {
		return fmt.Errorf("docstore %s sign-in: %w", t.name, err)
	}
	if resp.IDToken == "" {
		return fmt.Errorf("docstore %s sign-in: empty id token", t.name)
	}

	t.mu.Lock()
	t.sess = &session{
		idToken:      resp.IDToken,
		refreshToken: resp.RefreshToken,
		uid:          resp.LocalID,
		expires:      t.now().Add(parseExpiry(resp.ExpiresIn)),
	}
	t.mu.Unlock()
	return nil
}

func (t *Transport) Ready() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sess != nil
}

// Send writes every reading in rec to its own path. Without a session it
// fails fast and makes no network call. A failed write does not stop the
// remaining readings; the outcome reports the first failure.
func (t *Transport) Send(ctx context.Context, rec *domain.Record) domain.UploadOutcome {
	paths := make([]string, len(rec.Readings))
	for i, rd := range rec.Readings {
		paths[i] = payload.DocumentPath(rec.Location, rd.ID)
	}
	target := strings.Join(paths, ",")

	token, err := t.token(ctx)
	if err != nil {
		return domain.Failed(t.name, target, 0, err)
	}

	var (
		status int
		failed *domain.UploadOutcome
	)
	for i, rd := range rec.Readings {
		var o domain.UploadOutcome
		body, err := payload.EncodeDocument(rec, rd)
		if err != nil {
			o = domain.Failed(t.name, paths[i], 0, err)
			o.Reason = domain.ReasonEncodeFailure
		} else if status, err = t.put(ctx, rec.Location, rd.ID, token, body); err != nil {
			o = domain.Failed(t.name, paths[i], status, err)
		} else {
			continue
		}
		if failed == nil {
			failed = &o
		}
	}
	if failed != nil {
		return *failed
	}
	return domain.Succeeded(t.name, target, status)
}

func (t *Transport) token(ctx context.Context) (string, error) {
	t.mu.Lock()
	sess := t.sess
	t.mu.Unlock()
	if sess == nil {
		return "", fmt.Errorf("docstore %s: %w", t.name, domain.ErrNotAuthenticated)
	}
	if t.now().Add(refreshSkew).Before(sess.expires) {
		return sess.idToken, nil
	}
	if err := t.refresh(ctx, sess.refreshToken); err != nil {
		t.mu.Lock()
		t.sess = nil
		t.mu.Unlock()
		return "", fmt.Errorf("docstore %s: refresh failed: %v: %w", t.name, err, domain.ErrNotAuthenticated)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sess.idToken, nil
}

func (t *Transport) refresh(ctx context.Context, refreshToken string) error {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	var resp struct {
		IDToken      string `json:"id_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    string `json:"expires_in"`
		UserID       string `json:"user_id"`
	}
	u := t.cfg.TokenURL + "?key=" + url.QueryEscape(t.cfg.APIKey)
	if err := t.postJSON(ctx, u, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()), &resp); err != nil {
		return err
	}
	if resp.IDToken == "" {
		return errors.New("empty id token")
	}

	t.mu.Lock()
	t.sess = &session{
		idToken:      resp.IDToken,
		refreshToken: resp.RefreshToken,
		uid:          resp.UserID,
		expires:      t.now().Add(parseExpiry(resp.ExpiresIn)),
	}
	t.mu.Unlock()
	return nil
}

func (t *Transport) put(ctx context.Context, location, id, token string, body []byte) (int, error) {
	u := strings.TrimRight(t.cfg.DatabaseURL, "/") + "/" + url.PathEscape(location) + "/" + url.PathEscape(id) +
		".json?auth=" + url.QueryEscape(token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return resp.StatusCode, fmt.Errorf("put %s: %s: %s", payload.DocumentPath(location, id), resp.Status, readReason(resp.Body))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func (t *Transport) postJSON(ctx context.Context, u, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%s: %s", resp.Status, readReason(resp.Body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func readReason(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, 512))
	var msg struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(raw, &msg) == nil && len(msg.Error) > 0 {
		return strings.Trim(string(msg.Error), `"`)
	}
	return strings.TrimSpace(string(raw))
}

func parseExpiry(s string) time.Duration {
	sec, err := strconv.Atoi(s)
	if err != nil || sec <= 0 {
		return time.Hour
	}
	return time.Duration(sec) * time.Second
}

var (
	_ ports.Transport = (*Transport)(nil)
	_ ports.Opener    = (*Transport)(nil)
)
