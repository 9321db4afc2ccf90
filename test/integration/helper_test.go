package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/taskory/taskory/internal/config"
	"github.com/taskory/taskory/internal/database"
	"github.com/taskory/taskory/internal/http/handler"
	"github.com/taskory/taskory/internal/http/router"
	"github.com/taskory/taskory/internal/notify"
	"github.com/taskory/taskory/internal/repository"
	"github.com/taskory/taskory/internal/security"
	"github.com/taskory/taskory/internal/service"
)

// mailbox captures enqueued notifications synchronously so tests can pull
// the verification token out of the rendered confirmation mail.
type mailbox struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (m *mailbox) Enqueue(msg notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *mailbox) lastVerificationToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].Kind != notify.KindVerificationEmail {
			continue
		}
		for _, line := range strings.Fields(m.messages[i].Body) {
			if !strings.Contains(line, "token=") {
				continue
			}
			u, err := url.Parse(line)
			if err != nil {
				t.Fatalf("parse confirmation link %q: %v", line, err)
			}
			return u.Query().Get("token")
		}
	}
	t.Fatal("no verification mail captured")
	return ""
}

func (m *mailbox) count(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, msg := range m.messages {
		if msg.Kind == kind {
			n++
		}
	}
	return n
}

type testServerOptions struct {
	loginStrategy string
	cfgOverride   func(cfg *config.Config)
	storage       service.StorageService
}

type testServer struct {
	baseURL string
	client  *http.Client
	mail    *mailbox
	db      *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	return newTestServerWithOptions(t, testServerOptions{})
}

func newTestServerWithOptions(t *testing.T, opts testServerOptions) *testServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := &config.Config{
		JWTIssuer:          "taskory-test",
		SecretKey:          "abcdefghijklmnopqrstuvwxyz123456",
		TokenLeeway:        30 * time.Second,
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    24 * time.Hour,
		VerifyTokenTTL:     30 * time.Minute,
		VerifyBaseURL:      "http://localhost:8080/api/v1/accounts/confirm",
		LoginTokenStrategy: config.LoginStrategyOpaque,
		PasswordMinLength:  8,
	}
	if opts.loginStrategy != "" {
		cfg.LoginTokenStrategy = opts.loginStrategy
	}
	if opts.cfgOverride != nil {
		opts.cfgOverride(cfg)
	}

	accountRepo := repository.NewAccountRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	accessTokenRepo := repository.NewAccessTokenRepository(db)

	codec := security.NewTokenCodec(cfg.JWTIssuer, cfg.SecretKey, nil, cfg.TokenLeeway)
	policy := security.NewDefaultPasswordPolicy(cfg.PasswordMinLength)
	mail := &mailbox{}

	authSvc := service.NewAuthService(cfg, accountRepo, codec, policy, mail)
	tokenSvc := service.NewTokenService(cfg, codec, accessTokenRepo, accountRepo)
	taskSvc := service.NewTaskService(taskRepo)
	profileSvc := service.NewProfileService(profileRepo, opts.storage)

	r := router.NewRouter(router.Dependencies{
		AuthHandler:      handler.NewAuthHandler(authSvc, tokenSvc, cfg.LoginTokenStrategy),
		TaskHandler:      handler.NewTaskHandler(taskSvc),
		ProfileHandler:   handler.NewProfileHandler(profileSvc),
		TokenService:     tokenSvc,
		CORSOrigins:      []string{"http://localhost"},
		AuthRateLimitRPM: 1000,
		APIRateLimitRPM:  1000,
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testServer{baseURL: srv.URL, client: srv.Client(), mail: mail, db: db}
}

type errorEnvelope struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

func (s *testServer) errorCode(t *testing.T, raw []byte) string {
	t.Helper()
	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Error == nil {
		t.Fatalf("expected error envelope, got %q", raw)
	}
	return env.Error.Code
}

// registerAndConfirm walks a fresh account through registration and email
// confirmation, returning nothing; the caller logs in with the credentials.
func (s *testServer) registerAndConfirm(t *testing.T, email, password string) {
	t.Helper()
	resp, raw := s.do(t, http.MethodPost, "/api/v1/accounts/register", map[string]string{
		"email": email, "password": password, "password_confirm": password,
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register failed: status=%d body=%s", resp.StatusCode, raw)
	}
	token := s.mail.lastVerificationToken(t)
	resp, raw = s.do(t, http.MethodGet, "/api/v1/accounts/confirm?token="+url.QueryEscape(token), nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm failed: status=%d body=%s", resp.StatusCode, raw)
	}
}

// loginOpaque logs in under the opaque strategy and returns the key.
func (s *testServer) loginOpaque(t *testing.T, email, password string) string {
	t.Helper()
	resp, raw := s.do(t, http.MethodPost, "/api/v1/accounts/login", map[string]string{
		"email": email, "password": password,
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: status=%d body=%s", resp.StatusCode, raw)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(raw, &out); err != nil || out.Token == "" {
		t.Fatalf("unexpected login payload: %s", raw)
	}
	return out.Token
}

func opaqueAuth(key string) map[string]string {
	return map[string]string{"Authorization": "Token " + key}
}

func bearerAuth(access string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + access}
}
