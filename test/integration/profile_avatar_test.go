package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"

	"github.com/taskory/taskory/internal/service"
)

// objectStore is an in-memory service.StorageService for end-to-end tests.
type objectStore struct {
	nextID  int
	objects map[string][]byte
}

func newObjectStore() *objectStore {
	return &objectStore{objects: map[string][]byte{}}
}

func (s *objectStore) UploadAvatar(_ context.Context, accountID uint, file io.Reader, _ int64, _ string) (string, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	s.nextID++
	key := fmt.Sprintf("avatars/account-%d/obj-%d.png", accountID, s.nextID)
	s.objects[key] = data
	return key, nil
}

func (s *objectStore) DeleteAvatar(_ context.Context, accountID uint, objectKey string) error {
	prefix := fmt.Sprintf("avatars/account-%d/", accountID)
	if !strings.HasPrefix(objectKey, prefix) {
		return service.ErrUnauthorizedAccess
	}
	delete(s.objects, objectKey)
	return nil
}

func (s *objectStore) GenerateAvatarURL(_ context.Context, objectKey string) (string, error) {
	if _, ok := s.objects[objectKey]; !ok {
		return "", service.ErrURLGenerationFailed
	}
	return "https://storage.test/" + objectKey, nil
}

func (s *testServer) putAvatar(t *testing.T, key string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("avatar", "avatar.png")
	if err != nil {
		t.Fatalf("build multipart form: %v", err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatalf("write file part: %v", err)
	}
	_ = mw.Close()

	req, err := http.NewRequest(http.MethodPut, s.baseURL+"/api/v1/accounts/profile/avatar", &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Token "+key)
	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body := new(bytes.Buffer)
	_, _ = body.ReadFrom(resp.Body)
	return resp, body.Bytes()
}

// Avatar uploads get their own body cap and must not inherit the 1 MB
// limit the rest of the API runs under.
func TestAvatarUploadAcceptsMultiMegabyteFile(t *testing.T) {
	store := newObjectStore()
	s := newTestServerWithOptions(t, testServerOptions{storage: store})
	s.registerAndConfirm(t, "ava@example.com", "stratospheric")
	key := s.loginOpaque(t, "ava@example.com", "stratospheric")

	payload := bytes.Repeat([]byte{0x7f}, 2<<20)
	resp, raw := s.putAvatar(t, key, payload)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("avatar upload: status=%d body=%s", resp.StatusCode, raw)
	}
	var view struct {
		AvatarURL *string `json:"avatar_url"`
	}
	if err := json.Unmarshal(raw, &view); err != nil || view.AvatarURL == nil {
		t.Fatalf("unexpected profile payload: %s", raw)
	}

	stored := 0
	for _, data := range store.objects {
		if len(data) == len(payload) {
			stored++
		}
	}
	if stored != 1 {
		t.Fatalf("expected the full upload in storage, found %d matching objects", stored)
	}
}

func TestAvatarUploadRejectsOversizedFile(t *testing.T) {
	store := newObjectStore()
	s := newTestServerWithOptions(t, testServerOptions{storage: store})
	s.registerAndConfirm(t, "big@example.com", "stratospheric")
	key := s.loginOpaque(t, "big@example.com", "stratospheric")

	payload := bytes.Repeat([]byte{0x7f}, 5<<20+1)
	resp, _ := s.putAvatar(t, key, payload)
	if resp.StatusCode != http.StatusBadRequest && resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized avatar: expected rejection, got %d", resp.StatusCode)
	}
	if len(store.objects) != 0 {
		t.Fatalf("oversized avatar must not reach storage, found %d objects", len(store.objects))
	}
}
