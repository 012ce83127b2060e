package submit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kontrolhq/kontrol-backend/internal/model"
	"github.com/rs/zerolog"
)

func testPack() *model.ResultPack {
	started := time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)
	return &model.ResultPack{
		Meta:            model.QuestionBankMeta{Title: "Контрольная работа", Variant: "variant26"},
		Variant:         "variant26",
		Identity:        &model.Identity{FullName: "Иванов Иван", ClassName: "10А"},
		TS:              started.Add(40 * time.Minute),
		DurationMinutes: 45,
		Timer:           model.PackTimer{StartedAt: &started, Finished: true},
		Answers: []model.PackAnswer{
			{ID: "1", Value: "ответ"},
			{ID: "2", Value: "42"},
		},
	}
}

func TestRemoteDeliverSendsTokenAndBody(t *testing.T) {
	var gotToken string
	var gotPack model.ResultPack
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get(SubmitTokenHeader)
		if err := json.NewDecoder(r.Body).Decode(&gotPack); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	tr := NewRemoteTransport(srv.URL, "secret-token", zerolog.Nop())
	if err := tr.Deliver(context.Background(), testPack()); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if gotToken != "secret-token" {
		t.Errorf("token header = %q", gotToken)
	}
	if gotPack.Variant != "variant26" || len(gotPack.Answers) != 2 {
		t.Errorf("unexpected pack on the wire: %+v", gotPack)
	}
}

func TestRemoteDeliverFailsOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	tr := NewRemoteTransport(srv.URL, "", zerolog.Nop())
	if err := tr.Deliver(context.Background(), testPack()); err == nil {
		t.Fatal("expected error for 403 response")
	}
}

func TestFileDeliverWritesNamedPack(t *testing.T) {
	dir := t.TempDir()
	tr := NewFileTransport(dir, zerolog.Nop())

	if err := tr.Deliver(context.Background(), testPack()); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	path := filepath.Join(dir, "10А_Иванов Иван_variant26.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read exported pack: %v", err)
	}

	var pack model.ResultPack
	if err := json.Unmarshal(raw, &pack); err != nil {
		t.Fatalf("exported pack is not valid JSON: %v", err)
	}
	if pack.DurationMinutes != 45 {
		t.Errorf("duration = %d", pack.DurationMinutes)
	}

	// No temp files left behind.
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".pack-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestMailtoURL(t *testing.T) {
	tr := NewMailTransport("teacher@school.example", t.TempDir(), zerolog.Nop())
	u := tr.MailtoURL(testPack())

	if !strings.HasPrefix(u, "mailto:teacher@school.example?") {
		t.Fatalf("unexpected mailto prefix: %s", u)
	}
	if !strings.Contains(u, "subject=") || !strings.Contains(u, "body=") {
		t.Fatalf("mailto missing subject/body: %s", u)
	}
}
