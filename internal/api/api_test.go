package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/BTreeMap/Healora/internal/catalog"
	"github.com/BTreeMap/Healora/internal/compose"
	"github.com/BTreeMap/Healora/internal/emergency"
	"github.com/BTreeMap/Healora/internal/models"
	"github.com/BTreeMap/Healora/internal/notify"
	"github.com/BTreeMap/Healora/internal/scheduling"
	"github.com/BTreeMap/Healora/internal/store"
	"github.com/BTreeMap/Healora/internal/testutil"
)

type stubGenerator struct {
	reply string
}

func (g stubGenerator) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	return g.reply, nil
}

func newTestServer(t *testing.T, d notify.Dispatcher, opts ...Option) (*Server, store.Store) {
	t.Helper()
	st := store.NewInMemoryStore()
	t.Cleanup(func() { st.Close() })
	cat := catalog.New()
	srv := NewServer(Services{
		Catalog:    cat,
		Composer:   compose.New(cat, stubGenerator{reply: "I hear you."}),
		Scheduling: scheduling.New(cat, d, scheduling.WithRecorder(st), scheduling.WithFromAddress("care@healora.example")),
		Emergency:  emergency.New(cat, d, emergency.WithRecorder(st), emergency.WithContactAddress("oncall@example.com")),
		Store:      st,
	}, opts...)
	return srv, st
}

func createSession(t *testing.T, h http.Handler) string {
	t.Helper()
	rec, resp := testutil.DoJSON(t, h, http.MethodPost, "/sessions", "")
	testutil.AssertHTTPStatus(t, http.StatusCreated, rec.Code, "create session")
	return testutil.ResultMap(t, resp)["session_id"].(string)
}

func TestSessionLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, notify.NewMockDispatcher())
	h := srv.Handler()
	id := createSession(t, h)

	rec, resp := testutil.DoJSON(t, h, http.MethodGet, "/sessions/"+id, "")
	if rec.Code != http.StatusOK || resp.Status != string(models.APIStatusOK) {
		t.Fatalf("GET session: %d %+v", rec.Code, resp)
	}

	rec, _ = testutil.DoJSON(t, h, http.MethodDelete, "/sessions/"+id, "")
	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200 ending session, got %d", rec.Code)
	}

	rec, resp = testutil.DoJSON(t, h, http.MethodGet, "/sessions/"+id, "")
	if rec.Code != http.StatusNotFound || resp.Status != string(models.APIStatusError) {
		t.Errorf("Expected 404 for ended session, got %d %+v", rec.Code, resp)
	}
}

func TestSendMessage(t *testing.T) {
	srv, _ := newTestServer(t, notify.NewMockDispatcher())
	h := srv.Handler()
	id := createSession(t, h)

	rec, resp := testutil.DoJSON(t, h, http.MethodPost, "/sessions/"+id+"/messages",
		`{"message":"I had a rough day","mood":"Sad","tone":"Calm","region":"UK"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	result := testutil.ResultMap(t, resp)
	reply := result["reply"].(string)
	for _, want := range []string{"I hear you.", "**Coping Strategy**", "Samaritans: 116 123"} {
		if !strings.Contains(reply, want) {
			t.Errorf("reply missing %q: %s", want, reply)
		}
	}
	transcript := result["transcript"].([]interface{})
	// mood note, user message, assistant reply
	if len(transcript) != 3 {
		t.Errorf("Expected 3 rendered lines, got %d", len(transcript))
	}
}

func TestSendMessageInvalidJSON(t *testing.T) {
	srv, _ := newTestServer(t, notify.NewMockDispatcher())
	h := srv.Handler()
	id := createSession(t, h)

	tests := []struct {
		name string
		path string
		body string
	}{
		{"truncated", "/messages", `{"message":`},
		{"trailing garbage", "/moods", `{"mood":"sad"}garbage`},
		{"second value", "/messages", `{"message":"hi"}{"message":"again"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := testutil.DoJSON(t, h, http.MethodPost, "/sessions/"+id+tt.path, tt.body)
			if rec.Code != http.StatusBadRequest || resp.Message != "Invalid JSON format" {
				t.Errorf("Expected 400 invalid JSON, got %d %+v", rec.Code, resp)
			}
		})
	}

	rec, _ := testutil.DoJSON(t, h, http.MethodPost, "/sessions/"+id+"/moods", "{\"mood\":\"sad\"}\n")
	testutil.AssertHTTPStatus(t, http.StatusOK, rec.Code, "trailing newline is accepted")
}

func TestUnknownSessionReturnsNotFound(t *testing.T) {
	srv, _ := newTestServer(t, notify.NewMockDispatcher())
	rec, _ := testutil.DoJSON(t, srv.Handler(), http.MethodPost, "/sessions/missing/messages", `{"message":"hi"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestConversationArchive(t *testing.T) {
	srv, _ := newTestServer(t, notify.NewMockDispatcher())
	h := srv.Handler()
	id := createSession(t, h)

	testutil.DoJSON(t, h, http.MethodPost, "/sessions/"+id+"/messages", `{"message":"hello"}`)
	_, resp := testutil.DoJSON(t, h, http.MethodPost, "/sessions/"+id+"/conversations", "")
	result := testutil.ResultMap(t, resp)
	if result["archived"] != true {
		t.Fatalf("Expected conversation to be archived: %+v", result)
	}
	labels := result["conversations"].([]interface{})
	if len(labels) != 2 || labels[0] != "Current Conversation" {
		t.Fatalf("unexpected labels %v", labels)
	}

	_, resp = testutil.DoJSON(t, h, http.MethodGet, "/sessions/"+id+"/conversations/view?label="+url.QueryEscape(labels[1].(string)), "")
	if msgs := resp.Result.([]interface{}); len(msgs) != 2 {
		t.Errorf("Expected archived transcript of 2 lines, got %d", len(msgs))
	}

	_, resp = testutil.DoJSON(t, h, http.MethodGet, "/sessions/"+id+"/conversations/view?label="+url.QueryEscape("Current Conversation"), "")
	if msgs, _ := resp.Result.([]interface{}); len(msgs) != 0 {
		t.Errorf("Expected empty live transcript, got %v", resp.Result)
	}

	_, resp = testutil.DoJSON(t, h, http.MethodPost, "/sessions/"+id+"/conversations", "")
	if testutil.ResultMap(t, resp)["archived"] != false {
		t.Error("empty transcript should not be archived")
	}
}

func TestMoodJournal(t *testing.T) {
	srv, _ := newTestServer(t, notify.NewMockDispatcher())
	h := srv.Handler()
	id := createSession(t, h)

	_, resp := testutil.DoJSON(t, h, http.MethodGet, "/sessions/"+id+"/moods/trends", "")
	if resp.Message != "No moods logged yet." {
		t.Errorf("unexpected empty-journal message %q", resp.Message)
	}

	rec, resp := testutil.DoJSON(t, h, http.MethodPost, "/sessions/"+id+"/moods", `{"mood":""}`)
	if rec.Code != http.StatusUnprocessableEntity || resp.Status != string(models.APIStatusRejected) {
		t.Errorf("Expected rejection for blank mood, got %d %+v", rec.Code, resp)
	}

	for _, mood := range []string{"happy", "sad", "happy"} {
		rec, _ = testutil.DoJSON(t, h, http.MethodPost, "/sessions/"+id+"/moods", `{"mood":"`+mood+`"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("logging %s: got %d", mood, rec.Code)
		}
	}
	_, resp = testutil.DoJSON(t, h, http.MethodGet, "/sessions/"+id+"/moods/trends", "")
	result := testutil.ResultMap(t, resp)
	if result["most_frequent"] != "happy" {
		t.Errorf("Expected most frequent mood happy, got %v", result["most_frequent"])
	}
}

func TestScheduleAppointment(t *testing.T) {
	date := time.Now().AddDate(0, 0, 7).Format(models.DateLayout)
	body := `{"therapist":"Dr. Jane Smith","time_slot":"09:00","date":"` + date + `","email":"alex@example.com","note":"first visit"}`

	t.Run("booked", func(t *testing.T) {
		d := notify.NewMockDispatcher()
		srv, st := newTestServer(t, d)
		h := srv.Handler()
		id := createSession(t, h)
		rec, resp := testutil.DoJSON(t, h, http.MethodPost, "/sessions/"+id+"/appointments", body)
		if rec.Code != http.StatusCreated || resp.Status != string(models.APIStatusOK) {
			t.Fatalf("Expected booked, got %d %+v", rec.Code, resp)
		}
		if len(d.Sent) != 2 {
			t.Errorf("Expected 2 notifications, got %d", len(d.Sent))
		}
		appts, _ := st.ListAppointments()
		if len(appts) != 1 {
			t.Errorf("Expected appointment in store, got %d", len(appts))
		}
	})

	t.Run("degraded", func(t *testing.T) {
		srv, st := newTestServer(t, notify.NewFailingMockDispatcher(0, errors.New("smtp down")))
		h := srv.Handler()
		id := createSession(t, h)
		rec, resp := testutil.DoJSON(t, h, http.MethodPost, "/sessions/"+id+"/appointments", body)
		if rec.Code != http.StatusCreated || resp.Status != string(models.APIStatusRecorded) {
			t.Fatalf("Expected recorded, got %d %+v", rec.Code, resp)
		}
		if !strings.Contains(resp.Message, "jane.smith@example.com") {
			t.Errorf("degraded message should name therapist contact: %s", resp.Message)
		}

		rec, resp = testutil.DoJSON(t, h, http.MethodGet, "/sessions/"+id+"/failed-notifications", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
		if failed := resp.Result.([]interface{}); len(failed) != 1 {
			t.Errorf("Expected 1 queued failure, got %d", len(failed))
		}
		queued, _ := st.ListFailedNotifications()
		if len(queued) != 1 || len(queued[0].Payloads) != 2 {
			t.Errorf("Expected both payloads queued, got %+v", queued)
		}
	})

	t.Run("rejected", func(t *testing.T) {
		srv, _ := newTestServer(t, notify.NewMockDispatcher())
		h := srv.Handler()
		id := createSession(t, h)
		rec, resp := testutil.DoJSON(t, h, http.MethodPost, "/sessions/"+id+"/appointments", `{"therapist":"Dr. Jane Smith"}`)
		if rec.Code != http.StatusUnprocessableEntity || resp.Message != scheduling.MsgSelectSlot {
			t.Errorf("Expected slot rejection, got %d %+v", rec.Code, resp)
		}
	})
}

func TestFailedNotificationsAreSessionScoped(t *testing.T) {
	date := time.Now().AddDate(0, 0, 7).Format(models.DateLayout)
	booking := `{"therapist":"Dr. Jane Smith","time_slot":"09:00","date":"` + date + `","email":"alex@example.com"}`
	secret := "I have been thinking about self-harm"

	srv, _ := newTestServer(t, notify.NewFailingMockDispatcher(0, errors.New("smtp down")))
	h := srv.Handler()
	a := createSession(t, h)
	b := createSession(t, h)

	testutil.DoJSON(t, h, http.MethodPost, "/sessions/"+a+"/messages", `{"message":"`+secret+`"}`)
	rec, _ := testutil.DoJSON(t, h, http.MethodPost, "/sessions/"+a+"/appointments", booking)
	testutil.AssertHTTPStatus(t, http.StatusCreated, rec.Code, "book for session a")

	rec, resp := testutil.DoJSON(t, h, http.MethodGet, "/sessions/"+a+"/failed-notifications", "")
	testutil.AssertHTTPStatus(t, http.StatusOK, rec.Code, "session a failures")
	if failed := resp.Result.([]interface{}); len(failed) != 1 {
		t.Errorf("Expected session a to see its failure, got %d", len(failed))
	}

	rec, resp = testutil.DoJSON(t, h, http.MethodGet, "/sessions/"+b+"/failed-notifications", "")
	testutil.AssertHTTPStatus(t, http.StatusOK, rec.Code, "session b failures")
	if body := rec.Body.String(); strings.Contains(body, secret) || strings.Contains(body, a) {
		t.Errorf("session b can read session a's notifications: %s", body)
	}
	if failed := resp.Result.([]interface{}); len(failed) != 0 {
		t.Errorf("Expected no failures for session b, got %d", len(failed))
	}

	rec = serveGet(t, h, "/admin/failed-notifications")
	if rec.Code != http.StatusNotFound {
		t.Errorf("admin route should not be mounted by default, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), secret) {
		t.Error("unmounted admin route leaked a transcript")
	}
}

func TestAdminFailedNotificationsOptIn(t *testing.T) {
	srv, st := newTestServer(t, notify.NewMockDispatcher(), WithAdminAPI(true))
	h := srv.Handler()
	if err := st.AddFailedNotification(models.FailedNotification{
		ID:        "fn-1",
		SessionID: "s-1",
		Kind:      models.NotificationKindAppointment,
		Error:     "smtp down",
		CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("AddFailedNotification failed: %v", err)
	}

	rec, resp := testutil.DoJSON(t, h, http.MethodGet, "/admin/failed-notifications", "")
	testutil.AssertHTTPStatus(t, http.StatusOK, rec.Code, "admin failures")
	if failed := resp.Result.([]interface{}); len(failed) != 1 {
		t.Errorf("Expected 1 queued failure, got %d", len(failed))
	}
}

func TestEmergencyFlow(t *testing.T) {
	d := notify.NewMockDispatcher()
	srv, _ := newTestServer(t, d)
	h := srv.Handler()
	id := createSession(t, h)

	rec, resp := testutil.DoJSON(t, h, http.MethodPost, "/sessions/"+id+"/emergency/confirm", `{"answer":"yes"}`)
	if rec.Code != http.StatusOK || resp.Message != emergency.MsgNoPending {
		t.Errorf("Expected no pending, got %d %+v", rec.Code, resp)
	}

	rec, resp = testutil.DoJSON(t, h, http.MethodPost, "/sessions/"+id+"/emergency",
		`{"therapist":"Dr. Jane Smith","name":"Alex","gender":"Female","age":"200","email":"alex@example.com"}`)
	if rec.Code != http.StatusUnprocessableEntity || resp.Message != emergency.MsgInvalidAge {
		t.Errorf("Expected age rejection, got %d %+v", rec.Code, resp)
	}

	rec, resp = testutil.DoJSON(t, h, http.MethodPost, "/sessions/"+id+"/emergency",
		`{"therapist":"Dr. Jane Smith","name":"Alex","gender":"Female","age":"34","email":"alex@example.com"}`)
	if rec.Code != http.StatusOK || !strings.Contains(resp.Message, "Would you like to start the meeting now?") {
		t.Fatalf("Expected requested, got %d %+v", rec.Code, resp)
	}

	rec, resp = testutil.DoJSON(t, h, http.MethodPost, "/sessions/"+id+"/emergency/confirm", `{"answer":"yes"}`)
	if rec.Code != http.StatusOK || resp.Status != string(models.APIStatusOK) {
		t.Fatalf("Expected sent, got %d %+v", rec.Code, resp)
	}
	if len(d.Sent) != 1 || d.Sent[0].Recipient != "oncall@example.com" {
		t.Errorf("unexpected alerts %+v", d.Sent)
	}
}

func serveGet(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestCatalogEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, notify.NewMockDispatcher())
	h := srv.Handler()

	_, resp := testutil.DoJSON(t, h, http.MethodGet, "/resources?region=mars", "")
	if testutil.ResultMap(t, resp)["region"] != "Global" {
		t.Errorf("unknown region should fall back to Global: %+v", resp.Result)
	}

	_, resp = testutil.DoJSON(t, h, http.MethodGet, "/resources/emergency?region=India", "")
	if !strings.HasPrefix(resp.Message, "**Crisis Support (India)**") {
		t.Errorf("unexpected emergency resources %q", resp.Message)
	}

	_, resp = testutil.DoJSON(t, h, http.MethodGet, "/therapists", "")
	if list := resp.Result.([]interface{}); len(list) != 3 {
		t.Errorf("Expected 3 therapists, got %d", len(list))
	}

	rec, resp := testutil.DoJSON(t, h, http.MethodGet, "/therapists/"+url.PathEscape("Dr. Amit Patel"), "")
	if rec.Code != http.StatusOK || !strings.Contains(testutil.ResultMap(t, resp)["details"].(string), "Stress Management") {
		t.Errorf("unexpected therapist response %d %+v", rec.Code, resp)
	}

	rec, _ = testutil.DoJSON(t, h, http.MethodGet, "/therapists/nobody", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown therapist, got %d", rec.Code)
	}
}

func TestRunShutsDownOnCancel(t *testing.T) {
	srv := NewServer(Services{}, WithAddr("127.0.0.1:0"), WithShutdownTimeout(time.Second))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
