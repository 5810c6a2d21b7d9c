package testutil

import (
	"net/http"
	"testing"
	"time"

	"github.com/BTreeMap/Healora/internal/models"
)

func TestClock(t *testing.T) {
	start := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	c := NewClock(start)
	if !c.Now().Equal(start) {
		t.Errorf("Now() = %v, want %v", c.Now(), start)
	}
	c.Advance(90 * time.Minute)
	if want := start.Add(90 * time.Minute); !c.Now().Equal(want) {
		t.Errorf("after Advance, Now() = %v, want %v", c.Now(), want)
	}
}

func TestDoJSON(t *testing.T) {
	var gotBody string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 64)
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"status":"ok","message":"created","result":{"id":"abc"}}`))
	})

	rec, resp := DoJSON(t, h, http.MethodPost, "/things", `{"name":"x"}`)
	AssertHTTPStatus(t, http.StatusCreated, rec.Code, "create")
	AssertAPIStatus(t, resp, models.APIStatusOK, "create")
	if gotBody != `{"name":"x"}` {
		t.Errorf("handler received body %q", gotBody)
	}
	if ResultMap(t, resp)["id"] != "abc" {
		t.Errorf("unexpected result %#v", resp.Result)
	}
}
