package session

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/rawblock/ledgerrecon/pkg/cellmodel"
)

func newTestServer() (*Server, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	s := NewServer()
	sheetID := s.Doc.Book.AddSheet("Sheet1")
	_ = sheetID
	r := gin.New()
	s.Routes(r)
	return s, r
}

func TestHandleCommandAppliesEditsAndBroadcasts(t *testing.T) {
	s, r := newTestServer()
	var sheetID cellmodel.SheetId
	for id := range s.Doc.Book.Sheets {
		sheetID = id
	}

	cmd := Command{
		ConnID: 1,
		Sheet:  sheetID,
		Edits:  []CellEdit{{Row: 0, Col: 0, Value: "42"}},
	}
	body, _ := json.Marshal(cmd)

	req := httptest.NewRequest(http.MethodPost, "/session/command", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	sheet := s.Doc.Book.Sheets[sheetID]
	got := sheet.Get(0, 0)
	if got.Kind != cellmodel.ValueNumber || got.Number != 42 {
		t.Fatalf("expected cell (0,0) to be 42, got %+v", got)
	}
	if s.Doc.History.Len() != 1 {
		t.Fatalf("expected one history entry, got %d", s.Doc.History.Len())
	}
}

func TestHandleCommandRejectsNonLeaseHolder(t *testing.T) {
	s, r := newTestServer()
	var sheetID cellmodel.SheetId
	for id := range s.Doc.Book.Sheets {
		sheetID = id
	}

	if !s.Hub.TryAcquireWriterLease(1) {
		t.Fatalf("expected connection 1 to acquire the lease")
	}

	cmd := Command{ConnID: 2, Sheet: sheetID, Edits: []CellEdit{{Row: 0, Col: 0, Value: "x"}}}
	body, _ := json.Marshal(cmd)
	req := httptest.NewRequest(http.MethodPost, "/session/command", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 writer_conflict, got %d: %s", w.Code, w.Body.String())
	}
}

func TestStatusThenPublishRoundTrip(t *testing.T) {
	s, r := newTestServer()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/session/status", nil))
	var status StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}

	pubBody, _ := json.Marshal(PublishRequest{ExpectedFingerprint: status.Fingerprint})
	preq := httptest.NewRequest(http.MethodPost, "/session/publish", bytes.NewReader(pubBody))
	preq.Header.Set("Content-Type", "application/json")
	pw := httptest.NewRecorder()
	r.ServeHTTP(pw, preq)
	if pw.Code != http.StatusOK {
		t.Fatalf("expected publish to succeed, got %d: %s", pw.Code, pw.Body.String())
	}
}

func TestPublishRejectsStaleFingerprint(t *testing.T) {
	s, r := newTestServer()
	var sheetID cellmodel.SheetId
	for id := range s.Doc.Book.Sheets {
		sheetID = id
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/session/status", nil))
	var status StatusResponse
	_ = json.Unmarshal(w.Body.Bytes(), &status)

	cmd := Command{Sheet: sheetID, Edits: []CellEdit{{Row: 1, Col: 1, Value: "changed"}}}
	cbody, _ := json.Marshal(cmd)
	creq := httptest.NewRequest(http.MethodPost, "/session/command", bytes.NewReader(cbody))
	creq.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(httptest.NewRecorder(), creq)

	pubBody, _ := json.Marshal(PublishRequest{ExpectedFingerprint: status.Fingerprint})
	preq := httptest.NewRequest(http.MethodPost, "/session/publish", bytes.NewReader(pubBody))
	preq.Header.Set("Content-Type", "application/json")
	pw := httptest.NewRecorder()
	r.ServeHTTP(pw, preq)
	if pw.Code != http.StatusConflict {
		t.Fatalf("expected 409 content_changed, got %d: %s", pw.Code, pw.Body.String())
	}
}

func TestConnEnqueueDropsOldestWhenFull(t *testing.T) {
	c := &conn{id: 1, send: make(chan []byte, 2)}
	c.enqueue([]byte("a"))
	c.enqueue([]byte("b"))
	c.enqueue([]byte("c")) // queue full, should drop "a"

	first := <-c.send
	second := <-c.send
	if string(first) != "b" || string(second) != "c" {
		t.Fatalf("expected drop-oldest semantics, got %q then %q", first, second)
	}
	if c.droppedEvents != 1 {
		t.Fatalf("expected droppedEvents=1, got %d", c.droppedEvents)
	}
}
