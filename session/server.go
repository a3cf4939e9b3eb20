// Package session implements the IPC-style session server (external
// interface §6.6): a single-mutator command endpoint guarded by a
// writer lease, a websocket event stream fanned out through Hub, and a
// status/publish pair that detects concurrent edits by comparing
// history fingerprints.
package session

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rawblock/ledgerrecon/pkg/cellmodel"
	"github.com/rawblock/ledgerrecon/pkg/history"
	"github.com/rawblock/ledgerrecon/pkg/workbook"
)

func isWellFormedJSON(b []byte) bool {
	return json.Valid(b)
}

// Document is the single mutable workbook a Server guards with its
// writer lease, plus the undo history tracking every change to it.
type Document struct {
	mu      sync.Mutex
	Book    *workbook.Workbook
	History *history.History
}

// NewDocument returns an empty document ready to accept commands.
func NewDocument() *Document {
	return &Document{Book: workbook.New(), History: history.New()}
}

// Server wires the Hub and Document behind a gin.Engine. It owns the
// single mutator: every command that changes the document is applied
// while holding Document.mu, so two commands never interleave.
type Server struct {
	Hub *Hub
	Doc *Document
}

// NewServer returns a ready-to-run session server.
func NewServer() *Server {
	return &Server{Hub: NewHub(), Doc: NewDocument()}
}

// Routes registers the session server's endpoints on an existing gin
// engine (callers add auth/rate-limit middleware before calling this,
// in the same ordering the teacher's routes.go composed middleware).
func (s *Server) Routes(r gin.IRouter) {
	r.GET("/session/stream", s.Hub.Subscribe)
	r.POST("/session/command", s.handleCommand)
	r.GET("/session/status", s.handleStatus)
	r.POST("/session/publish", s.handlePublish)
}

// CellEdit is one (row, col) -> new raw value change within a
// SetCellsCommand.
type CellEdit struct {
	Row   uint32 `json:"row"`
	Col   uint32 `json:"col"`
	Value string `json:"value"`
}

// Command is the envelope for a mutating request: the connection id
// asserting the writer lease (0 = no lease check, used by
// lease-free/admin callers), the sheet being edited, and the edits to
// apply.
type Command struct {
	ConnID uint64              `json:"connId"`
	Sheet  cellmodel.SheetId   `json:"sheet"`
	Edits  []CellEdit          `json:"edits"`
}

// CommandResult is the JSON response to a successful command, and the
// payload broadcast to every stream subscriber.
type CommandResult struct {
	Sheet       cellmodel.SheetId `json:"sheet"`
	AppliedAt   time.Time         `json:"appliedAt"`
	Fingerprint string            `json:"fingerprint"`
}

func (s *Server) handleCommand(c *gin.Context) {
	var cmd Command
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed command", "detail": err.Error()})
		return
	}

	if cmd.ConnID != 0 && !s.Hub.TryAcquireWriterLease(cmd.ConnID) {
		c.JSON(http.StatusConflict, gin.H{
			"error": "writer_conflict",
			"hint":  "another connection holds the writer lease; retry once it is released",
		})
		return
	}

	s.Doc.mu.Lock()
	sheet, ok := s.Doc.Book.Sheets[cmd.Sheet]
	if !ok {
		s.Doc.mu.Unlock()
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown sheet"})
		return
	}

	changes := make([]history.CellChange, 0, len(cmd.Edits))
	for _, e := range cmd.Edits {
		old := sheet.Get(e.Row, e.Col)
		newVal := cellmodel.ParseCellInput(e.Value)
		sheet.Set(e.Row, e.Col, newVal)
		changes = append(changes, history.CellChange{
			Row: e.Row, Col: e.Col,
			OldValue: old.RawDisplay(), NewValue: newVal.RawDisplay(),
		})
	}

	action := history.UndoAction{
		Kind:   history.KindValues,
		Values: &history.ValuesAction{Sheet: cmd.Sheet, Changes: changes},
	}
	now := time.Now()
	s.Doc.History.Record(action, now, history.SourceHuman, nil)
	fp := s.Doc.History.Fingerprint()
	s.Doc.mu.Unlock()

	result := CommandResult{Sheet: cmd.Sheet, AppliedAt: now, Fingerprint: fp.String()}
	payload, _ := json.Marshal(result)
	s.Hub.Broadcast(payload)

	c.JSON(http.StatusOK, result)
}

// StatusResponse reports the document's current content fingerprint
// without mutating anything — the "mutation-free status check" half of
// hub-sync's check/confirm model.
type StatusResponse struct {
	Fingerprint string `json:"fingerprint"`
	EntryCount  int    `json:"entryCount"`
}

func (s *Server) handleStatus(c *gin.Context) {
	s.Doc.mu.Lock()
	fp := s.Doc.History.Fingerprint()
	n := s.Doc.History.Len()
	s.Doc.mu.Unlock()
	c.JSON(http.StatusOK, StatusResponse{Fingerprint: fp.String(), EntryCount: n})
}

// PublishRequest carries the fingerprint the caller last observed via
// /session/status. If the document has since changed, publish is
// rejected so the caller can re-confirm against the new state.
type PublishRequest struct {
	ExpectedFingerprint string `json:"expectedFingerprint"`
	RunID               string `json:"runId,omitempty"`
}

func (s *Server) handlePublish(c *gin.Context) {
	var req PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed publish request"})
		return
	}

	s.Doc.mu.Lock()
	fp := s.Doc.History.Fingerprint()
	s.Doc.mu.Unlock()

	if req.ExpectedFingerprint != fp.String() {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "content_changed",
			"hint":    "local content hash has changed since the last status check; confirm before publishing",
			"current": fp.String(),
		})
		return
	}

	runID := req.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	c.JSON(http.StatusOK, gin.H{"published": true, "runId": runID, "fingerprint": fp.String()})
}
