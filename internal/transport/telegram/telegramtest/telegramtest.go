// Package telegramtest runs an in-process fake of the parts of the Telegram
// Bot API this module talks to.
package telegramtest

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Token is the bot token the fake accepts.
const Token = "123456:TEST-token"

// SentMessage is a sendMessage call recorded by the fake
type SentMessage struct {
	ChatID    string
	Text      string
	ParseMode string
}

// Server is a fake Bot API. Exported fields may be set before the calls they affect.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	updates  []json.RawMessage
	files    map[string][]byte
	requests []string
	queries  []string
	sent     []SentMessage

	// UpdatesStatus and UpdatesBody, when set, replace the getUpdates answer.
	UpdatesStatus int
	UpdatesBody   string
	// SendStatus, when set, makes sendMessage fail with that status.
	SendStatus int
}

// New starts a fake and closes it when t finishes.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{files: map[string][]byte{}}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// AddUpdate queues a raw update JSON object.
func (s *Server) AddUpdate(raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, json.RawMessage(raw))
}

// AddFile makes fileID downloadable with content.
func (s *Server) AddFile(fileID string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[fileID] = content
}

// Requests lists the API methods called so far, file downloads as "file".
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// Queries lists the raw query strings of getUpdates calls.
func (s *Server) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

// Sent lists recorded sendMessage calls.
func (s *Server) Sent() []SentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SentMessage(nil), s.sent...)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	filePrefix := "/file/bot" + Token + "/"
	methodPrefix := "/bot" + Token + "/"

	switch {
	case strings.HasPrefix(r.URL.Path, filePrefix):
		s.record("file")
		s.serveFile(w, strings.TrimPrefix(r.URL.Path, filePrefix))
	case strings.HasPrefix(r.URL.Path, methodPrefix):
		method := strings.TrimPrefix(r.URL.Path, methodPrefix)
		s.record(method)
		switch method {
		case "getUpdates":
			s.getUpdates(w, r)
		case "getFile":
			s.getFile(w, r)
		case "sendMessage":
			s.sendMessage(w, r)
		default:
			writeError(w, http.StatusNotFound, "Not Found: method not found")
		}
	default:
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	}
}

func (s *Server) record(method string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, method)
}

func (s *Server) getUpdates(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.queries = append(s.queries, r.URL.RawQuery)
	status, body := s.UpdatesStatus, s.UpdatesBody
	updates := append([]json.RawMessage(nil), s.updates...)
	s.mu.Unlock()

	if status != 0 || body != "" {
		if status == 0 {
			status = http.StatusOK
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
		return
	}

	offset, _ := strconv.ParseInt(r.URL.Query().Get("offset"), 10, 64)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	result := []json.RawMessage{}
	for _, raw := range updates {
		var head struct {
			UpdateID int64 `json:"update_id"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			continue
		}
		if head.UpdateID < offset {
			continue
		}
		if limit > 0 && len(result) == limit {
			break
		}
		result = append(result, raw)
	}
	writeOK(w, result)
}

func (s *Server) getFile(w http.ResponseWriter, r *http.Request) {
	fileID := param(r, "file_id")

	s.mu.Lock()
	_, ok := s.files[fileID]
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusBadRequest, "Bad Request: invalid file_id")
		return
	}
	writeOK(w, map[string]any{
		"file_id":        fileID,
		"file_unique_id": "u" + fileID,
		"file_path":      "photos/" + fileID + ".jpg",
	})
}

func (s *Server) serveFile(w http.ResponseWriter, path string) {
	fileID := strings.TrimSuffix(strings.TrimPrefix(path, "photos/"), ".jpg")

	s.mu.Lock()
	content, ok := s.files[fileID]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, nil)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(content)
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	msg := SentMessage{
		ChatID:    param(r, "chat_id"),
		Text:      param(r, "text"),
		ParseMode: param(r, "parse_mode"),
	}

	s.mu.Lock()
	status := s.SendStatus
	if status == 0 {
		s.sent = append(s.sent, msg)
	}
	s.mu.Unlock()

	if status != 0 {
		writeError(w, status, "Bad Request: chat not found")
		return
	}
	chatID, _ := strconv.ParseInt(msg.ChatID, 10, 64)
	writeOK(w, map[string]any{
		"message_id": 1,
		"date":       1700000000,
		"chat":       map[string]any{"id": chatID, "type": "private"},
		"text":       msg.Text,
	})
}

// param reads a request parameter from a multipart, urlencoded or JSON body.
func param(r *http.Request, name string) string {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if r.MultipartForm == nil {
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				return ""
			}
		}
		return r.FormValue(name)
	case "application/json":
		if r.Body == nil {
			return ""
		}
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))
		var fields map[string]any
		if err := json.Unmarshal(body, &fields); err != nil {
			return ""
		}
		if v, ok := fields[name]; ok {
			return fmt.Sprint(v)
		}
		return ""
	default:
		return r.FormValue(name)
	}
}

func writeOK(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
}

func writeError(w http.ResponseWriter, status int, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"ok":          false,
		"error_code":  status,
		"description": description,
	})
}
