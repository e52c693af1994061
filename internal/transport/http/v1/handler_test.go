package v1

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/searchstream/internal/adapter/llm"
	"github.com/xiaot623/gogo/searchstream/internal/adapter/search"
	"github.com/xiaot623/gogo/searchstream/internal/domain"
	"github.com/xiaot623/gogo/searchstream/internal/repository"
	"github.com/xiaot623/gogo/searchstream/internal/service"
	"github.com/xiaot623/gogo/searchstream/internal/stream"
	"github.com/xiaot623/gogo/searchstream/policy"
	"github.com/xiaot623/gogo/searchstream/tests/helpers"
)

type stubSearch struct{}

func (stubSearch) Search(_ context.Context, _ string, opts search.Options) (search.Result, error) {
	if opts.HasCategory(domain.CategoryImages) {
		return search.Result{Images: []domain.ImageSource{
			{URL: "http://insecure.png"},
			{URL: "https://img.example.com/1.png"},
		}}, nil
	}
	return search.Result{Texts: []domain.TextSource{
		{URL: "https://a.example.com", Title: "A", Content: "alpha"},
	}}, nil
}

func newTestHandler(t *testing.T) (*Handler, *service.Orchestrator, repository.Store) {
	db := helpers.NewTestSQLiteStore(t)
	mock := llm.NewMockClient()
	orch := service.New(service.Deps{
		Search:  stubSearch{},
		Answer:  service.NewAnswerStage(mock, "mock", service.TokenBudget{Standard: 2048, Elevated: 4096}, 0.1),
		Related: service.NewRelatedStage(mock, "mock", 0.1),
		Store:   db,
	}, service.Options{})

	policyEngine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return NewHandler(orch, db, policyEngine), orch, db
}

func readSSEFrames(t *testing.T, body string) ([]stream.Frame, string) {
	t.Helper()
	var frames []stream.Frame
	var last string
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		last = data
		f, err := stream.ParseFrame([]byte(data))
		if err != nil {
			t.Fatalf("bad frame %q: %v", data, err)
		}
		frames = append(frames, f)
	}
	return frames, last
}

func TestSearchStreamsSSE(t *testing.T) {
	e := echo.New()
	h, orch, db := newTestHandler(t)

	body := `{"messages":[{"id":"m1","role":"user","content":"best tools"}],"user":{"id":"u1"}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/search", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Search(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	orch.Wait()

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type: %s", ct)
	}
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Fatalf("missing request id header")
	}

	frames, last := readSSEFrames(t, rec.Body.String())
	if last != stream.DoneMarker {
		t.Fatalf("expected terminal [DONE], got %q", last)
	}
	if frames[0].Kind() != domain.EventSources || frames[0].Status != domain.StatusThinking || len(frames[0].Sources) != 1 {
		t.Fatalf("unexpected first frame: %+v", frames[0])
	}

	var answer strings.Builder
	var images []domain.ImageSource
	for _, f := range frames {
		switch f.Kind() {
		case domain.EventAnswer:
			answer.WriteString(*f.Answer)
		case domain.EventImages:
			images = f.Images
		case domain.EventError:
			t.Fatalf("unexpected error frame: %s", *f.Error)
		}
	}
	if answer.String() != `[MOCK] Received your message: "best tools". This is a mock response.` {
		t.Fatalf("unexpected answer: %q", answer.String())
	}
	if len(images) != 1 || images[0].URL != "https://img.example.com/1.png" {
		t.Fatalf("unexpected images: %+v", images)
	}

	conv, err := db.GetConversation(context.Background(), "m1")
	if err != nil {
		t.Fatalf("conversation not persisted: %v", err)
	}
	if conv.UserID != "u1" || len(conv.Messages) != 2 || conv.Messages[1].Content != answer.String() {
		t.Fatalf("unexpected conversation: %+v", conv)
	}
}

func TestSearchValidation(t *testing.T) {
	e := echo.New()
	h, _, _ := newTestHandler(t)

	cases := map[string]string{
		"invalid json":   `{"messages":`,
		"no messages":    `{"messages":[]}`,
		"assistant last": `{"messages":[{"id":"a","role":"assistant","content":"hi"}]}`,
		"empty query":    `{"messages":[{"id":"m","role":"user","content":"  "}]}`,
		"unknown source": `{"messages":[{"id":"m","role":"user","content":"q"}],"source":"videos"}`,
	}
	for name, body := range cases {
		req := httptest.NewRequest(http.MethodPost, "/v1/search", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		if err := h.Search(c); err != nil {
			t.Fatalf("%s: handler error: %v", name, err)
		}
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", name, rec.Code)
		}
		var resp map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp["error"] == "" {
			t.Fatalf("%s: expected error body, got %s", name, rec.Body.String())
		}
	}
}

func TestSearchWebSocket(t *testing.T) {
	e := echo.New()
	h, orch, _ := newTestHandler(t)
	h.RegisterRoutes(e)
	server := httptest.NewServer(e)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/search/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	req := domain.SearchRequest{Messages: []domain.Message{{ID: "w1", Role: domain.RoleUser, Content: "ws query"}}}
	if err := conn.WriteJSON(req); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var kinds []domain.EventKind
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read failed before done: %v", err)
		}
		f, err := stream.ParseFrame(data)
		if err != nil {
			t.Fatalf("bad frame: %v", err)
		}
		kinds = append(kinds, f.Kind())
		if f.Done {
			break
		}
	}

	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("expected normal close, got %v", err)
	}
	orch.Wait()

	if kinds[0] != domain.EventSources || kinds[len(kinds)-1] != domain.EventDone {
		t.Fatalf("unexpected event order: %v", kinds)
	}
	for _, k := range kinds {
		if k == domain.EventError {
			t.Fatalf("unexpected error event: %v", kinds)
		}
	}
}

func TestSearchWebSocketInvalidRequest(t *testing.T) {
	e := echo.New()
	h, _, _ := newTestHandler(t)
	h.RegisterRoutes(e)
	server := httptest.NewServer(e)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/search/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"messages":[]}`)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	f, _ := stream.ParseFrame(data)
	if f.Kind() != domain.EventError || *f.Error != "messages are required" {
		t.Fatalf("expected error frame, got %s", data)
	}
	_, data, err = conn.ReadMessage()
	if err != nil || string(data) != `{"done":true}` {
		t.Fatalf("expected done frame, got %s (%v)", data, err)
	}
}

func TestConversationReads(t *testing.T) {
	e := echo.New()
	h, _, db := newTestHandler(t)

	for _, id := range []string{"c1", "c2"} {
		err := db.SaveConversation(context.Background(), domain.Conversation{
			ID:        id,
			Title:     "title " + id,
			CreatedAt: time.Now(),
			UserID:    "u1",
			Messages:  []domain.Message{{ID: id, Role: domain.RoleUser, Content: "q"}},
		})
		if err != nil {
			t.Fatalf("SaveConversation failed: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/conversations/c1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("conversation_id")
	c.SetParamValues("c1")
	if err := h.GetConversation(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var conv domain.Conversation
	if err := json.Unmarshal(rec.Body.Bytes(), &conv); err != nil || conv.Title != "title c1" {
		t.Fatalf("unexpected conversation: %s", rec.Body.String())
	}

	for _, target := range []string{"/v1/conversations/missing", "/v1/conversations/c1?user_id=u2"} {
		req = httptest.NewRequest(http.MethodGet, target, nil)
		rec = httptest.NewRecorder()
		c = e.NewContext(req, rec)
		c.SetParamNames("conversation_id")
		id := strings.TrimPrefix(strings.Split(target, "?")[0], "/v1/conversations/")
		c.SetParamValues(id)
		if err := h.GetConversation(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", target, rec.Code)
		}
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/users/u1/conversations?limit=1", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("user_id")
	c.SetParamValues("u1")
	if err := h.ListConversations(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp struct {
		Conversations []domain.ConversationSummary `json:"conversations"`
		HasMore       bool                         `json:"has_more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Conversations) != 1 || !resp.HasMore {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestHealth(t *testing.T) {
	e := echo.New()
	h, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	if err := h.Health(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"healthy"`) {
		t.Fatalf("unexpected health response: %d %s", rec.Code, rec.Body.String())
	}
}
