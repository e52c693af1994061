package stream_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/searchstream/internal/domain"
	"github.com/xiaot623/gogo/searchstream/internal/stream"
	"github.com/xiaot623/gogo/searchstream/tests/helpers"
)

func TestMarshal(t *testing.T) {
	cases := []struct {
		name  string
		event domain.Event
		want  string
	}{
		{
			"sources",
			domain.SourcesEvent([]domain.TextSource{{URL: "https://a", Title: "A", Content: "alpha"}}, domain.StatusThinking),
			`{"sources":[{"url":"https://a","title":"A","content":"alpha"}],"status":"Thinking ..."}`,
		},
		{"empty sources", domain.SourcesEvent(nil, domain.StatusThinking), `{"sources":[],"status":"Thinking ..."}`},
		{"answer", domain.AnswerEvent("Indie"), `{"answer":"Indie","status":"Answering ..."}`},
		{"images", domain.ImagesEvent(nil), `{"images":[]}`},
		{"related", domain.RelatedEvent("Why?"), `{"related":"Why?","status":"Generating related questions ..."}`},
		{"error", domain.ErrorEvent("oops"), `{"error":"oops","status":"Failed"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := stream.Marshal(tc.event)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(data))
		})
	}

	_, err := stream.Marshal(domain.DoneEvent())
	assert.Error(t, err)
}

func TestEncoder_OrderAndSingleTerminal(t *testing.T) {
	rec := &helpers.Recorder{}
	enc := stream.NewEncoder(rec)

	require.NoError(t, enc.Emit(domain.SourcesEvent(nil, domain.StatusThinking)))
	require.NoError(t, enc.Emit(domain.AnswerEvent("a")))
	require.NoError(t, enc.Emit(domain.AnswerEvent("b")))
	require.NoError(t, enc.Emit(domain.DoneEvent()))
	assert.True(t, enc.Closed())

	assert.ErrorIs(t, enc.Emit(domain.AnswerEvent("late")), stream.ErrClosed)
	assert.ErrorIs(t, enc.Emit(domain.DoneEvent()), stream.ErrClosed)

	assert.Equal(t, 1, rec.DoneCount())
	assert.Equal(t, []string{
		`{"sources":[],"status":"Thinking ..."}`,
		`{"answer":"a","status":"Answering ..."}`,
		`{"answer":"b","status":"Answering ..."}`,
	}, rec.Raw())
}

func TestEncoder_SinkErrorPropagates(t *testing.T) {
	rec := &helpers.Recorder{Err: errors.New("broken pipe")}
	enc := stream.NewEncoder(rec)

	assert.Error(t, enc.Emit(domain.AnswerEvent("a")))
	assert.False(t, enc.Closed())
}

func TestParseFrame(t *testing.T) {
	f, err := stream.ParseFrame([]byte(`{"sources":[],"status":"Thinking ..."}`))
	require.NoError(t, err)
	assert.Equal(t, domain.EventSources, f.Kind())

	f, err = stream.ParseFrame([]byte(`{"images":[{"url":"https://i"}]}`))
	require.NoError(t, err)
	assert.Equal(t, domain.EventImages, f.Kind())
	assert.Equal(t, "https://i", f.Images[0].URL)

	f, err = stream.ParseFrame([]byte(`{"answer":"x","status":"Answering ..."}`))
	require.NoError(t, err)
	assert.Equal(t, domain.EventAnswer, f.Kind())
	assert.Equal(t, "x", *f.Answer)

	f, err = stream.ParseFrame([]byte(`{"related":"q","status":"Generating related questions ..."}`))
	require.NoError(t, err)
	assert.Equal(t, domain.EventRelated, f.Kind())

	f, err = stream.ParseFrame([]byte(`{"error":"e","status":"Failed"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.EventError, f.Kind())

	f, err = stream.ParseFrame([]byte(stream.DoneMarker))
	require.NoError(t, err)
	assert.Equal(t, domain.EventDone, f.Kind())

	f, err = stream.ParseFrame([]byte(`{"done":true}`))
	require.NoError(t, err)
	assert.Equal(t, domain.EventDone, f.Kind())

	_, err = stream.ParseFrame([]byte(`{broken`))
	assert.Error(t, err)
}

func TestSSESink(t *testing.T) {
	w := httptest.NewRecorder()
	sink, err := stream.NewSSESink(w)
	require.NoError(t, err)

	enc := stream.NewEncoder(sink)
	require.NoError(t, enc.Emit(domain.AnswerEvent("hi")))
	require.NoError(t, enc.Emit(domain.DoneEvent()))

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "data: {\"answer\":\"hi\",\"status\":\"Answering ...\"}\n\ndata: [DONE]\n\n", w.Body.String())
}

func TestWebSocketSink(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		enc := stream.NewEncoder(stream.NewWebSocketSink(conn, time.Second))
		enc.Emit(domain.ImagesEvent([]domain.ImageSource{{URL: "https://i"}}))
		enc.Emit(domain.DoneEvent())
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"images":[{"url":"https://i"}]}`, string(data))

	_, data, err = conn.ReadMessage()
	require.NoError(t, err)
	f, err := stream.ParseFrame(data)
	require.NoError(t, err)
	assert.True(t, f.Done)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}
