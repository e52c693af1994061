// Package main provides a terminal client for the search service.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/term"

	"github.com/xiaot623/gogo/searchstream/internal/domain"
	"github.com/xiaot623/gogo/searchstream/internal/stream"
)

// Client submits searches over SSE or WebSocket and keeps the conversation.
type Client struct {
	baseURL string
	useWS   bool
	userID  string
	source  domain.SearchCategory
	http    *http.Client
	history []domain.Message
}

// NewClient creates a client for the server at baseURL (http or https).
func NewClient(baseURL string, useWS bool, userID string, source domain.SearchCategory) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		useWS:   useWS,
		userID:  userID,
		source:  source,
		http:    &http.Client{},
	}
}

// Turn accumulates the frames of one search.
type Turn struct {
	Sources []domain.TextSource
	Images  []domain.ImageSource
	Answer  strings.Builder
	Related strings.Builder
	Error   string
	Status  string
}

// Apply folds one frame into the turn.
func (t *Turn) Apply(f stream.Frame) {
	if f.Status != "" {
		t.Status = f.Status
	}
	switch f.Kind() {
	case domain.EventSources:
		t.Sources = f.Sources
	case domain.EventImages:
		t.Images = f.Images
	case domain.EventAnswer:
		t.Answer.WriteString(*f.Answer)
	case domain.EventRelated:
		t.Related.WriteString(*f.Related)
	case domain.EventError:
		t.Error = *f.Error
	}
}

// Search sends query with the conversation so far. onFrame sees every
// non-terminal frame as it arrives.
func (c *Client) Search(ctx context.Context, query string, onFrame func(stream.Frame)) (*Turn, error) {
	msg := domain.Message{ID: uuid.NewString(), Role: domain.RoleUser, Content: query}
	req := domain.SearchRequest{
		Messages: append(append([]domain.Message(nil), c.history...), msg),
		Source:   c.source,
	}
	if c.userID != "" {
		req.User = &domain.UserInfo{ID: c.userID}
	}

	turn := &Turn{}
	apply := func(f stream.Frame) {
		turn.Apply(f)
		if onFrame != nil {
			onFrame(f)
		}
	}

	var err error
	if c.useWS {
		err = c.searchWS(ctx, req, apply)
	} else {
		err = c.searchSSE(ctx, req, apply)
	}
	if err != nil {
		return turn, err
	}

	if turn.Error == "" {
		c.history = append(c.history, msg, domain.Message{
			ID:      uuid.NewString(),
			Role:    domain.RoleAssistant,
			Content: turn.Answer.String(),
			Sources: turn.Sources,
			Images:  turn.Images,
			Related: turn.Related.String(),
		})
	}
	return turn, nil
}

func (c *Client) searchSSE(ctx context.Context, req domain.SearchRequest, apply func(stream.Frame)) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/search", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(data, &errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("search failed (%d): %s", resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("search failed (%d): %s", resp.StatusCode, string(data))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == stream.DoneMarker {
			return nil
		}
		f, err := stream.ParseFrame([]byte(data))
		if err != nil {
			log.Printf("WARN: skipping frame: %v", err)
			continue
		}
		apply(f)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return errors.New("stream ended before done")
}

func (c *Client) searchWS(ctx context.Context, req domain.SearchRequest, apply func(stream.Frame)) error {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/v1/search/ws"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write request: %w", err)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return errors.New("stream ended before done")
			}
			return fmt.Errorf("read: %w", err)
		}
		f, err := stream.ParseFrame(data)
		if err != nil {
			log.Printf("WARN: skipping frame: %v", err)
			continue
		}
		if f.Done {
			return nil
		}
		apply(f)
	}
}

// printer writes a turn to the terminal, rendering markdown when stdout is a tty.
type printer struct {
	out      io.Writer
	renderer *glamour.TermRenderer
}

func newPrinter(out *os.File) *printer {
	p := &printer{out: out}
	fd := int(out.Fd())
	if !term.IsTerminal(fd) {
		return p
	}
	width := 100
	if w, _, err := term.GetSize(fd); err == nil && w > 20 {
		width = w - 4
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
	if err == nil {
		p.renderer = r
	}
	return p
}

// live reports whether fragments are printed as they arrive.
func (p *printer) live() bool {
	return p.renderer == nil
}

func (p *printer) frame(f stream.Frame) {
	if p.live() {
		switch f.Kind() {
		case domain.EventAnswer:
			fmt.Fprint(p.out, *f.Answer)
		case domain.EventImages:
			fmt.Fprintln(p.out)
		}
		return
	}
	if f.Status != "" {
		fmt.Fprintf(p.out, "\r\033[K%s", f.Status)
	}
}

func (p *printer) turn(t *Turn) {
	if t.Error != "" {
		fmt.Fprintf(p.out, "\nerror: %s\n", t.Error)
		return
	}

	var md strings.Builder
	if !p.live() {
		fmt.Fprint(p.out, "\r\033[K")
		md.WriteString(t.Answer.String())
		md.WriteString("\n")
	}
	if len(t.Sources) > 0 {
		md.WriteString("\n### Sources\n\n")
		for i, src := range t.Sources {
			fmt.Fprintf(&md, "%d. [%s](%s)\n", i+1, src.Title, src.URL)
		}
	}
	if len(t.Images) > 0 {
		md.WriteString("\n### Images\n\n")
		for _, img := range t.Images {
			fmt.Fprintf(&md, "- %s\n", img.URL)
		}
	}
	if related := strings.TrimSpace(t.Related.String()); related != "" {
		md.WriteString("\n### Related\n\n")
		for _, q := range strings.Split(related, "\n") {
			if q = strings.TrimSpace(q); q != "" {
				fmt.Fprintf(&md, "- %s\n", q)
			}
		}
	}

	if p.renderer != nil {
		if rendered, err := p.renderer.Render(md.String()); err == nil {
			fmt.Fprint(p.out, rendered)
			return
		}
	}
	fmt.Fprintln(p.out, md.String())
}

func main() {
	addr := flag.String("addr", "http://localhost:8080", "Search service address")
	useWS := flag.Bool("ws", false, "Use the WebSocket endpoint instead of SSE")
	userID := flag.String("user", "", "User ID; searches are saved when set")
	source := flag.String("source", string(domain.CategoryAll), "Search category")
	flag.Parse()

	log.SetFlags(log.Ltime)

	category := domain.SearchCategory(*source)
	if !category.Valid() {
		log.Fatalf("Unknown source %q", *source)
	}

	client := NewClient(*addr, *useWS, *userID, category)
	p := newPrinter(os.Stdout)

	fmt.Printf("Searching %s via %s (source: %s)\n", *addr, map[bool]string{true: "websocket", false: "sse"}[*useWS], category)
	fmt.Println("Type a question and press Enter. Commands: /new to reset, /quit to exit")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/quit":
			fmt.Println("Bye!")
			return
		case "/new":
			client.history = nil
			fmt.Println("Started a new conversation.")
			continue
		}

		turn, err := client.Search(ctx, input, p.frame)
		if err != nil {
			if ctx.Err() != nil {
				fmt.Println("\nInterrupted")
				return
			}
			log.Printf("Search error: %v", err)
			continue
		}
		p.turn(turn)
	}
}
