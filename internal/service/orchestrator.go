// Package service runs the search-answer pipeline.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xiaot623/gogo/searchstream/internal/adapter/counter"
	"github.com/xiaot623/gogo/searchstream/internal/adapter/search"
	"github.com/xiaot623/gogo/searchstream/internal/cache"
	"github.com/xiaot623/gogo/searchstream/internal/domain"
	"github.com/xiaot623/gogo/searchstream/internal/observability"
	"github.com/xiaot623/gogo/searchstream/internal/repository"
)

// Defaults applied by New for zero Options fields.
const (
	DefaultImageLimit        = 4
	DefaultTextLimit         = 8
	DefaultSideEffectTimeout = 5 * time.Second
)

// Emitter receives the events of a run in order.
type Emitter interface {
	Emit(e domain.Event) error
}

// Request is one search submission.
type Request struct {
	Messages []domain.Message
	// UserID is empty for anonymous callers; their runs are not persisted.
	UserID string
	Tier   domain.Tier
	Source domain.SearchCategory
}

// Options tunes the pipeline.
type Options struct {
	ImageLimit        int
	TextLimit         int
	IndieDomains      []string
	DefaultCategory   domain.SearchCategory
	SideEffectTimeout time.Duration
	// IntN returns a value in [0, n). Defaults to math/rand/v2.IntN.
	IntN func(n int) int
}

// Deps are the collaborators of an Orchestrator. Store and Counter may be nil.
type Deps struct {
	Search  search.Engine
	Cache   *cache.Aside
	Answer  *AnswerStage
	Related *RelatedStage
	Store   repository.Store
	Counter counter.Counter
}

type Orchestrator struct {
	search  search.Engine
	cache   *cache.Aside
	answer  *AnswerStage
	related *RelatedStage
	store   repository.Store
	counter counter.Counter
	opts    Options

	tasks sync.WaitGroup
	now   func() time.Time
	newID func() string
}

func New(deps Deps, opts Options) *Orchestrator {
	if opts.ImageLimit <= 0 {
		opts.ImageLimit = DefaultImageLimit
	}
	if opts.TextLimit <= 0 {
		opts.TextLimit = DefaultTextLimit
	}
	if opts.SideEffectTimeout <= 0 {
		opts.SideEffectTimeout = DefaultSideEffectTimeout
	}
	if !opts.DefaultCategory.Valid() {
		opts.DefaultCategory = domain.CategoryAll
	}
	if opts.IntN == nil {
		opts.IntN = rand.IntN
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewAside(cache.NewMemoryStore(), opts.SideEffectTimeout)
	}
	if deps.Counter == nil {
		deps.Counter = counter.Noop{}
	}
	return &Orchestrator{
		search:  deps.Search,
		cache:   deps.Cache,
		answer:  deps.Answer,
		related: deps.Related,
		store:   deps.Store,
		counter: deps.Counter,
		opts:    opts,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Run executes the pipeline for req, emitting events to out. It always ends
// with exactly one done event; failures surface as an error event before it.
func (o *Orchestrator) Run(ctx context.Context, req Request, out Emitter) {
	r := &run{
		req:    req,
		out:    out,
		logger: observability.LoggerFromContext(ctx),
		stage:  "query",
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.fail(fmt.Errorf("panic: %v", rec))
		}
	}()

	if err := o.execute(ctx, r); err != nil {
		r.fail(err)
	}
}

// Wait blocks until detached side effects of finished runs complete.
func (o *Orchestrator) Wait() {
	o.tasks.Wait()
	o.cache.Wait()
}

// run is the per-request state.
type run struct {
	req     Request
	out     Emitter
	logger  *slog.Logger
	stage   string
	emitErr error
}

func (r *run) emit(e domain.Event) {
	if err := r.out.Emit(e); err != nil && r.emitErr == nil {
		r.emitErr = err
		r.logger.Warn("emit failed", "stage", r.stage, "kind", e.Kind, "error", err)
	}
}

func (r *run) fail(err error) {
	r.logger.Error("search run failed", "stage", r.stage, "error", err)
	r.emit(domain.ErrorEvent(domain.GenericErrorText))
	r.emit(domain.DoneEvent())
}

func (o *Orchestrator) execute(ctx context.Context, r *run) error {
	if len(r.req.Messages) == 0 {
		return errors.New("empty message history")
	}
	query := r.req.Messages[len(r.req.Messages)-1].Content
	if strings.TrimSpace(query) == "" {
		return errors.New("empty query")
	}

	r.stage = "images"
	images := o.startImages(ctx, query)

	r.stage = "retrieval"
	category := r.req.Source
	if !category.Valid() {
		category = o.opts.DefaultCategory
	}
	texts := o.retrieve(ctx, r, query, category)
	r.emit(domain.SourcesEvent(texts, domain.StatusThinking))

	r.stage = "answer"
	history := HistoryText(r.req.Messages, r.req.Tier)
	answer, err := o.answer.Generate(ctx, category, texts, history, query, r.req.Tier, func(fragment string) {
		r.emit(domain.AnswerEvent(fragment))
	})
	if err != nil {
		return err
	}

	r.stage = "images"
	imgs := <-images
	r.emit(domain.ImagesEvent(imgs))

	r.stage = "related"
	related := o.related.Generate(ctx, query, texts, func(fragment string) {
		r.emit(domain.RelatedEvent(fragment))
	})

	r.stage = "counter"
	o.incrementCount(ctx, r.req.UserID)

	if r.req.UserID != "" {
		r.stage = "persist"
		o.persist(ctx, r, domain.Message{
			ID:      o.newID(),
			Role:    domain.RoleAssistant,
			Content: answer,
			Sources: texts,
			Images:  imgs,
			Related: related,
		})
	}

	r.stage = "done"
	r.emit(domain.DoneEvent())
	return nil
}

// startImages launches the image search. The returned channel always
// receives exactly one value.
func (o *Orchestrator) startImages(ctx context.Context, query string) <-chan []domain.ImageSource {
	ch := make(chan []domain.ImageSource, 1)
	logger := observability.LoggerFromContext(ctx)

	o.tasks.Add(1)
	go func() {
		defer o.tasks.Done()
		var images []domain.ImageSource
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("image search panicked", "stage", "images", "error", rec)
				images = nil
			}
			ch <- images
		}()

		res, err := o.search.Search(ctx, query, search.Options{
			Categories: []domain.SearchCategory{domain.CategoryImages},
		})
		if err != nil {
			logger.Warn("image search failed", "stage", "images", "error", err)
			return
		}
		images = FilterImages(res.Images, o.opts.ImageLimit)
	}()
	return ch
}

// FilterImages keeps https images, at most limit of them.
func FilterImages(images []domain.ImageSource, limit int) []domain.ImageSource {
	limit = max(limit, 0)
	out := make([]domain.ImageSource, 0, min(len(images), limit))
	for _, img := range images {
		if len(out) >= limit {
			break
		}
		if len(img.URL) >= len("https://") && strings.EqualFold(img.URL[:len("https://")], "https://") {
			out = append(out, img)
		}
	}
	return out
}

// SourceProfile returns the search options and cache discriminator for
// category. Indie maker searches are narrowed to one randomly drawn domain.
func (o *Orchestrator) SourceProfile(category domain.SearchCategory) (search.Options, string) {
	opts := search.Options{Categories: []domain.SearchCategory{category}}
	if category == domain.CategoryIndieMaker && len(o.opts.IndieDomains) > 0 {
		opts.Domain = o.opts.IndieDomains[o.opts.IntN(len(o.opts.IndieDomains))]
		return opts, opts.Domain
	}
	return opts, string(category)
}

func (o *Orchestrator) retrieve(ctx context.Context, r *run, query string, category domain.SearchCategory) []domain.TextSource {
	opts, discriminator := o.SourceProfile(category)
	key := query + discriminator

	entry, hit, err := o.cache.Resolve(ctx, key, func(ctx context.Context) (domain.CacheEntry, error) {
		res, err := o.search.Search(ctx, query, opts)
		if err != nil {
			return domain.CacheEntry{}, err
		}
		texts := res.Texts
		if len(texts) > o.opts.TextLimit {
			texts = texts[:o.opts.TextLimit]
		}
		if texts == nil {
			texts = []domain.TextSource{}
		}
		return domain.CacheEntry{Texts: texts}, nil
	})
	if err != nil {
		r.logger.Warn("retrieval failed", "stage", "retrieval", "key", key, "error", err)
		return []domain.TextSource{}
	}
	r.logger.Info("sources resolved", "key", key, "cache_hit", hit, "count", len(entry.Texts))
	return entry.Texts
}

func (o *Orchestrator) incrementCount(ctx context.Context, userID string) {
	logger := observability.LoggerFromContext(ctx)
	detached := context.WithoutCancel(ctx)

	o.tasks.Add(1)
	go func() {
		defer o.tasks.Done()
		ctx, cancel := context.WithTimeout(detached, o.opts.SideEffectTimeout)
		defer cancel()
		if err := o.counter.Increment(ctx, userID); err != nil {
			logger.Warn("failed to increment search count", "user_id", userID, "error", err)
		}
	}()
}

func (o *Orchestrator) persist(ctx context.Context, r *run, assistant domain.Message) {
	if o.store == nil {
		return
	}

	messages := make([]domain.Message, 0, len(r.req.Messages)+1)
	messages = append(messages, r.req.Messages...)
	messages = append(messages, assistant)

	first := messages[0]
	id := first.ID
	if id == "" {
		id = o.newID()
	}
	conv := domain.Conversation{
		ID:        id,
		Title:     domain.TitleFrom(first.Content),
		CreatedAt: o.now(),
		UserID:    r.req.UserID,
		Messages:  messages,
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.opts.SideEffectTimeout)
	defer cancel()
	if err := o.store.SaveConversation(saveCtx, conv); err != nil {
		r.logger.Error("failed to save conversation", "stage", "persist", "conversation_id", id, "error", err)
	}
}
