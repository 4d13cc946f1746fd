package arm

import (
	"context"
	"iter"
	"net/url"
	"strconv"
	"sync"
)

// Pager lazily walks a paged collection, one request per page. A Pager owns
// its cursor state and must not be driven from more than one goroutine at a
// time. Pages are fetched only when asked for.
type Pager struct {
	client       *ResourceClient
	operation    string
	verb         Verb
	resourcePath string
	apiVersion   string
	body         []byte
	opts         PageOptions

	state   cursorState
	fetched int
	err     error
}

func newPager(client *ResourceClient, operation string, verb Verb, resourcePath, apiVersion string, body []byte, opts *PageOptions) (*Pager, error) {
	resolved := opts.withDefaults()

	if resolved.ContinuationToken != "" {
		err := validateCursor(resolved.ContinuationToken)
		if err != nil {
			return nil, err
		}
	} else {
		// Validate the first request up front so argument errors surface
		// before any iteration starts.
		_, err := client.builder.Build(verb, resourcePath, apiVersion, nil, body)
		if err != nil {
			return nil, err
		}
	}

	if resolved.MaxPages < 0 {
		return nil, invalidArgument("max pages must not be negative")
	}

	if resolved.PageSizeHint < 0 {
		return nil, invalidArgument("page size hint must not be negative")
	}

	return &Pager{
		client:       client,
		operation:    operation,
		verb:         verb,
		resourcePath: resourcePath,
		apiVersion:   apiVersion,
		body:         body,
		opts:         resolved,
		state:        initialCursor(resolved.ContinuationToken),
	}, nil
}

// More reports whether another page may be fetched.
func (p *Pager) More() bool {
	if p.err != nil || p.state.done() {
		return false
	}

	return p.opts.MaxPages == 0 || p.fetched < p.opts.MaxPages
}

// NextLink returns the cursor the next call to NextPage will request, or ""
// before the first page and after the last one.
func (p *Pager) NextLink() string {
	return p.state.token()
}

// Err returns the error that ended iteration, if any.
func (p *Pager) Err() error {
	return p.err
}

// NextPage fetches the next page. It returns ErrNoMorePages once the
// collection is exhausted and repeats the terminal error after a failure.
func (p *Pager) NextPage(ctx context.Context) (*Page, error) {
	if p.err != nil {
		return nil, p.err
	}

	if !p.More() {
		return nil, ErrNoMorePages
	}

	page, next, err := p.fetchPage(ctx)
	if err != nil {
		p.err = err

		return nil, err
	}

	p.fetched++
	p.state = p.state.advance(next)

	return page, nil
}

// fetchPage performs one request for the current cursor and extracts the
// page. It does not mutate the pager.
func (p *Pager) fetchPage(ctx context.Context) (*Page, string, error) {
	req, err := p.request()
	if err != nil {
		return nil, "", err
	}

	p.client.logger.Debug("Fetching page", map[string]interface{}{
		"operation": p.operation,
		"url":       req.URL,
		"page":      p.fetched + 1,
	})

	outcome, err := invoke(ctx, p.client.transport, p.client.chain, p.operation, p.verb, req)
	if err != nil {
		return nil, "", err
	}

	page := &Page{Items: []Item{}, ContinuationToken: p.state.token()}

	switch outcome.Kind {
	case OutcomeNotFound:
		// A collection that does not exist is empty. A next link that
		// vanished mid-iteration is a failure, not the end of the sequence.
		if p.state.kind == cursorContinuation {
			return nil, "", newRequestFailedError(req, outcome.StatusCode, outcome.Body)
		}

		return page, "", nil
	case OutcomeSuccessEmpty:
		return page, "", nil
	case OutcomeFailure:
		return nil, "", newRequestFailedError(req, outcome.StatusCode, outcome.Body)
	}

	items, next, err := ExtractPage(outcome.Body, &p.opts)
	if err != nil {
		return nil, "", err
	}

	page.Items = items
	page.NextLink = next

	return page, next, nil
}

// request builds the descriptor for the current cursor. Once a next link has
// been observed it is used verbatim and the resource path is never consulted.
func (p *Pager) request() (*RequestDescriptor, error) {
	if p.state.kind == cursorContinuation {
		return p.client.builder.BuildFromCursor(p.verb, p.state.uri)
	}

	var query url.Values
	if p.opts.PageSizeHint > 0 && p.opts.PageSizeParameter != "" {
		query = url.Values{p.opts.PageSizeParameter: []string{strconv.Itoa(p.opts.PageSizeHint)}}
	}

	return p.client.builder.Build(p.verb, p.resourcePath, p.apiVersion, query, p.body)
}

// Pages returns a sequence over the remaining pages. Iteration stops at the
// first error, which is yielded once.
func (p *Pager) Pages(ctx context.Context) iter.Seq2[*Page, error] {
	return func(yield func(*Page, error) bool) {
		for p.More() {
			page, err := p.NextPage(ctx)
			if err != nil {
				yield(nil, err)

				return
			}

			if !yield(page, nil) {
				return
			}
		}
	}
}

// Items returns a sequence over the items of the remaining pages, in order.
func (p *Pager) Items(ctx context.Context) iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		for page, err := range p.Pages(ctx) {
			if err != nil {
				yield(Item{}, err)

				return
			}

			for _, item := range page.Items {
				if !yield(item, nil) {
					return
				}
			}
		}
	}
}

// All collects every remaining item. On error no partial result is returned.
func (p *Pager) All(ctx context.Context) ([]Item, error) {
	all := make([]Item, 0)

	for item, err := range p.Items(ctx) {
		if err != nil {
			return nil, err
		}

		all = append(all, item)
	}

	return all, nil
}

// ForEach calls fn for every remaining item, stopping at the first error.
func (p *Pager) ForEach(ctx context.Context, fn func(Item) error) error {
	for item, err := range p.Items(ctx) {
		if err != nil {
			return err
		}

		err = fn(item)
		if err != nil {
			return err
		}
	}

	return nil
}

// PageStream delivers pages from a background fetch loop. The loop is the
// only user of the pager's cursor state until Pages is closed.
type PageStream struct {
	pages  chan *Page
	cancel context.CancelFunc

	mu  sync.Mutex
	err error
}

// Stream starts fetching pages in the background. Each fetch starts only
// after the previous page has been received. Drain Pages, then check Err.
// Close stops the loop early.
func (p *Pager) Stream(ctx context.Context) *PageStream {
	ctx, cancel := context.WithCancel(ctx)

	stream := &PageStream{
		pages:  make(chan *Page),
		cancel: cancel,
	}

	go stream.run(ctx, p)

	return stream
}

func (s *PageStream) run(ctx context.Context, p *Pager) {
	defer s.cancel()
	defer close(s.pages)

	for p.More() {
		page, err := p.NextPage(ctx)
		if err != nil {
			s.setErr(err)

			return
		}

		select {
		case s.pages <- page:
		case <-ctx.Done():
			s.setErr(cancellation(ctx))

			return
		}
	}
}

func (s *PageStream) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.err = err
}

// Pages returns the channel pages are delivered on. It is closed when the
// collection is exhausted, on the first error, or after Close.
func (s *PageStream) Pages() <-chan *Page {
	return s.pages
}

// Err returns the error that ended the stream. It is meaningful once the
// Pages channel has been closed.
func (s *PageStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.err
}

// Close cancels the stream and waits for the fetch loop to exit.
func (s *PageStream) Close() {
	s.cancel()

	for range s.pages { //nolint:revive // drain until the loop exits
	}
}
