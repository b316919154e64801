package feed

import (
	"context"
	"sync"

	"photogram/observable"
	"photogram/storage/models"
)

// State is the pagination controller's lifecycle state. Loading and
// LoadingMore act as a mutex over fetch-triggering: while either is
// active no second fetch can start, so at most one page request is in
// flight per controller and results apply in request order.
type State int

const (
	StateEmpty State = iota
	StateLoading
	StateLoaded
	StateLoadingMore
	StateError
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateLoadingMore:
		return "loading_more"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// PageFunc fetches one timeline page. storage.TimelineService.Page
// satisfies it via a closure over the viewer id.
type PageFunc func(ctx context.Context, offset, limit int64) ([]models.Post, error)

type Options struct {
	InitialPageSize  int64
	PageSize         int64
	NearEndThreshold int

	// Apply delivers fetch results back onto the driving context. The
	// default runs them inline on the fetch goroutine.
	Apply func(func())
}

const (
	DefaultInitialPageSize  = 5
	DefaultPageSize         = 5
	DefaultNearEndThreshold = 1
)

// Controller incrementally loads a timeline for a display surface. All
// methods are safe to call from the driving context; fetches run on their
// own goroutine and never block the caller.
type Controller struct {
	page    PageFunc
	options Options
	updates *observable.Value[[]models.Post]

	mu          sync.Mutex
	state       State
	posts       []models.Post
	noMorePages bool
	closed      bool
	lastErr     error
	failedRange [2]int64
}

func NewController(page PageFunc, options Options) *Controller {
	if options.InitialPageSize <= 0 {
		options.InitialPageSize = DefaultInitialPageSize
	}
	if options.PageSize <= 0 {
		options.PageSize = DefaultPageSize
	}
	if options.NearEndThreshold <= 0 {
		options.NearEndThreshold = DefaultNearEndThreshold
	}
	if options.Apply == nil {
		options.Apply = func(fn func()) { fn() }
	}
	return &Controller{
		page:    page,
		options: options,
		updates: observable.New[[]models.Post](),
	}
}

// LoadInitial requests the first page. It is a no-op unless the
// controller is Empty, so repeated "became visible" signals cannot start
// duplicate loads.
func (c *Controller) LoadInitial(ctx context.Context) {
	c.mu.Lock()
	if c.closed || c.state != StateEmpty {
		c.mu.Unlock()
		return
	}
	c.state = StateLoading
	limit := c.options.InitialPageSize
	c.mu.Unlock()

	go c.fetch(ctx, 0, limit)
}

// OnNearEndOfContent reports that the display surface is rendering index.
// When the index is within the trailing threshold of loaded content and
// the controller is Loaded, the next page is requested; any other state
// makes this a no-op, which swallows redundant triggers from rapid
// scrolling.
func (c *Controller) OnNearEndOfContent(ctx context.Context, index int) {
	c.mu.Lock()
	if c.closed || c.state != StateLoaded || c.noMorePages {
		c.mu.Unlock()
		return
	}
	if index < len(c.posts)-c.options.NearEndThreshold {
		c.mu.Unlock()
		return
	}
	c.state = StateLoadingMore
	offset := int64(len(c.posts))
	limit := c.options.PageSize
	c.mu.Unlock()

	go c.fetch(ctx, offset, limit)
}

// Retry re-issues the exact range that failed. Valid only from Error;
// already-loaded content is untouched.
func (c *Controller) Retry(ctx context.Context) {
	c.mu.Lock()
	if c.closed || c.state != StateError {
		c.mu.Unlock()
		return
	}
	if len(c.posts) == 0 {
		c.state = StateLoading
	} else {
		c.state = StateLoadingMore
	}
	offset, limit := c.failedRange[0], c.failedRange[1]
	c.mu.Unlock()

	go c.fetch(ctx, offset, limit)
}

func (c *Controller) fetch(ctx context.Context, offset, limit int64) {
	posts, err := c.page(ctx, offset, limit)
	c.options.Apply(func() {
		c.applyResult(offset, limit, posts, err)
	})
}

func (c *Controller) applyResult(offset, limit int64, posts []models.Post, err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.state = StateError
		c.lastErr = err
		c.failedRange = [2]int64{offset, limit}
		c.mu.Unlock()
		return
	}

	c.lastErr = nil
	if len(posts) == 0 {
		c.noMorePages = true
	}
	c.posts = append(c.posts, posts...)
	c.state = StateLoaded
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.updates.Set(snapshot)
}

// Updates exposes the loaded content as an observable; a subscriber added
// late still receives the latest snapshot.
func (c *Controller) Updates() *observable.Value[[]models.Post] {
	return c.updates
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Posts() []models.Post {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// NoMorePages reports whether an empty page marked the timeline as fully
// loaded for this session.
func (c *Controller) NoMorePages() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.noMorePages
}

// Close discards the controller. A fetch completing afterwards is a safe
// no-op.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *Controller) snapshotLocked() []models.Post {
	snapshot := make([]models.Post, len(c.posts))
	copy(snapshot, c.posts)
	return snapshot
}
