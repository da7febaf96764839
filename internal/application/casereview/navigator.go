package casereview

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/turtacn/CaseLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLens/pkg/errors"
)

// ViewerStatus is the state of the evidence document viewer.
type ViewerStatus string

const (
	ViewerClosed  ViewerStatus = "closed"
	ViewerLoading ViewerStatus = "loading"
	ViewerOpen    ViewerStatus = "open"
	ViewerError   ViewerStatus = "error"
)

// ViewerState is a snapshot of the viewer.
type ViewerState struct {
	Status     ViewerStatus `json:"status"`
	DocumentID string       `json:"document_id,omitempty"`
	Page       int          `json:"page,omitempty"`
	URL        string       `json:"url"`
	PageText   string       `json:"page_text"`
	Highlight  string       `json:"highlight,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// Navigator tracks the single open evidence document. Opening a page while
// another request is in flight supersedes it.
type Navigator struct {
	backend  Backend
	resolver PageURLResolver
	logger   logging.Logger
	metrics  Metrics

	mu    sync.Mutex
	seq   uint64
	state ViewerState
}

// NewNavigator returns a closed Navigator. resolver may be nil when pages
// never carry storage keys.
func NewNavigator(backend Backend, resolver PageURLResolver, logger logging.Logger, metrics Metrics) *Navigator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	return &Navigator{
		backend:  backend,
		resolver: resolver,
		logger:   logger.Named("navigator"),
		metrics:  metrics,
		state:    ViewerState{Status: ViewerClosed},
	}
}

// State returns the current viewer state.
func (n *Navigator) State() ViewerState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Open loads page of documentID. Pages below 1 are clamped to 1. A failed
// load leaves the viewer in the error state with an empty url and text and
// is also returned.
func (n *Navigator) Open(ctx context.Context, documentID string, page int, highlight string) (ViewerState, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return n.State(), errors.New(errors.ErrCodeDocumentNotFound, "document id is required")
	}
	if page < 1 {
		page = 1
	}

	n.mu.Lock()
	n.seq++
	seq := n.seq
	n.state = ViewerState{Status: ViewerLoading, DocumentID: documentID, Page: page, Highlight: highlight}
	n.mu.Unlock()

	url, text, err := n.load(ctx, documentID, page)

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.seq != seq {
		n.metrics.IncStaleDropped("page")
		n.logger.Debug("dropping superseded page", logging.String(logging.KeyDocument, documentID), logging.Int("page", page))
		return n.state, nil
	}
	if err != nil {
		n.state = ViewerState{
			Status:     ViewerError,
			DocumentID: documentID,
			Page:       page,
			Highlight:  highlight,
			Error:      err.Error(),
		}
		return n.state, err
	}
	n.state = ViewerState{
		Status:     ViewerOpen,
		DocumentID: documentID,
		Page:       page,
		URL:        url,
		PageText:   text,
		Highlight:  highlight,
	}
	return n.state, nil
}

func (n *Navigator) load(ctx context.Context, documentID string, page int) (string, string, error) {
	start := time.Now()
	p, err := n.backend.GetDocumentPage(ctx, documentID, page)
	n.metrics.ObserveFetch("document_page", time.Since(start), err)
	if err != nil {
		n.logger.Warn("failed to load document page",
			logging.String(logging.KeyDocument, documentID), logging.Int("page", page), logging.Err(err))
		return "", "", err
	}
	if p == nil {
		return "", "", errors.New(errors.ErrCodeDocumentNotFound, "document page not found")
	}

	url := p.PDFURL
	if url == "" {
		url = p.ImageURL
	}
	if url == "" && p.StorageKey != "" {
		if n.resolver == nil {
			return "", "", errors.New(errors.ErrCodeDocumentURLFailed, "no resolver for storage key")
		}
		url, err = n.resolver.ResolvePageURL(ctx, p.StorageKey)
		if err != nil {
			return "", "", errors.Wrap(err, errors.ErrCodeDocumentURLFailed, "failed to resolve page url")
		}
	}
	return url, p.PageText, nil
}

// Goto moves the last opened document to page, reopening the viewer if it
// was closed. Without a document it does nothing.
func (n *Navigator) Goto(ctx context.Context, page int) (ViewerState, error) {
	st := n.State()
	if st.DocumentID == "" {
		return st, nil
	}
	return n.Open(ctx, st.DocumentID, page, st.Highlight)
}

// Close hides the viewer and supersedes any in-flight load. The document
// and page are remembered for Goto.
func (n *Navigator) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seq++
	n.state = ViewerState{Status: ViewerClosed, DocumentID: n.state.DocumentID, Page: n.state.Page}
}
