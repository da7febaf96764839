package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/CaseLens/internal/application/casereview"
	"github.com/turtacn/CaseLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLens/pkg/errors"
)

// NavigatorFactory returns a closed navigator for one request.
type NavigatorFactory func() *casereview.Navigator

// DocumentHandler resolves evidence document pages.
type DocumentHandler struct {
	navigators NavigatorFactory
	logger     logging.Logger
}

func NewDocumentHandler(navigators NavigatorFactory, logger logging.Logger) *DocumentHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &DocumentHandler{navigators: navigators, logger: logger.Named("document_handler")}
}

// GetPage handles GET /api/v1/documents/{documentID}/pages/{page}. The
// optional highlight query parameter is echoed into the viewer state. A page
// that fails to load still answers with the error state and the mapped status.
func (h *DocumentHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil {
		writeAppError(w, r, errors.New(errors.ErrCodeDocumentPageInvalid, "page must be an integer"))
		return
	}

	nav := h.navigators()
	state, err := nav.Open(r.Context(), chi.URLParam(r, "documentID"), page, r.URL.Query().Get("highlight"))
	if err != nil {
		if state.Status != casereview.ViewerError {
			writeAppError(w, r, err)
			return
		}
		code := errors.GetCode(err)
		if code == errors.CodeUnknown {
			code = errors.ErrCodeBackendUnavailable
		}
		writeJSON(w, errors.HTTPStatusForCode(code), state)
		return
	}
	writeJSON(w, http.StatusOK, state)
}
