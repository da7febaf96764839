package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CaseLens/internal/application/casereview"
	"github.com/turtacn/CaseLens/pkg/errors"
	rtypes "github.com/turtacn/CaseLens/pkg/types/review"
)

func newDocumentRouter(backend *MockBackend, resolver casereview.PageURLResolver) chi.Router {
	h := NewDocumentHandler(func() *casereview.Navigator {
		return casereview.NewNavigator(backend, resolver, nil, nil)
	}, nil)
	r := chi.NewRouter()
	r.Get("/documents/{documentID}/pages/{page}", h.GetPage)
	return r
}

func getPage(r http.Handler, path string) (*httptest.ResponseRecorder, casereview.ViewerState) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	var st casereview.ViewerState
	_ = json.Unmarshal(w.Body.Bytes(), &st)
	return w, st
}

func TestDocumentHandler_GetPage(t *testing.T) {
	backend := new(MockBackend)
	backend.On("GetDocumentPage", mock.Anything, "D-1", 3).
		Return(&rtypes.DocumentPage{DocumentID: "D-1", Page: 3, PDFURL: "https://docs/D-1.pdf#page=3", PageText: "Unit price 120"}, nil)

	w, st := getPage(newDocumentRouter(backend, nil), "/documents/D-1/pages/3?highlight=120")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, casereview.ViewerOpen, st.Status)
	assert.Equal(t, "https://docs/D-1.pdf#page=3", st.URL)
	assert.Equal(t, "Unit price 120", st.PageText)
	assert.Equal(t, "120", st.Highlight)
}

func TestDocumentHandler_GetPage_ClampsPage(t *testing.T) {
	backend := new(MockBackend)
	backend.On("GetDocumentPage", mock.Anything, "D-1", 1).Return(&rtypes.DocumentPage{ImageURL: "https://img/1.png"}, nil).Once()

	w, st := getPage(newDocumentRouter(backend, nil), "/documents/D-1/pages/0")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, st.Page)
	assert.Equal(t, "https://img/1.png", st.URL)
	backend.AssertExpectations(t)
}

func TestDocumentHandler_GetPage_StorageKey(t *testing.T) {
	backend := new(MockBackend)
	backend.On("GetDocumentPage", mock.Anything, "D-2", 1).Return(&rtypes.DocumentPage{StorageKey: "s3://scans/D-2/1.png"}, nil)

	w, st := getPage(newDocumentRouter(backend, stubResolver{url: "https://minio/presigned"}), "/documents/D-2/pages/1")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://minio/presigned", st.URL)
}

func TestDocumentHandler_GetPage_BackendErrorKeepsState(t *testing.T) {
	backend := new(MockBackend)
	backend.On("GetDocumentPage", mock.Anything, "D-3", 2).Return(nil, errors.New(errors.ErrCodeBackendUnavailable, "down"))

	w, st := getPage(newDocumentRouter(backend, nil), "/documents/D-3/pages/2")

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, casereview.ViewerError, st.Status)
	assert.Equal(t, "D-3", st.DocumentID)
	assert.Empty(t, st.URL)
}

func TestDocumentHandler_GetPage_InvalidPage(t *testing.T) {
	w, _ := getPage(newDocumentRouter(new(MockBackend), nil), "/documents/D-1/pages/abc")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
