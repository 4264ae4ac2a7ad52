package extension

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xraph/forge"

	"github.com/xraph/stockledger"
	"github.com/xraph/stockledger/api"
	"github.com/xraph/stockledger/store/memory"
)

// mountRecorder captures Handle calls; every other Router method is unused.
type mountRecorder struct {
	forge.Router
	path    string
	handler http.Handler
}

func (r *mountRecorder) Handle(path string, h http.Handler) error {
	r.path = path
	r.handler = h
	return nil
}

func TestMountRoutesUnderBasePath(t *testing.T) {
	gin.SetMode(gin.TestMode)

	e := New()
	e.handler = api.New(stockledger.New(memory.New()), api.WithBasePath("/pos"))

	rec := &mountRecorder{}
	require.NoError(t, e.mountRoutes(rec))
	assert.Equal(t, "/pos", rec.path)
	require.NotNil(t, rec.handler)

	req := httptest.NewRequest(http.MethodGet, "/pos/alerts", nil)
	req.Header.Set(api.HeaderStoreID, "store-1")
	req.Header.Set(api.HeaderUserID, "user-1")
	req.Header.Set(api.HeaderRole, "staff")
	w := httptest.NewRecorder()
	rec.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestMountRoutesWithoutRouter(t *testing.T) {
	e := New()
	e.handler = api.New(stockledger.New(memory.New()))
	assert.NoError(t, e.mountRoutes(nil))
}

func TestHandlerNilBeforeRegister(t *testing.T) {
	assert.Nil(t, New(WithDisableRoutes()).Handler())
}
