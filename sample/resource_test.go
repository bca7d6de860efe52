package sample

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router, err := NewServer(zaptest.NewLogger(t))
	require.NoError(t, err)
	return router
}

func serve(router http.Handler, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestHello(t *testing.T) {
	w := serve(newTestRouter(t), http.MethodGet, "/hello")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Hello micmine!")
}

func TestCustomer(t *testing.T) {
	w := serve(newTestRouter(t), http.MethodGet, "/hello/customer/ada")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Hello ada!")
	assert.Contains(t, w.Body.String(), `hx-get="/hello/customer/ada"`)
}

func TestCustomerEscapesName(t *testing.T) {
	w := serve(newTestRouter(t), http.MethodGet, "/hello/customer/%3Cb%3E")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "Hello <b>!")
	assert.Contains(t, w.Body.String(), "Hello &lt;b&gt;!")
}

func TestUpdateCustomer(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name     string
		target   string
		wantCode int
		wantBody map[string]any
	}{
		{
			name:     "integer sufix",
			target:   "/hello/customer/ada/7",
			wantCode: http.StatusNotImplemented,
			wantBody: map[string]any{
				"error": "not implemented",
				"route": "PUT /hello/customer/:name/:sufix",
				"name":  "ada",
				"sufix": float64(7),
			},
		},
		{
			name:     "non integer sufix",
			target:   "/hello/customer/ada/seven",
			wantCode: http.StatusBadRequest,
			wantBody: map[string]any{"error": "sufix must be an integer"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, http.MethodPut, tt.target)
			require.Equal(t, tt.wantCode, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantBody, body)
		})
	}
}

func TestRouteTable(t *testing.T) {
	var got []string
	for _, r := range newTestRouter(t).Routes() {
		got = append(got, r.Method+" "+r.Path)
	}
	assert.ElementsMatch(t, []string{
		"GET /health",
		"GET /hello",
		"GET /hello/customer/:name",
		"PUT /hello/customer/:name/:sufix",
	}, got)
}

func TestTemplateInstanceData(t *testing.T) {
	base := TemplateInstance{"a": 1}
	next := base.Data("name", "micmine")

	assert.Equal(t, TemplateInstance{"a": 1, "name": "micmine"}, next)
	assert.Equal(t, TemplateInstance{"a": 1}, base, "Data does not modify the receiver")
}
