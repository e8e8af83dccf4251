package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	return c, w
}

func TestOKWithMeta(t *testing.T) {
	c, w := newContext()
	OK(c, map[string]string{"hello": "world"}, map[string]interface{}{"cache_hit": true})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	var env struct {
		Data map[string]string      `json:"data"`
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "world", env.Data["hello"])
	assert.Equal(t, true, env.Meta["cache_hit"])
}

func TestErrorMapsAppErrors(t *testing.T) {
	c, w := newContext()
	Error(c, appErrors.Clone(appErrors.ErrInvalidInput, "bad date"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_INPUT")

	c, w = newContext()
	Error(c, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAttachment(t *testing.T) {
	c, w := newContext()
	Attachment(c, "events.csv", "text/csv", []byte("a,b\n"))
	assert.Equal(t, `attachment; filename="events.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "a,b\n", w.Body.String())
}
