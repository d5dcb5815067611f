package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_NilConfigUsesDefaults(t *testing.T) {
	c := New(nil)
	assert.Equal(t, DefaultTimeout, c.defaultTimeout)
	assert.Equal(t, defaultUserAgent, c.userAgent)
}

func TestNew_ZeroValuesGetDefaults(t *testing.T) {
	c := New(&Config{ForceHTTP2: true})
	assert.Equal(t, DefaultTimeout, c.defaultTimeout)
}

func TestDo_NilRequest(t *testing.T) {
	c := New(nil)
	_, err := c.Do(context.Background(), nil)
	require.Error(t, err)
}

func TestGet_InjectsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(&Config{UserAgent: "snapsearch-test", ForceHTTP2: true})
	defer c.Close()

	resp, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, "snapsearch-test", gotUA)
}

func TestDo_ContextCancellation(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := New(nil)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Get(ctx, srv.URL)
	require.Error(t, err)
}

func TestHooks_Called(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(nil)
	defer c.Close()

	var beforeCalled, afterCalled bool
	c.SetBeforeRequestHook(func(r *http.Request) { beforeCalled = true })
	c.SetAfterResponseHook(func(r *http.Request, resp *http.Response, err error) { afterCalled = true })

	resp, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.True(t, beforeCalled)
	assert.True(t, afterCalled)
}
