package notify

import (
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishBreachPayload(t *testing.T) {
	var gotSecret string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSecret = r.Header.Get("x-secret")
		data, _ := ioutil.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(data, &gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, "hush", 5)
	id := w.PublishBreach(1001, "overall_drawdown", 91900, 92500, 92000, 100000)

	require.NotEmpty(t, id)
	assert.Equal(t, "hush", gotSecret)
	assert.Equal(t, "account_breached", gotBody["event"])
	assert.Equal(t, id, gotBody["event_id"])
	assert.EqualValues(t, 1001, gotBody["login"])
	assert.Equal(t, "overall_drawdown", gotBody["reason"])
	assert.EqualValues(t, 92000, gotBody["limit"])
	assert.NotEmpty(t, gotBody["timestamp"])
}

func TestPublishPassPayload(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := ioutil.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(data, &gotBody))
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, "", 5)
	w.PublishPass(1001, 108200, 108000, 108000)

	assert.Equal(t, "account_passed", gotBody["event"])
	assert.EqualValues(t, 108000, gotBody["target"])
}

func TestWebhookFailureIsSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, "", 5)
	id := w.PublishBreach(1001, "daily_drawdown", 95000, 95000, 95808, 99800)
	assert.NotEmpty(t, id, "delivery failure still yields an event id for the journal")

	// No configured endpoint: silently skipped.
	empty := NewWebhook("", "", 5)
	empty.PublishPass(1001, 1, 1, 1)
}
