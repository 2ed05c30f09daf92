package payments

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jetsocket/backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	return NewClient(config.PaymentsConfig{APIKey: "test-key", APIBaseURL: url + "/", StoreID: "42"})
}

func TestCreateCheckout(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkouts", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, jsonAPIContentType, r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", jsonAPIContentType)
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"data":{"id":"chk_1","attributes":{"url":"https://pay.example/checkout/chk_1"}}}`)
	}))
	defer srv.Close()

	session, err := newTestClient(srv.URL).CreateCheckout(context.Background(), CheckoutParams{
		VariantID:   "200",
		UserEmail:   "dev@example.com",
		UserID:      "7",
		RedirectURL: "http://localhost:3000/checkout",
	})
	require.NoError(t, err)
	assert.Equal(t, "chk_1", session.ID)
	assert.Equal(t, "https://pay.example/checkout/chk_1", session.URL)

	data := got["data"].(map[string]interface{})
	attrs := data["attributes"].(map[string]interface{})
	checkout := attrs["checkout_data"].(map[string]interface{})
	assert.Equal(t, "dev@example.com", checkout["email"])
	assert.Equal(t, "7", checkout["custom"].(map[string]interface{})["user_id"])
	assert.Equal(t, "http://localhost:3000/checkout", attrs["product_options"].(map[string]interface{})["redirect_url"])

	rel := data["relationships"].(map[string]interface{})
	assert.Equal(t, "42", rel["store"].(map[string]interface{})["data"].(map[string]interface{})["id"])
	assert.Equal(t, "200", rel["variant"].(map[string]interface{})["data"].(map[string]interface{})["id"])
}

func TestCreateCheckout_ProcessorErrorVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, `{"errors":[{"status":"422","title":"Unprocessable Entity","detail":"The variant is not published."}]}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateCheckout(context.Background(), CheckoutParams{VariantID: "1"})
	require.Error(t, err)

	var perr *ProcessorError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusUnprocessableEntity, perr.StatusCode)
	assert.Equal(t, "The variant is not published.", err.Error())
}

func TestCreateCheckout_PlainTextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateCheckout(context.Background(), CheckoutParams{VariantID: "1"})
	require.Error(t, err)
	assert.Equal(t, "upstream exploded", err.Error())
}

func TestCreateCheckout_NotConfigured(t *testing.T) {
	c := NewClient(config.PaymentsConfig{})
	assert.False(t, c.Configured())

	_, err := c.CreateCheckout(context.Background(), CheckoutParams{})
	assert.ErrorIs(t, err, ErrPaymentsDisabled)
}
