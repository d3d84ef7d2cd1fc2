package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Malformed path ids must produce exactly one JSON error body.  The
// id helpers write the 400 themselves, so the handlers have to stop
// on the ok flag rather than the (nil) error from the JSON write.
func TestInvoiceBadPathIDsSingleBody(t *testing.T) {
	h := &InvoiceHandler{} // id parsing fails before any repository use

	for _, tc := range []struct {
		name   string
		params map[string]string
		want   string
	}{
		{"bad event id", map[string]string{"event_id": "abc", "attending_id": "1"}, "invalid event id"},
		{"bad attending id", map[string]string{"event_id": "1", "attending_id": "xyz"}, "invalid attending id"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(h.List, http.MethodGet, "/v1/events/1/attending/1/invoices", "", 1, tc.params)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			// A concatenated second body would make the payload
			// invalid JSON.
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.want, body["error"])
		})
	}
}

func TestInvoiceBadInvoiceIDSingleBody(t *testing.T) {
	h := &InvoiceHandler{}
	rec := doRequest(h.Get, http.MethodGet, "/v1/events/1/attending/1/invoices/nope", "", 1,
		map[string]string{"event_id": "abc", "attending_id": "1", "invoice_id": "nope"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid event id", body["error"])
}
