package pointer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	distypes "github.com/storyatlas/disburse/types"
)

func TestNewHTTPPinningClient_MissingCredential(t *testing.T) {
	_, err := NewHTTPPinningClient("https://api.example", "https://gw.example", "  ")
	require.Error(t, err)

	var typed *distypes.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, distypes.ErrConfiguration, typed.Code)
	assert.Contains(t, typed.Message, distypes.ReasonMissingCredential)
}

func TestPinJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/pinning/pinJSONToIPFS", r.URL.Path)
		assert.Equal(t, "Bearer test-jwt", r.Header.Get("Authorization"))

		var body struct {
			PinataContent  map[string]any `json:"pinataContent"`
			PinataMetadata map[string]any `json:"pinataMetadata"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "cidA", body.PinataContent["latest"])
		assert.Equal(t, "global-state", body.PinataMetadata["name"])

		json.NewEncoder(w).Encode(map[string]string{"IpfsHash": "bafyrecord"})
	}))
	defer srv.Close()

	client, err := NewHTTPPinningClient(srv.URL, srv.URL, "test-jwt")
	require.NoError(t, err)

	cid, err := client.PinJSON(context.Background(), map[string]string{"latest": "cidA"}, "global-state")
	require.NoError(t, err)
	assert.Equal(t, "bafyrecord", cid)
}

func TestPinFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pinning/pinFileToIPFS", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "snapshot", header.Filename)

		assert.JSONEq(t, `{"name":"snapshot"}`, r.FormValue("pinataMetadata"))

		json.NewEncoder(w).Encode(map[string]string{"IpfsHash": "bafyblob"})
	}))
	defer srv.Close()

	client, err := NewHTTPPinningClient(srv.URL, srv.URL, "test-jwt")
	require.NoError(t, err)

	cid, err := client.PinFile(context.Background(), []byte("payload"), "snapshot")
	require.NoError(t, err)
	assert.Equal(t, "bafyblob", cid)
}

func TestPin_BackendErrorIncludesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":"plan limit reached"}`))
	}))
	defer srv.Close()

	client, err := NewHTTPPinningClient(srv.URL, srv.URL, "test-jwt")
	require.NoError(t, err)

	_, err = client.PinJSON(context.Background(), map[string]string{}, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=402")
	assert.Contains(t, err.Error(), "plan limit reached")
}

func TestLatestByName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/pinList", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("pageLimit"))
		assert.Equal(t, "pinned", r.URL.Query().Get("status"))
		assert.Equal(t, "global-state", r.URL.Query().Get("metadata[name]"))

		json.NewEncoder(w).Encode(map[string]any{
			"count": 2,
			"rows": []map[string]string{
				{"ipfs_pin_hash": "bafynewest", "date_pinned": "2026-08-30T11:59:00Z"},
			},
		})
	}))
	defer srv.Close()

	client, err := NewHTTPPinningClient(srv.URL, srv.URL, "test-jwt")
	require.NoError(t, err)

	cid, err := client.LatestByName(context.Background(), "global-state")
	require.NoError(t, err)
	assert.Equal(t, "bafynewest", cid)
}

func TestLatestByName_NoRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"count": 0, "rows": []any{}})
	}))
	defer srv.Close()

	client, err := NewHTTPPinningClient(srv.URL, srv.URL, "test-jwt")
	require.NoError(t, err)

	cid, err := client.LatestByName(context.Background(), "never-used")
	require.NoError(t, err)
	assert.Empty(t, cid)
}

func TestFetchBlob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bafyblob", r.URL.Path)
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	client, err := NewHTTPPinningClient(srv.URL, srv.URL, "test-jwt")
	require.NoError(t, err)

	blob, err := client.FetchBlob(context.Background(), "bafyblob")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), blob)
}

func TestFetchBlob_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client, err := NewHTTPPinningClient(srv.URL, srv.URL, "test-jwt")
	require.NoError(t, err)

	_, err = client.FetchBlob(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=404")
}
