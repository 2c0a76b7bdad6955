package pointer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	distypes "github.com/storyatlas/disburse/types"
)

// PinningClient is the subset of a content-addressed pinning service the
// pointer store requires. Content ids are opaque here; the backend derives
// them from the bytes and this subsystem never recomputes them.
type PinningClient interface {
	PinJSON(ctx context.Context, payload any, name string) (string, error)
	PinFile(ctx context.Context, data []byte, name string) (string, error)
	LatestByName(ctx context.Context, name string) (string, error)
	FetchBlob(ctx context.Context, cid string) ([]byte, error)
}

// HTTPPinningClient implements PinningClient against a Pinata-style HTTP API
// with bearer authentication.
type HTTPPinningClient struct {
	jwt        string
	baseURL    string
	gatewayURL string
	http       *http.Client
}

type pinResponse struct {
	IpfsHash string `json:"IpfsHash"`
}

type pinListResponse struct {
	Count int `json:"count"`
	Rows  []struct {
		IpfsPinHash string `json:"ipfs_pin_hash"`
		DatePinned  string `json:"date_pinned"`
	} `json:"rows"`
}

// NewHTTPPinningClient constructs the client. An absent bearer credential is
// a configuration error, reported distinctly from backend failures.
func NewHTTPPinningClient(baseURL, gatewayURL, jwt string) (*HTTPPinningClient, error) {
	if strings.TrimSpace(jwt) == "" {
		return nil, distypes.NewError(distypes.ErrConfiguration, "%s: pinning bearer credential is not configured", distypes.ReasonMissingCredential)
	}
	return &HTTPPinningClient{
		jwt:        jwt,
		baseURL:    strings.TrimRight(baseURL, "/"),
		gatewayURL: strings.TrimRight(gatewayURL, "/"),
		http:       &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// PinJSON publishes a JSON document and returns its content id.
func (c *HTTPPinningClient) PinJSON(ctx context.Context, payload any, name string) (string, error) {
	body := map[string]any{
		"pinataContent": payload,
		"pinataMetadata": map[string]any{
			"name": name,
		},
	}
	buf, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/pinning/pinJSONToIPFS", bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doPin(req)
}

// PinFile publishes raw bytes and returns their content id.
func (c *HTTPPinningClient) PinFile(ctx context.Context, data []byte, name string) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}

	meta, err := json.Marshal(map[string]any{"name": name})
	if err != nil {
		return "", err
	}
	if err := writer.WriteField("pinataMetadata", string(meta)); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/pinning/pinFileToIPFS", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.doPin(req)
}

// LatestByName returns the content id of the most recently pinned blob
// carrying the metadata name, or empty when none exists. The backend orders
// by its own creation time, newest first; page size one is all we need.
func (c *HTTPPinningClient) LatestByName(ctx context.Context, name string) (string, error) {
	query := url.Values{}
	query.Set("status", "pinned")
	query.Set("pageLimit", "1")
	query.Set("metadata[name]", name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/data/pinList?"+query.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.jwt)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("pin list failed: status=%d body=%s", resp.StatusCode, readBody(resp.Body))
	}

	var list pinListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return "", err
	}
	if len(list.Rows) == 0 {
		return "", nil
	}
	return list.Rows[0].IpfsPinHash, nil
}

// FetchBlob retrieves a blob's bytes by content id through the gateway.
func (c *HTTPPinningClient) FetchBlob(ctx context.Context, cid string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.gatewayURL+"/"+cid, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("blob fetch failed: status=%d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *HTTPPinningClient) doPin(req *http.Request) (string, error) {
	req.Header.Set("Authorization", "Bearer "+c.jwt)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		// Surface the backend's raw error text for diagnosis.
		return "", fmt.Errorf("pin failed: status=%d body=%s", resp.StatusCode, readBody(resp.Body))
	}

	var pinned pinResponse
	if err := json.NewDecoder(resp.Body).Decode(&pinned); err != nil {
		return "", err
	}
	if pinned.IpfsHash == "" {
		return "", fmt.Errorf("pin response missing content id")
	}
	return pinned.IpfsHash, nil
}

func readBody(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(body))
}
