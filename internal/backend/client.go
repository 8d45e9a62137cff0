package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Deployment statuses reported by the service.
const (
	StatusSuccess = "success"
	StatusPending = "pending"
	StatusError   = "error"
)

const (
	deployPath = "/api/deploy-nft/"
	statusPath = "/api/transaction-status/"
	uploadPath = "/api/upload-nft-metadata/"

	maxBodyBytes = 1 << 20
)

// DeployRequest is the body of POST /api/deploy-nft/.
type DeployRequest struct {
	Name              string `json:"name"`
	Symbol            string `json:"symbol"`
	BaseURI           string `json:"baseURI"`
	RoyaltyPercentage int    `json:"royaltyPercentage"`
	OwnerAddress      string `json:"ownerAddress"`
}

// DeployResponse is the service's answer to a deploy request.
type DeployResponse struct {
	Status          string `json:"status"`
	TxHash          string `json:"tx_hash"`
	ContractAddress string `json:"contract_address"`
	Error           string `json:"error"`
}

// StatusResponse is the body of GET /api/transaction-status/{hash}/.
type StatusResponse struct {
	Status          string `json:"status"`
	ContractAddress string `json:"contract_address"`
	Message         string `json:"message"`
	Error           string `json:"error"`

	// HTTPStatus is the response code; it is not part of the body.
	HTTPStatus int `json:"-"`
}

// OK reports whether the status query itself succeeded at HTTP level.
func (s *StatusResponse) OK() bool {
	return s.HTTPStatus >= 200 && s.HTTPStatus < 300
}

// HTTPError is a non-2xx answer from the service.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned HTTP %d", e.StatusCode)
	}
	return e.Message
}

// Client talks to the NFT deployment service.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// BaseURL returns the service root the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// DeployNFT asks the service to deploy a collection owned by
// req.OwnerAddress. A non-2xx answer is returned as *HTTPError carrying the
// body's error field.
func (c *Client) DeployNFT(ctx context.Context, req DeployRequest) (*DeployResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding deploy request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+deployPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var out DeployResponse
	code, err := c.do(httpReq, &out)
	if err != nil {
		return nil, err
	}
	if code < 200 || code >= 300 {
		msg := out.Error
		if msg == "" {
			msg = "failed to deploy NFT contract"
		}
		return nil, &HTTPError{StatusCode: code, Message: msg}
	}
	return &out, nil
}

// TransactionStatus queries the deployment status of a transaction. Non-2xx
// answers are not errors: the decoded body is returned with HTTPStatus set,
// since the service reports failures through the status field.
func (c *Client) TransactionStatus(ctx context.Context, hash, kind string) (*StatusResponse, error) {
	if hash == "" {
		return nil, errors.New("transaction hash is required")
	}
	u := c.baseURL + statusPath + url.PathEscape(hash) + "/"
	if kind != "" {
		u += "?type=" + url.QueryEscape(kind)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	var out StatusResponse
	code, err := c.do(httpReq, &out)
	if err != nil {
		return nil, err
	}
	out.HTTPStatus = code
	if out.Message == "" && out.Error != "" {
		out.Message = out.Error
	}
	return &out, nil
}

// UploadMetadata sends a metadata file as multipart form data and returns
// the URI the service stored it under.
func (c *Client) UploadMetadata(ctx context.Context, filename string, content io.Reader, name, symbol string) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(fw, content); err != nil {
		return "", fmt.Errorf("reading metadata: %w", err)
	}
	if err := mw.WriteField("name", name); err != nil {
		return "", err
	}
	if err := mw.WriteField("symbol", symbol); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+uploadPath, &buf)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	var out struct {
		MetadataURI string `json:"metadataURI"`
		Error       string `json:"error"`
	}
	code, err := c.do(httpReq, &out)
	if err != nil {
		return "", err
	}
	if code < 200 || code >= 300 {
		return "", &HTTPError{StatusCode: code, Message: out.Error}
	}
	if out.MetadataURI == "" {
		return "", errors.New("upload response has no metadataURI")
	}
	return out.MetadataURI, nil
}

// do sends req and decodes a JSON body into v. An empty body is accepted; a
// body that is not JSON is an error unless the status is already non-2xx.
func (c *Client) do(req *http.Request, v any) (int, error) {
	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("reading backend response: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return resp.StatusCode, nil
		}
		return resp.StatusCode, fmt.Errorf("decoding backend response: %w", err)
	}
	return resp.StatusCode, nil
}
