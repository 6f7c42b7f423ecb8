// Package pinata uploads files to the Pinata IPFS pinning API.
package pinata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// DefaultEndpoint is the Pinata file-pinning endpoint.
const DefaultEndpoint = "https://api.pinata.cloud/pinning/pinFileToIPFS"

// errorBodyLimit caps how much of an error response is echoed back.
const errorBodyLimit = 8 << 10

// PinResult is the subset of the Pinata response the worker consumes.
type PinResult struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// Client pins files to Pinata using a bearer JWT.
type Client struct {
	jwt      string
	endpoint string
	http     *http.Client
}

// NewClient creates a Pinata client. An empty endpoint selects
// DefaultEndpoint; a nil httpClient falls back to a client with a
// 10-minute timeout (uploads can be large).
func NewClient(jwt, endpoint string, httpClient *http.Client) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Minute}
	}
	return &Client{jwt: jwt, endpoint: endpoint, http: httpClient}
}

type pinMetadata struct {
	Name      string            `json:"name"`
	Keyvalues map[string]string `json:"keyvalues"`
}

type pinOptions struct {
	CidVersion int `json:"cidVersion"`
}

// PinFile uploads the file at path under the given display name and
// returns the resulting CID. The upload is streamed; the file is never
// read fully into memory.
func (c *Client) PinFile(ctx context.Context, path, name string) (*PinResult, error) {
	if c.jwt == "" {
		return nil, fmt.Errorf("pinata JWT not configured")
	}
	if name == "" {
		name = filepath.Base(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file for pinning: %w", err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writePinForm(mw, f, name))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, pr)
	if err != nil {
		return nil, fmt.Errorf("building pin request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.jwt)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("uploading to pinata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return nil, fmt.Errorf("pinata answered %s: %s", resp.Status, string(body))
	}

	var result PinResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding pinata response: %w", err)
	}
	if result.IpfsHash == "" {
		return nil, fmt.Errorf("pinata response carries no CID")
	}
	return &result, nil
}

// writePinForm writes the three multipart parts Pinata expects: the file
// itself, pinataMetadata and pinataOptions (CIDv1).
func writePinForm(mw *multipart.Writer, f *os.File, name string) error {
	part, err := mw.CreateFormFile("file", filepath.Base(f.Name()))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return err
	}

	meta, err := json.Marshal(pinMetadata{
		Name:      name,
		Keyvalues: map[string]string{"source": "ytipfs-worker"},
	})
	if err != nil {
		return err
	}
	if err := mw.WriteField("pinataMetadata", string(meta)); err != nil {
		return err
	}

	opts, err := json.Marshal(pinOptions{CidVersion: 1})
	if err != nil {
		return err
	}
	if err := mw.WriteField("pinataOptions", string(opts)); err != nil {
		return err
	}
	return mw.Close()
}
