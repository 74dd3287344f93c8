// Package httpclient provides basic http functions
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// retriableStatuses are vendor responses worth retrying, everything else is final
var retriableStatuses = map[int]bool{
	http.StatusInternalServerError: true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Client issues authenticated GET requests against a vendor api with bounded retries.
type Client struct {
	BaseURL      string
	User         string
	Password     string
	RetryTimeout time.Duration
	HTTPClient   *http.Client
}

// NewClient builds a Client for baseURL with basic auth credentials.
// retryTimeout bounds the total time spent retrying a single request.
func NewClient(baseURL string, user string, password string, retryTimeout time.Duration) *Client {
	return &Client{
		BaseURL:      baseURL,
		User:         user,
		Password:     password,
		RetryTimeout: retryTimeout,
		HTTPClient:   &http.Client{},
	}
}

// Get performs a GET on path under the client's base url, retrying retriable statuses
// with a 0.5 * 1.5^(k-1) second sleep between attempts until RetryTimeout has elapsed.
// Returns the response body on a 2xx status.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	firstRequestTime := time.Now()
	retryCounter := 0
	for {
		if retryCounter > 0 {
			delay := 0.5 * pow15(retryCounter-1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(delay * float64(time.Second))):
			}
		}
		body, status, err := c.get(ctx, path)
		if err != nil {
			return nil, err
		}
		if status >= 200 && status < 300 {
			return body, nil
		}
		if !retriableStatuses[status] {
			return nil, fmt.Errorf("request to %s returned status %d", path, status)
		}
		if time.Since(firstRequestTime) > c.RetryTimeout {
			return nil, fmt.Errorf("request to %s timed out after %d retries, last status %d",
				path, retryCounter, status)
		}
		retryCounter++
	}
}

func (c *Client) get(ctx context.Context, path string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/"+path, nil)
	if err != nil {
		return nil, 0, err
	}
	req.SetBasicAuth(c.User, c.Password)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func pow15(n int) float64 {
	result := 1.0
	for i := 0; i < n; i++ {
		result *= 1.5
	}
	return result
}

// DownloadedFile contains information about a file that has been downloaded to the local file system
type DownloadedFile struct {
	URL           string
	LocalFilePath string
	Size          int64
	DownloadedAt  time.Time
}

// DownloadRemoteFile retrieves a file from a url to a local file destination.
// On success returns information about the file in DownloadedFile
func DownloadRemoteFile(destinationFileName string, url string) (*DownloadedFile, error) {
	// Get the data
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download of %s returned status %d", url, resp.StatusCode)
	}

	// Create the file
	out, err := os.Create(destinationFileName)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = out.Close()
	}()
	// Write the body to file
	bytesWritten, err := io.Copy(out, resp.Body)
	if err != nil {
		return nil, err
	}

	result := DownloadedFile{
		URL:           url,
		LocalFilePath: destinationFileName,
		Size:          bytesWritten,
		DownloadedAt:  time.Now(),
	}
	return &result, err
}
