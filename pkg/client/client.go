package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/mrshanahan/notes-local/internal/utils"
	"github.com/mrshanahan/notes-local/pkg/notes"
)

type Client struct {
	URL string
}

func NewClient(url string) *Client {
	return &Client{url}
}

func (c *Client) ListNotes() ([]*notes.Note, error) {
	resp, err := c.invoke("GET", "/notes/")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBytes, err := validateResponse(resp)
	if err != nil {
		return nil, err
	}

	var collection []*notes.Note
	if err := json.Unmarshal(respBytes, &collection); err != nil {
		return nil, fmt.Errorf("error JSON-decoding response body: %w", err)
	}

	return collection, nil
}

func (c *Client) SearchNotes(query string) ([]*notes.Note, error) {
	resp, err := c.invokeWithQuery("GET", "/notes/", "q="+url.QueryEscape(query))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBytes, err := validateResponse(resp)
	if err != nil {
		return nil, err
	}

	var collection []*notes.Note
	if err := json.Unmarshal(respBytes, &collection); err != nil {
		return nil, fmt.Errorf("error JSON-decoding response body: %w", err)
	}

	return collection, nil
}

func (c *Client) CreateNote() (*notes.Note, error) {
	resp, err := c.invoke("POST", "/notes/")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBytes, err := validateResponse(resp)
	if err != nil {
		return nil, err
	}

	var note *notes.Note
	if err := json.Unmarshal(respBytes, &note); err != nil {
		return nil, fmt.Errorf("error JSON-decoding response body: %w", err)
	}

	return note, nil
}

func (c *Client) ActivateNote(id string) (*notes.Note, error) {
	urlPath := fmt.Sprintf("/notes/%s/activate", id)
	resp, err := c.invoke("POST", urlPath)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBytes, err := validateResponse(resp)
	if err != nil {
		return nil, err
	}

	var note *notes.Note
	if err := json.Unmarshal(respBytes, &note); err != nil {
		return nil, fmt.Errorf("error JSON-decoding response body: %w", err)
	}

	return note, nil
}

// UpdateActiveFields sends new field values for the active note. With
// flush true the commit is immediate; otherwise it lands after the
// server's autosave quiet period.
func (c *Client) UpdateActiveFields(title string, content string, flush bool) error {
	query := ""
	if flush {
		query = "flush=true"
	}

	encTitle, err := json.Marshal(title)
	if err != nil {
		return fmt.Errorf("error JSON-encoding title: %w", err)
	}
	encContent, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("error JSON-encoding content: %w", err)
	}
	payload := fmt.Sprintf("{\"title\":%s,\"content\":%s}", encTitle, encContent)

	resp, err := c.invokeWithPayload("POST", "/notes/active/fields", query, "application/json", strings.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, err = validateResponse(resp)
	return err
}

func (c *Client) DeleteActiveNote() error {
	resp, err := c.invokeWithQuery("DELETE", "/notes/active", "confirm=true")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, err = validateResponse(resp)
	return err
}

func (c *Client) ClearAllNotes() error {
	resp, err := c.invokeWithQuery("DELETE", "/notes/", "confirm=true")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, err = validateResponse(resp)
	return err
}

// ExportNotes returns the flat-file rendering of the whole collection.
func (c *Client) ExportNotes() (string, error) {
	resp, err := c.invoke("GET", "/notes/export")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBytes, err := validateResponse(resp)
	if err != nil {
		return "", err
	}

	return string(respBytes), nil
}

// ImportNotes uploads flat-file text for parsing and appending to the
// collection. It returns the number of imported notes.
func (c *Client) ImportNotes(filename string, text string) (int, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return 0, fmt.Errorf("error building form file: %w", err)
	}
	if _, err := io.WriteString(part, text); err != nil {
		return 0, fmt.Errorf("error writing form file: %w", err)
	}
	if err := form.Close(); err != nil {
		return 0, fmt.Errorf("error finalizing form: %w", err)
	}

	resp, err := c.invokeWithPayload("POST", "/notes/import", "", form.FormDataContentType(), &buf)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	respBytes, err := validateResponse(resp)
	if err != nil {
		return 0, err
	}

	var result struct {
		Imported int `json:"imported"`
	}
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return 0, fmt.Errorf("error JSON-decoding response body: %w", err)
	}

	return result.Imported, nil
}

// Private functions

func (c *Client) invoke(method string, path string) (*http.Response, error) {
	return c.invokeWithQuery(method, path, "")
}

func (c *Client) invokeWithQuery(method string, path string, query string) (*http.Response, error) {
	requestUrl, err := url.JoinPath(c.URL, path)
	if err != nil {
		return nil, fmt.Errorf("error building URL path: %w", err)
	}
	if query != "" {
		requestUrl += "?" + query
	}

	req, err := http.NewRequest(method, requestUrl, nil)
	if err != nil {
		return nil, fmt.Errorf("error building API request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error invoking API: %w", err)
	}
	return resp, nil
}

func (c *Client) invokeWithPayload(method string, path string, query string, contentType string, body io.Reader) (*http.Response, error) {
	requestUrl, err := url.JoinPath(c.URL, path)
	if err != nil {
		return nil, fmt.Errorf("error building URL path: %w", err)
	}
	if query != "" {
		requestUrl += "?" + query
	}

	req, err := http.NewRequest(method, requestUrl, body)
	if err != nil {
		return nil, fmt.Errorf("error building API request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error invoking API: %w", err)
	}
	return resp, nil
}

func validateResponse(resp *http.Response) ([]byte, error) {
	respBytes, err := utils.ReadToEnd(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		respStr := strings.TrimSpace(string(respBytes))
		return nil, fmt.Errorf("invalid status code: %d (response: %s)", resp.StatusCode, respStr)
	}

	return respBytes, nil
}
