package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
)

// UploadImage sends a file to the local upload endpoint as multipart form
// data and returns the stored URL. This is the one call that does not go
// through the generic JSON pipeline: no auth header, no envelope, no retry.
func (c *Client) UploadImage(ctx context.Context, filename string, file io.Reader) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", uploadErr(err.Error())
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", uploadErr(err.Error())
	}
	if err := w.Close(); err != nil {
		return "", uploadErr(err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, &buf)
	if err != nil {
		return "", uploadErr(err.Error())
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", uploadErr(err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", uploadErr(err.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &e)
		return "", uploadErr(e.Error)
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.URL == "" {
		return "", uploadErr("")
	}
	return out.URL, nil
}
