package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"time"
)

// ImgbbService uploads chat images to an ImgBB-compatible image host.
type ImgbbService struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

func NewImgbbService(apiKey, endpoint string) *ImgbbService {
	if endpoint == "" {
		endpoint = "https://api.imgbb.com/1/upload"
	}

	return &ImgbbService{
		apiKey:   apiKey,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// ImgbbResponse is the subset of the upload response the service reads.
type ImgbbResponse struct {
	Success bool `json:"success"`
	Data    struct {
		URL string `json:"url"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (s *ImgbbService) Upload(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("key", s.apiKey); err != nil {
		return "", err
	}
	if err := writer.WriteField("image", base64.StdEncoding.EncodeToString(data)); err != nil {
		return "", err
	}
	if filename != "" {
		if err := writer.WriteField("name", filename); err != nil {
			return "", err
		}
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach image host: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read upload response: %v", err)
	}

	var result ImgbbResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		log.Printf("Image host returned non-JSON response (status %d): %s", resp.StatusCode, string(raw))
		return "", fmt.Errorf("failed to parse upload response: %v", err)
	}

	if !result.Success || result.Data.URL == "" {
		msg := result.Error.Message
		if msg == "" {
			msg = fmt.Sprintf("upload failed with status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("image host error: %s", msg)
	}

	return result.Data.URL, nil
}
