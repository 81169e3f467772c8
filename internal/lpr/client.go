package lpr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	predictPath    = "/predict"
	defaultTimeout = 15 * time.Second
	maxImageBytes  = 10 << 20
)

// ErrNoSamples is returned when the sample directory holds no images.
var ErrNoSamples = errors.New("no sample images available")

// Result is one plate found on an image.
type Result struct {
	Plate      string          `json:"plate"`
	Confidence float64         `json:"confidence"`
	Box        json.RawMessage `json:"box,omitempty"`
}

// Analysis is the recognizer's answer for one image, best match first.
type Analysis struct {
	Source     string   `json:"source,omitempty"`
	Plate      string   `json:"plate"`
	Confidence float64  `json:"confidence"`
	Results    []Result `json:"results"`
}

// UpstreamError carries a non-2xx answer of the recognizer.
type UpstreamError struct {
	Status int
	Detail string
}

func (e UpstreamError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("plate recognizer returned %d", e.Status)
	}
	return fmt.Sprintf("plate recognizer returned %d: %s", e.Status, e.Detail)
}

// Client talks to the licence plate recognition container.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Recognize uploads one image as the multipart field "file".
func (c *Client) Recognize(ctx context.Context, filename string, image io.Reader) (Analysis, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return Analysis{}, err
	}
	n, err := io.Copy(part, io.LimitReader(image, maxImageBytes+1))
	if err != nil {
		return Analysis{}, fmt.Errorf("read image: %w", err)
	}
	if n > maxImageBytes {
		return Analysis{}, fmt.Errorf("image larger than %d bytes", maxImageBytes)
	}
	if err := mw.Close(); err != nil {
		return Analysis{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+predictPath, &body)
	if err != nil {
		return Analysis{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return Analysis{}, fmt.Errorf("call plate recognizer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Detail string `json:"detail"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&apiErr)
		return Analysis{}, UpstreamError{Status: resp.StatusCode, Detail: apiErr.Detail}
	}

	var decoded struct {
		Results []Result `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Analysis{}, fmt.Errorf("decode plate recognizer response: %w", err)
	}
	return newAnalysis(filepath.Base(filename), decoded.Results), nil
}

// RecognizeFile sends an image from disk.
func (c *Client) RecognizeFile(ctx context.Context, path string) (Analysis, error) {
	f, err := os.Open(path)
	if err != nil {
		return Analysis{}, err
	}
	defer f.Close()
	return c.Recognize(ctx, path, f)
}

func newAnalysis(source string, results []Result) Analysis {
	if results == nil {
		results = []Result{}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Confidence > results[j].Confidence })
	a := Analysis{Source: source, Results: results}
	if len(results) > 0 {
		a.Plate = strings.ToUpper(strings.Join(strings.Fields(results[0].Plate), ""))
		a.Confidence = results[0].Confidence
	}
	return a
}

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".bmp": true, ".webp": true}

// RandomSample picks one image file from dir.
func RandomSample(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", ErrNoSamples
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read sample dir: %w", err)
	}
	var images []string
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		images = append(images, filepath.Join(dir, e.Name()))
	}
	if len(images) == 0 {
		return "", ErrNoSamples
	}
	return images[rand.Intn(len(images))], nil
}
