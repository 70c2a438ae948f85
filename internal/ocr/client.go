package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"backend/internal/logger"
)

// Client talks to the external invoice extraction microservice. The call is
// long-latency (the service renders the PDF and runs a vision model), so the
// timeout is generous and failures surface as retryable errors, never as a
// validation outcome.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient builds a client for the extraction service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     logger.WithComponent("ocr-client"),
	}
}

type ocrResponse struct {
	Success     bool   `json:"success"`
	InvoiceJSON string `json:"invoice_json"`
}

type weightResponse struct {
	Success bool     `json:"success"`
	Weight  *float64 `json:"weight"`
}

// ExtractInvoice uploads an invoice PDF to POST /ocr and returns the parsed
// extraction result.
func (c *Client) ExtractInvoice(ctx context.Context, filename string, pdf io.Reader) (*ExtractedInvoice, error) {
	body, err := c.postPDF(ctx, "/ocr", filename, pdf)
	if err != nil {
		return nil, err
	}

	var resp ocrResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, wrap("ExtractInvoice", ErrInvalidPayload, err.Error())
	}
	if !resp.Success {
		return nil, wrap("ExtractInvoice", ErrExtractionFailed, "service reported failure")
	}

	inv, err := ParseInvoiceJSON(resp.InvoiceJSON)
	if err != nil {
		return nil, err
	}

	c.log.Info().
		Str("invoice_number", inv.InvoiceNumber).
		Str("po_number", inv.PONumber).
		Int("items", len(inv.Items)).
		Msg("invoice extracted")
	return inv, nil
}

// ExtractWeight uploads a weight-slip PDF to POST /extract-weight and returns
// the weight in kilograms. A nil weight means the slip had no readable value.
func (c *Client) ExtractWeight(ctx context.Context, filename string, pdf io.Reader) (*float64, error) {
	body, err := c.postPDF(ctx, "/extract-weight", filename, pdf)
	if err != nil {
		return nil, err
	}

	var resp weightResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, wrap("ExtractWeight", ErrInvalidPayload, err.Error())
	}
	if !resp.Success {
		return nil, wrap("ExtractWeight", ErrExtractionFailed, "service reported failure")
	}
	return resp.Weight, nil
}

func (c *Client) postPDF(ctx context.Context, path, filename string, pdf io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("pdf", filename)
	if err != nil {
		return nil, wrap("postPDF", err, "building multipart body")
	}
	if _, err := io.Copy(part, pdf); err != nil {
		return nil, wrap("postPDF", err, "reading pdf")
	}
	if err := writer.Close(); err != nil {
		return nil, wrap("postPDF", err, "closing multipart body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, wrap("postPDF", err, "")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		// Connection refused / timeout: the caller must see "could not
		// check", not "checked and failed".
		c.log.Error().Err(err).Str("path", path).Msg("extraction service unreachable")
		return nil, wrap("postPDF", ErrServiceUnavailable, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrap("postPDF", err, "reading response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, wrap("postPDF", ErrExtractionFailed, fmt.Sprintf("status %d", resp.StatusCode))
	}
	return body, nil
}
