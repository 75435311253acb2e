package submitter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/gdg-garage/wedding-api/internal/forms"
)

const defaultTimeout = 60 * time.Second

// ErrConnectivity wraps every failure where no response was received.
var ErrConnectivity = errors.New("could not reach the server")

// APIError is a non-2xx response from the wedding API.
type APIError struct {
	Status  int
	Message string
	Fields  forms.FieldErrors
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Receipt is the server's acknowledgement of an accepted submission.
type Receipt struct {
	ID      uint   `json:"id"`
	Message string `json:"message"`
}

// PhotoUpload is the multipart payload of a photo submission.
type PhotoUpload struct {
	GuestName string
	Message   string
	Filename  string
	MimeType  string
	Data      []byte
}

type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient talks to the API at baseURL. A nil httpClient gets a default
// with a one minute timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

func (c *Client) PostRSVP(ctx context.Context, s forms.RSVPSubmission) (Receipt, error) {
	body, err := json.Marshal(s)
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to encode rsvp: %w", err)
	}
	return c.post(ctx, "/api/rsvp", "application/json", bytes.NewReader(body))
}

func (c *Client) UploadPhoto(ctx context.Context, p PhotoUpload) (Receipt, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("guestName", p.GuestName); err != nil {
		return Receipt{}, err
	}
	if p.Message != "" {
		if err := mw.WriteField("message", p.Message); err != nil {
			return Receipt{}, err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, p.Filename))
	h.Set("Content-Type", p.MimeType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return Receipt{}, err
	}
	if _, err := part.Write(p.Data); err != nil {
		return Receipt{}, err
	}
	if err := mw.Close(); err != nil {
		return Receipt{}, err
	}

	return c.post(ctx, "/api/photos", mw.FormDataContentType(), &body)
}

func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader) (Receipt, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrConnectivity, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrConnectivity, err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return Receipt{}, decodeAPIError(res.StatusCode, data)
	}

	var receipt Receipt
	if err := json.Unmarshal(data, &receipt); err != nil {
		return Receipt{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return receipt, nil
}

// problem is the subset of huma's application/problem+json body we use.
type problem struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Errors []struct {
		Message  string `json:"message"`
		Location string `json:"location"`
	} `json:"errors"`
}

func decodeAPIError(status int, data []byte) *APIError {
	apiErr := &APIError{Status: status}

	var p problem
	if err := json.Unmarshal(data, &p); err == nil {
		apiErr.Message = p.Detail
		if apiErr.Message == "" {
			apiErr.Message = p.Title
		}
		for _, e := range p.Errors {
			if e.Location == "" {
				continue
			}
			if apiErr.Fields == nil {
				apiErr.Fields = forms.FieldErrors{}
			}
			field := e.Location[strings.LastIndex(e.Location, ".")+1:]
			if _, seen := apiErr.Fields[field]; !seen {
				apiErr.Fields[field] = e.Message
			}
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
