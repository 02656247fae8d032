package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/cenkalti/backoff/v4"
)

// ErrFileTooBig is returned when telegram refuses to give a file
var ErrFileTooBig = errors.New("file is too big")

// APIError is a telegram failure response
type APIError struct {
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram error %d: %s", e.Code, e.Description)
}

// Client calls telegram bot API
type Client struct {
	httpclient *http.Client
	url        string
	fileURL    string
	timeout    time.Duration
	backoff    func() backoff.BackOff
}

// NewClient creates telegram client
func NewClient(urlStr, token string) (*Client, error) {
	if urlStr == "" {
		return nil, fmt.Errorf("no url")
	}
	if token == "" {
		return nil, fmt.Errorf("no token")
	}
	urlStr = strings.TrimSuffix(urlStr, "/")
	res := Client{}
	res.url = urlStr + "/bot" + token
	res.fileURL = urlStr + "/file/bot" + token
	res.httpclient = &http.Client{}
	res.timeout = time.Second * 30
	res.backoff = newSimpleBackoff
	return &res, nil
}

// SendMessage sends text, returns message ID
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) (int, error) {
	res, err := callJSON[Message](ctx, c, "sendMessage", sendMessageReq{ChatID: chatID, Text: text})
	if err != nil {
		return 0, err
	}
	return res.MessageID, nil
}

// EditMessage changes text of the message, unchanged text is not an error
func (c *Client) EditMessage(ctx context.Context, chatID int64, msgID int, text string) error {
	_, err := callJSON[json.RawMessage](ctx, c, "editMessageText", sendMessageReq{ChatID: chatID, MessageID: msgID, Text: text})
	var ae *APIError
	if errors.As(err, &ae) && strings.Contains(ae.Description, "message is not modified") {
		return nil
	}
	return err
}

// DeleteMessage deletes the message
func (c *Client) DeleteMessage(ctx context.Context, chatID int64, msgID int) error {
	_, err := callJSON[bool](ctx, c, "deleteMessage", msgReq{ChatID: chatID, MessageID: msgID})
	return err
}

// SendDocument sends data as a file
func (c *Client) SendDocument(ctx context.Context, chatID int64, name string, data []byte, caption string) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return fmt.Errorf("can't add param: %w", err)
	}
	if caption != "" {
		if err := writer.WriteField("caption", caption); err != nil {
			return fmt.Errorf("can't add param: %w", err)
		}
	}
	part, err := writer.CreateFormFile("document", name)
	if err != nil {
		return fmt.Errorf("can't add file to request: %w", err)
	}
	if _, err = part.Write(data); err != nil {
		return fmt.Errorf("can't add file content to request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("can't finish body: %w", err)
	}
	_, err = call[Message](ctx, c, "sendDocument", body.Bytes(), writer.FormDataContentType())
	return err
}

// GetFile returns file info for download
func (c *Client) GetFile(ctx context.Context, fileID string) (*File, error) {
	res, err := callJSON[File](ctx, c, "getFile", fileReq{FileID: fileID})
	if err != nil {
		var ae *APIError
		if errors.As(err, &ae) && strings.Contains(strings.ToLower(ae.Description), "file is too big") {
			return nil, fmt.Errorf("%s: %w", fileID, ErrFileTooBig)
		}
		return nil, err
	}
	if res.FilePath == "" {
		return nil, fmt.Errorf("no file path for %s", fileID)
	}
	return &res, nil
}

// Download saves telegram file to dst
func (c *Client) Download(ctx context.Context, filePath, dst string) error {
	defer goapp.Estimate("download")()
	_, err := goapp.InvokeWithBackoff(ctx, func() (interface{}, bool, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.fileURL+"/"+filePath, nil)
		if err != nil {
			return nil, false, err
		}
		resp, err := c.httpclient.Do(req)
		if err != nil {
			return nil, goapp.IsRetryableErr(err), fmt.Errorf("can't call: %w", err)
		}
		defer func() {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
			_ = resp.Body.Close()
		}()
		if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
			return nil, goapp.IsRetryableCode(resp.StatusCode), fmt.Errorf("can't download: %w", err)
		}
		f, err := os.OpenFile(dst, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
		if err != nil {
			return nil, false, fmt.Errorf("can't create file: %w", err)
		}
		defer f.Close()
		if _, err := io.Copy(f, resp.Body); err != nil {
			return nil, goapp.IsRetryableErr(err), fmt.Errorf("can't save file: %w", err)
		}
		return nil, false, nil
	}, c.backoff())
	return err
}

// Fetch resolves and downloads file to dst
func (c *Client) Fetch(ctx context.Context, fileID, dst string) error {
	f, err := c.GetFile(ctx, fileID)
	if err != nil {
		return err
	}
	goapp.Log.Info().Str("file", fileID).Int64("size", f.FileSize).Msg("download")
	return c.Download(ctx, f.FilePath, dst)
}

func callJSON[T any](ctx context.Context, c *Client, method string, data any) (T, error) {
	b, err := json.Marshal(data)
	if err != nil {
		var res T
		return res, fmt.Errorf("can't marshal: %w", err)
	}
	return call[T](ctx, c, method, b, "application/json")
}

func call[T any](ctx context.Context, c *Client, method string, body []byte, cType string) (T, error) {
	return goapp.InvokeWithBackoff(ctx, func() (T, bool, error) {
		var res response[T]
		ctx, cancelF := context.WithTimeout(ctx, c.timeout)
		defer cancelF()
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/"+method, bytes.NewReader(body))
		if err != nil {
			return res.Result, false, err
		}
		req.Header.Set("Content-Type", cType)
		resp, err := c.httpclient.Do(req)
		if err != nil {
			return res.Result, goapp.IsRetryableErr(err), fmt.Errorf("can't call %s: %w", method, err)
		}
		defer func() {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
			_ = resp.Body.Close()
		}()
		if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
			return res.Result, goapp.IsRetryableCode(resp.StatusCode), fmt.Errorf("can't decode %s (%d): %w", method, resp.StatusCode, err)
		}
		if !res.OK || resp.StatusCode != http.StatusOK {
			code := res.ErrorCode
			if code == 0 {
				code = resp.StatusCode
			}
			return res.Result, goapp.IsRetryableCode(code), &APIError{Code: code, Description: res.Description}
		}
		return res.Result, false, nil
	}, c.backoff())
}

func newSimpleBackoff() backoff.BackOff {
	res := backoff.NewExponentialBackOff()
	return backoff.WithMaxRetries(res, 3)
}
