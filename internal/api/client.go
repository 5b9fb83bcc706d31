// api — типизированный клиент REST API социальной сети.
//
// Клиент ничего не знает о токенах: аутентификацию и обновление токена
// обеспечивает http.Client, переданный в New (цепочка из internal/transport
// и internal/session). Ответы вне 2xx превращаются в *errors.Error.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	apierrors "github.com/pribylovaa/go-social-client/internal/errors"
)

// Client — точка входа ко всем эндпойнтам.
type Client struct {
	base string
	http *http.Client
}

// New создаёт клиента; baseURL — корень API (<backend>/api).
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}

	return &Client{base: strings.TrimRight(baseURL, "/"), http: hc}
}

// BaseURL — корень API, с которым работает клиент.
func (c *Client) BaseURL() string { return c.base }

func (c *Client) url(path string, query url.Values) string {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// doJSON отправляет запрос с JSON-телом (in может быть nil) и декодирует
// ответ в out (out может быть nil). Тело строится из []byte, поэтому
// запрос можно повторить (Request.GetBody).
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path, query), body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, out)
}

// formFile — файл формы: имя поля и путь на диске.
type formFile struct {
	field string
	path  string
}

// doMultipart отправляет multipart/form-data. Пустые значения полей
// отправляются, если поле есть в fields; файлы читаются целиком в память.
func (c *Client) doMultipart(ctx context.Context, method, path string, fields [][2]string, files []formFile, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for _, kv := range fields {
		if err := mw.WriteField(kv[0], kv[1]); err != nil {
			return fmt.Errorf("write field %s: %w", kv[0], err)
		}
	}

	for _, f := range files {
		if err := attachFile(mw, f); err != nil {
			return err
		}
	}

	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path, nil), bytes.NewReader(buf.Bytes()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return c.do(req, out)
}

func attachFile(mw *multipart.Writer, f formFile) error {
	fh, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("open %s: %w", f.path, err)
	}
	defer fh.Close()

	part, err := mw.CreateFormFile(f.field, filepath.Base(f.path))
	if err != nil {
		return fmt.Errorf("create form file %s: %w", f.field, err)
	}
	if _, err := io.Copy(part, fh); err != nil {
		return fmt.Errorf("copy %s: %w", f.path, err)
	}

	return nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if apiErr := apierrors.FromResponse(resp); apiErr != nil {
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
