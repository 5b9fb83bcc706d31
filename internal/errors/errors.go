// errors стандартизирует ошибки удалённого REST API для клиентского слоя.
// На вход он принимает HTTP-ответ со статусом вне 2xx,
// а на выход даёт *Error:
//   - исходный HTTP-статус и стабильный машиночитаемый код;
//   - человекочитаемое сообщение из тела ответа (DRF: {"detail": "..."});
//   - ошибки полей формы (DRF: {"field": ["msg", ...]}).
//
// Сетевые ошибки и ошибки транспорта сюда не попадают и пробрасываются как есть.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// Ограничение на чтение тела ошибки.
const maxErrorBody = 64 << 10

// Сентинелы для сопоставления через errors.Is.
var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrRateLimited      = errors.New("resource exhausted")
	ErrUnavailable      = errors.New("service unavailable")
	ErrInternal         = errors.New("internal error")
)

// Error — ошибка удалённого API.
// Code — короткий стабильный код (как у api-gateway).
// Message — сообщение сервера (detail) либо безопасное описание по статусу.
// Fields — ошибки валидации по полям формы.
// RequestID — X-Request-Id ответа (или запроса), для трассировки.
type Error struct {
	Status    int                 `json:"status"`
	Code      string              `json:"code"`
	Message   string              `json:"message"`
	Fields    map[string][]string `json:"fields,omitempty"`
	RequestID string              `json:"request_id,omitempty"`
}

func (e *Error) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("api: %d %s: %s", e.Status, e.Code, e.FieldsMessage())
	}

	return fmt.Sprintf("api: %d %s: %s", e.Status, e.Code, e.Message)
}

// Is позволяет писать errors.Is(err, errors.ErrNotFound).
func (e *Error) Is(target error) bool {
	return errors.Is(sentinelFor(e.Status), target)
}

// FieldsMessage склеивает ошибки полей в одну строку: поля по алфавиту,
// сообщения через пробел. Пусто, если ошибок полей нет.
func (e *Error) FieldsMessage() string {
	if len(e.Fields) == 0 {
		return ""
	}

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		parts = append(parts, e.Fields[k]...)
	}

	return strings.Join(parts, " ")
}

// FromResponse читает тело ответа (не закрывает его) и строит *Error.
// Для 2xx возвращает nil.
func FromResponse(resp *http.Response) *Error {
	if resp == nil {
		return &Error{Status: http.StatusInternalServerError, Code: "internal", Message: "internal error"}
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	code, msg := baseFromHTTP(resp.StatusCode)
	apiErr := &Error{
		Status:    resp.StatusCode,
		Code:      code,
		Message:   msg,
		RequestID: resp.Header.Get("X-Request-Id"),
	}
	if apiErr.RequestID == "" && resp.Request != nil {
		apiErr.RequestID = resp.Request.Header.Get("X-Request-Id")
	}

	if resp.Body == nil {
		return apiErr
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return apiErr
	}

	parseBody(apiErr, raw)
	return apiErr
}

// parseBody разбирает DRF-тело: {"detail": "..."} или {"field": ["..."]}.
// Нераспознанное тело игнорируется — остаётся сообщение по статусу.
func parseBody(e *Error, raw []byte) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return
	}

	if d, ok := obj["detail"]; ok {
		var detail string
		if err := json.Unmarshal(d, &detail); err == nil && detail != "" {
			e.Message = detail
		}
		delete(obj, "detail")
	}

	for field, v := range obj {
		var list []string
		if err := json.Unmarshal(v, &list); err != nil {
			var one string
			if err := json.Unmarshal(v, &one); err != nil {
				continue
			}
			list = []string{one}
		}
		if len(list) == 0 {
			continue
		}
		if e.Fields == nil {
			e.Fields = make(map[string][]string)
		}
		e.Fields[field] = list
	}
}

// StatusOf возвращает HTTP-статус ошибки API или 0, если это не *Error.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}

	return 0
}

// DetailOr возвращает сообщение ошибки API, если оно пришло от сервера,
// иначе fallback. Удобно для пользовательских сообщений ("Login failed.").
func DetailOr(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		_, generic := baseFromHTTP(apiErr.Status)
		if apiErr.Message != "" && apiErr.Message != generic {
			return apiErr.Message
		}
	}

	return fallback
}

// baseFromHTTP — базовый маппинг HTTP-статус -> код/сообщение:
//   - 400, 422 -> invalid_argument
//   - 401 -> unauthenticated
//   - 403 -> permission_denied
//   - 404 -> not_found
//   - 409 -> already_exists
//   - 429 -> resource_exhausted
//   - 499 -> canceled
//   - 502, 503, 504 -> unavailable
//   - прочее -> internal
func baseFromHTTP(status int) (string, string) {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return "invalid_argument", "invalid argument"
	case http.StatusUnauthorized:
		return "unauthenticated", "unauthenticated"
	case http.StatusForbidden:
		return "permission_denied", "permission denied"
	case http.StatusNotFound:
		return "not_found", "not found"
	case http.StatusConflict:
		return "already_exists", "already exists"
	case http.StatusTooManyRequests:
		return "resource_exhausted", "resource exhausted"
	case StatusClientClosedRequest:
		return "canceled", "canceled"
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return "unavailable", "service unavailable"
	default:
		return "internal", "internal error"
	}
}

func sentinelFor(status int) error {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrInvalidArgument
	case http.StatusUnauthorized:
		return ErrUnauthenticated
	case http.StatusForbidden:
		return ErrPermissionDenied
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrAlreadyExists
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return ErrUnavailable
	default:
		return ErrInternal
	}
}
