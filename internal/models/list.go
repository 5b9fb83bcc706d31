package models

import (
	"bytes"
	"encoding/json"
)

// List — список, который сервер отдаёт либо массивом, либо
// DRF-пагинацией {count, next, previous, results}. После декодирования
// всегда содержит просто элементы.
type List[T any] []T

type paginated[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

func (l *List[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}

	var page paginated[T]
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return err
	}
	*l = page.Results

	return nil
}
