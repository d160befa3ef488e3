package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/konveksi/admin-gateway/pkg/logger"
)

// Kind tags which envelope shape a list response arrived in.
type Kind int

const (
	KindEmpty Kind = iota
	KindPlain
	KindPaginated
)

func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindPaginated:
		return "paginated"
	default:
		return "empty"
	}
}

// Pagination mirrors the backend's pagination block.
type Pagination struct {
	PageNumber int `json:"pageNumber"`
	PageLimit  int `json:"pageLimit"`
	PageLast   int `json:"pageLast"`
	Total      int `json:"total"`
}

// Envelope is a list response resolved into one of three shapes. Items is
// never nil.
type Envelope[T any] struct {
	Kind       Kind       `json:"-"`
	Items      []T        `json:"listData"`
	Pagination Pagination `json:"pagination"`
}

type rawEnvelope struct {
	Data       json.RawMessage `json:"data"`
	ListData   json.RawMessage `json:"listData"`
	Pagination *Pagination     `json:"pagination"`
}

// Decode resolves a list body. Recognised shapes, in order:
//
//	{"data": {"listData": [...], "pagination": {...}}}
//	{"data": [...]}
//	{"listData": [...], "pagination": {...}}
//	[...]
//
// Anything else, malformed JSON included, resolves to KindEmpty.
func Decode[T any](body []byte) Envelope[T] {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return empty[T]()
	}

	if body[0] == '[' {
		if items, ok := decodeArray[T](body); ok {
			return Envelope[T]{Kind: KindPlain, Items: items}
		}
		return empty[T]()
	}

	var raw rawEnvelope
	if body[0] != '{' || json.Unmarshal(body, &raw) != nil {
		return empty[T]()
	}

	if data := bytes.TrimSpace(raw.Data); len(data) > 0 {
		switch data[0] {
		case '[':
			if items, ok := decodeArray[T](data); ok {
				return Envelope[T]{Kind: KindPlain, Items: items}
			}
			return empty[T]()
		case '{':
			var inner rawEnvelope
			if json.Unmarshal(data, &inner) == nil {
				if env, ok := paginated[T](inner); ok {
					return env
				}
			}
			return empty[T]()
		}
	}

	if env, ok := paginated[T](raw); ok {
		return env
	}
	return empty[T]()
}

// Extract returns the records embedded in body in their original order, or
// an empty slice when no recognisable array is present.
func Extract[T any](body []byte) []T {
	return Decode[T](body).Items
}

// DecodeObject resolves a single-record body, either {"data": {...}} or a
// bare object.
func DecodeObject[T any](body []byte) (T, bool) {
	var zero T
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return zero, false
	}

	var raw rawEnvelope
	if err := json.Unmarshal(body, &raw); err != nil {
		return zero, false
	}
	target := body
	if data := bytes.TrimSpace(raw.Data); len(data) > 0 {
		if data[0] != '{' {
			return zero, false
		}
		target = data
	}

	var out T
	if err := json.Unmarshal(target, &out); err != nil {
		return zero, false
	}
	return out, true
}

func paginated[T any](raw rawEnvelope) (Envelope[T], bool) {
	list := bytes.TrimSpace(raw.ListData)
	if len(list) == 0 || list[0] != '[' {
		return Envelope[T]{}, false
	}
	items, ok := decodeArray[T](list)
	if !ok {
		return Envelope[T]{}, false
	}
	env := Envelope[T]{Kind: KindPaginated, Items: items}
	if raw.Pagination != nil {
		env.Pagination = *raw.Pagination
	}
	return env, true
}

// decodeArray decodes element by element so one record the backend got
// wrong costs only that record.
func decodeArray[T any](data []byte) ([]T, bool) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, false
	}

	items := make([]T, 0, len(raws))
	for i, raw := range raws {
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			logger.Warn("Skipping undecodable upstream record", map[string]interface{}{
				"index":  i,
				"type":   fmt.Sprintf("%T", item),
				"error":  err.Error(),
				"record": truncate(raw, 256),
			})
			continue
		}
		items = append(items, item)
	}
	return items, true
}

func truncate(raw []byte, n int) string {
	if len(raw) <= n {
		return string(raw)
	}
	return string(raw[:n]) + "..."
}

func empty[T any]() Envelope[T] {
	return Envelope[T]{Kind: KindEmpty, Items: make([]T, 0)}
}
