// Package catalog talks to the remote asset catalog that fills in the
// descriptive fields of lookup-required labels.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyResponse     = errors.New("catalog: empty response")
	ErrMalformedResponse = errors.New("catalog: malformed response")
)

// Entry is one catalog hit. Field names follow the catalog's wire keys.
type Entry struct {
	Name      string `json:"name"`
	Unit      string `json:"unt"`
	Custodian string `json:"lord"`
	Account   string `json:"dans"`
	Price     string `json:"une"`
	Date      string `json:"ognoo"`
}

// Unwrap returns the JSON document carried by body. Some catalog deployments
// answer with a JSON string whose content is the real document; exactly one
// such level is removed. A string nested inside that string is rejected.
func Unwrap(body []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, ErrEmptyResponse
	}
	if trimmed[0] != '"' {
		if !json.Valid(trimmed) {
			return nil, ErrMalformedResponse
		}
		return json.RawMessage(trimmed), nil
	}

	var inner string
	if err := json.Unmarshal(trimmed, &inner); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	in := bytes.TrimSpace([]byte(inner))
	if len(in) == 0 {
		return nil, ErrEmptyResponse
	}
	if in[0] == '"' || !json.Valid(in) {
		return nil, ErrMalformedResponse
	}
	return json.RawMessage(in), nil
}

// DecodeEntry unwraps body and decodes the first catalog entry in it. The
// document may be a single object or an array of objects.
func DecodeEntry(body []byte) (Entry, error) {
	doc, err := Unwrap(body)
	if err != nil {
		return Entry{}, err
	}

	if doc[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(doc, &items); err != nil {
			return Entry{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		if len(items) == 0 {
			return Entry{}, ErrEmptyResponse
		}
		doc = items[0]
	}

	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if m == nil {
		return Entry{}, ErrEmptyResponse
	}

	return Entry{
		Name:      field(m, "name"),
		Unit:      field(m, "unt"),
		Custodian: field(m, "lord"),
		Account:   field(m, "dans"),
		Price:     field(m, "une"),
		Date:      field(m, "ognoo"),
	}, nil
}

// field renders m[key] as text. Numbers go through decimal so 1500.50 and
// "1500.5" come out the same.
func field(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return v.String()
		}
		return d.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
