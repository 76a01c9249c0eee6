package core

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/JonMunkholm/dataadmin/internal/dataapi"
)

// Kind tags a cell value.
type Kind int

const (
	KindNull Kind = iota
	KindText
	KindNumber
	KindURL
	KindUpload
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindURL:
		return "url"
	case KindUpload:
		return "upload"
	default:
		return "null"
	}
}

// Value is one cell. Raw keeps the text exactly as the server sent it, so a
// number like 12.50 is shown and compared as "12.50".
type Value struct {
	Kind Kind
	Raw  string
}

// String returns the display text; null renders as "".
func (v Value) String() string {
	if v.Kind == KindNull {
		return ""
	}
	return v.Raw
}

// IsEmpty reports whether v is null or the empty string.
func (v Value) IsEmpty() bool { return v.Kind == KindNull || v.Raw == "" }

// comparable normalizes v for change detection: null and "" are the same.
func (v Value) comparable() (string, bool) {
	if v.IsEmpty() {
		return "", false
	}
	return v.Raw, true
}

// Row maps column names to values. Column order lives in State.Columns.
type Row map[string]Value

// Get returns the value for col, or null when absent.
func (r Row) Get(col string) Value {
	if r == nil {
		return Value{}
	}
	return r[col]
}

// Clone returns an independent copy.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// decodeRow converts a decoded JSON row into a typed Row, classifying each
// value against the table's display configuration.
func decodeRow(raw map[string]any, display dataapi.DisplayConfig) Row {
	row := make(Row, len(raw))
	for col, v := range raw {
		row[col] = decodeValue(col, v, display)
	}
	return row
}

func decodeValue(col string, raw any, display dataapi.DisplayConfig) Value {
	var text string
	switch v := raw.(type) {
	case nil:
		return Value{}
	case json.Number:
		return classify(col, Value{Kind: KindNumber, Raw: v.String()}, display)
	case float64:
		return classify(col, Value{Kind: KindNumber, Raw: strconv.FormatFloat(v, 'f', -1, 64)}, display)
	case bool:
		text = strconv.FormatBool(v)
	case string:
		text = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return Value{}
		}
		text = string(b)
	}
	return classify(col, Value{Kind: KindText, Raw: text}, display)
}

// classify upgrades a value to an upload reference or url where the column
// or the content says so.
func classify(col string, v Value, display dataapi.DisplayConfig) Value {
	if _, ok := display.UploadField(col); ok {
		v.Kind = KindUpload
		return v
	}
	if v.Kind == KindText && strings.HasPrefix(v.Raw, "http") {
		v.Kind = KindURL
	}
	return v
}

// uploadValue builds the value stored after a confirmed upload.
func uploadValue(url string) Value {
	if url == "" {
		return Value{}
	}
	return Value{Kind: KindUpload, Raw: url}
}
