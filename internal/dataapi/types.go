package dataapi

import "encoding/json"

// UploadKind distinguishes image uploads (rendered as thumbnails) from
// generic file uploads (rendered as links).
type UploadKind string

const (
	UploadImage UploadKind = "image"
	UploadFile  UploadKind = "file"
)

// UploadField describes a column whose value is a URL managed through the
// upload endpoint rather than typed in by hand.
type UploadField struct {
	Type   UploadKind `json:"type"`
	Accept string     `json:"accept,omitempty"`
}

// DisplayConfig declares how the columns of one table are presented.
type DisplayConfig struct {
	Hidden           []string               `json:"hidden,omitempty"`
	Labels           map[string]string      `json:"labels,omitempty"`
	ThumbnailColumns []string               `json:"thumbnail_columns,omitempty"`
	UploadFields     map[string]UploadField `json:"upload_fields,omitempty"`
	ImageFields      []string               `json:"image_fields,omitempty"`
}

// UnmarshalJSON accepts the legacy single "image_field" key next to the
// newer "image_fields"/"upload_fields" keys. Image fields are always upload
// fields and thumbnail columns.
func (d *DisplayConfig) UnmarshalJSON(data []byte) error {
	type plain DisplayConfig
	var raw struct {
		plain
		ImageField string `json:"image_field"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = DisplayConfig(raw.plain)

	if raw.ImageField != "" && !contains(d.ImageFields, raw.ImageField) {
		d.ImageFields = append([]string{raw.ImageField}, d.ImageFields...)
	}
	for _, col := range d.ImageFields {
		if d.UploadFields == nil {
			d.UploadFields = make(map[string]UploadField)
		}
		if _, ok := d.UploadFields[col]; !ok {
			d.UploadFields[col] = UploadField{Type: UploadImage, Accept: "image/*"}
		}
		if !contains(d.ThumbnailColumns, col) {
			d.ThumbnailColumns = append(d.ThumbnailColumns, col)
		}
	}
	return nil
}

// IsHidden reports whether col is excluded from the grid and the editor.
func (d DisplayConfig) IsHidden(col string) bool { return contains(d.Hidden, col) }

// IsThumbnail reports whether col renders as a thumbnail.
func (d DisplayConfig) IsThumbnail(col string) bool { return contains(d.ThumbnailColumns, col) }

// IsImageField reports whether col holds an uploaded image.
func (d DisplayConfig) IsImageField(col string) bool { return contains(d.ImageFields, col) }

// UploadField returns the upload descriptor for col, if any.
func (d DisplayConfig) UploadField(col string) (UploadField, bool) {
	f, ok := d.UploadFields[col]
	return f, ok
}

// Label returns the display label for col, falling back to the column name.
func (d DisplayConfig) Label(col string) string {
	if l, ok := d.Labels[col]; ok && l != "" {
		return l
	}
	return col
}

// PrimaryImageField returns the first image field, or "" when none is set.
func (d DisplayConfig) PrimaryImageField() string {
	if len(d.ImageFields) == 0 {
		return ""
	}
	return d.ImageFields[0]
}

// Clone returns a deep copy so callers can hand the config out freely.
func (d DisplayConfig) Clone() DisplayConfig {
	out := DisplayConfig{
		Hidden:           append([]string(nil), d.Hidden...),
		ThumbnailColumns: append([]string(nil), d.ThumbnailColumns...),
		ImageFields:      append([]string(nil), d.ImageFields...),
	}
	if d.Labels != nil {
		out.Labels = make(map[string]string, len(d.Labels))
		for k, v := range d.Labels {
			out.Labels[k] = v
		}
	}
	if d.UploadFields != nil {
		out.UploadFields = make(map[string]UploadField, len(d.UploadFields))
		for k, v := range d.UploadFields {
			out.UploadFields[k] = v
		}
	}
	return out
}

// TableDescriptor is one configured backend table.
type TableDescriptor struct {
	ID      string        `json:"id"`
	Label   string        `json:"label"`
	Display DisplayConfig `json:"display"`
}

// RowsPage is one page of rows as returned by GET /api/data/{table}.
// Numeric cells decode as json.Number so their text survives unchanged.
type RowsPage struct {
	Rows       []map[string]any `json:"rows"`
	Columns    []string         `json:"columns"`
	Total      int              `json:"total"`
	PrimaryKey string           `json:"primary_key"`
	Display    DisplayConfig    `json:"display"`
}

// UploadResult is the response of a per-row file upload.
type UploadResult struct {
	URL    string `json:"url"`
	Column string `json:"column"`
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
