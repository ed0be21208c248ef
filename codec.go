package entitycore

import (
	"encoding/json"
	"time"
)

// AttributeType selects which typed slot of an attribute row holds the value.
type AttributeType string

const (
	AttributeText      AttributeType = "text"
	AttributeNumber    AttributeType = "number"
	AttributeBoolean   AttributeType = "boolean"
	AttributeJSON      AttributeType = "json"
	AttributeDate      AttributeType = "date"
	AttributeDatetime  AttributeType = "datetime"
	AttributeReference AttributeType = "reference"
)

// EncodedValue is the storage representation of one attribute value.
// Exactly one slot is populated, matching Type.
type EncodedValue struct {
	Type      AttributeType
	Text      *string
	Number    *float64
	Boolean   *bool
	JSON      *string
	Date      *time.Time
	DateTime  *time.Time
	Reference *string
}

// InferType picks the storage type from the value's shape. The ordering
// matters: a UUID-shaped string becomes a reference before the generic
// text fallback, so entity-to-entity links stay recognizable without a
// declared foreign key.
func InferType(value any) AttributeType {
	if value == nil {
		return AttributeText
	}
	switch v := value.(type) {
	case bool:
		return AttributeBoolean
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return AttributeNumber
	case json.Number:
		return AttributeNumber
	case time.Time:
		return AttributeDatetime
	case string:
		if IsUUID(v) {
			return AttributeReference
		}
		if _, ok := parseDate(v); ok {
			return AttributeDate
		}
		if _, ok := parseDatetime(v); ok {
			return AttributeDatetime
		}
		return AttributeText
	default:
		return AttributeJSON
	}
}

// Encode converts a raw value into its typed storage slot. It is total over
// every value shape InferType can return.
func Encode(value any) (EncodedValue, error) {
	switch InferType(value) {
	case AttributeBoolean:
		b := value.(bool)
		return EncodedValue{Type: AttributeBoolean, Boolean: &b}, nil
	case AttributeNumber:
		n, err := toFloat(value)
		if err != nil {
			return EncodedValue{}, err
		}
		return EncodedValue{Type: AttributeNumber, Number: &n}, nil
	case AttributeDatetime:
		var t time.Time
		if tv, ok := value.(time.Time); ok {
			t = tv.UTC()
		} else {
			t, _ = parseDatetime(value.(string))
		}
		return EncodedValue{Type: AttributeDatetime, DateTime: &t}, nil
	case AttributeDate:
		t, _ := parseDate(value.(string))
		return EncodedValue{Type: AttributeDate, Date: &t}, nil
	case AttributeReference:
		r := value.(string)
		return EncodedValue{Type: AttributeReference, Reference: &r}, nil
	case AttributeJSON:
		raw, err := json.Marshal(value)
		if err != nil {
			return EncodedValue{}, err
		}
		s := string(raw)
		return EncodedValue{Type: AttributeJSON, JSON: &s}, nil
	default:
		s := ""
		if value != nil {
			s = value.(string)
		}
		return EncodedValue{Type: AttributeText, Text: &s}, nil
	}
}

// Decode reassembles the raw value from its typed slot. Dates come back as
// their YYYY-MM-DD string, datetimes as a UTC time.Time; both hold the same
// calendar value that was written.
func Decode(ev EncodedValue) any {
	switch ev.Type {
	case AttributeBoolean:
		if ev.Boolean == nil {
			return false
		}
		return *ev.Boolean
	case AttributeNumber:
		if ev.Number == nil {
			return float64(0)
		}
		return *ev.Number
	case AttributeDatetime:
		if ev.DateTime == nil {
			return nil
		}
		return ev.DateTime.UTC()
	case AttributeDate:
		if ev.Date == nil {
			return nil
		}
		return ev.Date.Format(dateLayout)
	case AttributeReference:
		if ev.Reference == nil {
			return ""
		}
		return *ev.Reference
	case AttributeJSON:
		if ev.JSON == nil {
			return nil
		}
		var out any
		if err := json.Unmarshal([]byte(*ev.JSON), &out); err != nil {
			return nil
		}
		return out
	default:
		if ev.Text == nil {
			return ""
		}
		return *ev.Text
	}
}

const dateLayout = "2006-01-02"

func parseDate(s string) (time.Time, bool) {
	if len(s) != len(dateLayout) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

var datetimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
}

func parseDatetime(s string) (time.Time, bool) {
	if len(s) < len(dateLayout)+1 || s[len(dateLayout)] != 'T' {
		return time.Time{}, false
	}
	for _, layout := range datetimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case json.Number:
		return v.Float64()
	}
	return 0, nil
}
