package binder

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// CheckboxesField is the hidden form field listing the names of the
// checkboxes rendered in a form. Browsers omit unchecked boxes from the
// submission, so every name listed here that was not submitted is recorded
// as false.
const CheckboxesField = "_checkboxes"

// Record is a flat key/value serialisation of a form
type Record map[string]interface{}

// SerializeForm flattens submitted values into a record. Fields take their
// first value. Every checkbox listed in CheckboxesField becomes a boolean.
func SerializeForm(values url.Values) Record {
	record := make(Record, len(values))

	for name, vals := range values {
		if name == CheckboxesField || len(vals) == 0 {
			continue
		}
		record[name] = vals[0]
	}

	for _, name := range checkboxNames(values) {
		record[name] = checked(values[name])
	}

	return record
}

func checkboxNames(values url.Values) []string {
	var names []string
	for _, field := range values[CheckboxesField] {
		for _, name := range strings.Split(field, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

func checked(vals []string) bool {
	for _, v := range vals {
		switch strings.ToLower(v) {
		case "", "false", "off", "0":
		default:
			return true
		}
	}
	return false
}

// String returns the string value of key
func (r Record) String(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Bool returns the boolean value of key
func (r Record) Bool(key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}

// Int returns the integer value of key
func (r Record) Int(key string) (int, error) {
	value := r.String(key)
	i, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return i, nil
}

// Without returns a copy of the record without the given keys
func (r Record) Without(keys ...string) Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}
