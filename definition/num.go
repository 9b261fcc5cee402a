package definition

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Num is a number that may be written either as a JSON number or as a
// numeric string ("20"). Values that cannot be parsed decode as zero, the
// same leniency report designers rely on for half-filled forms.
type Num float64

// Float returns n as float64.
func (n Num) Float() float64 { return float64(n) }

// Int returns n truncated to an int.
func (n Num) Int() int { return int(n) }

func (n *Num) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			*n = 0
			return nil
		}
		*n = Num(v)
		return nil
	}
	if data[0] == 't' || data[0] == 'f' {
		// booleans show up for flags stored in numeric slots
		if data[0] == 't' {
			*n = 1
		} else {
			*n = 0
		}
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*n = Num(v)
	return nil
}

// ID is an identifier written either as a JSON number or as a string.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	*id = ID(string(data))
	return nil
}

func (id ID) String() string { return string(id) }
