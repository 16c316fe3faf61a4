package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

var errLabelsShape = errors.New("must be an array of strings or a comma-separated string")

// Labels is a list of audience tags such as school years or genders. It
// decodes from a JSON array of strings or from one comma-separated string
// ("9th, 10th"). An empty string decodes to an empty, non-nil list.
type Labels []string

func (l *Labels) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch {
	case len(data) > 0 && data[0] == '[':
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return errLabelsShape
		}
		if list == nil {
			list = []string{}
		}
		*l = list
	case len(data) > 0 && data[0] == '"':
		var joined string
		if err := json.Unmarshal(data, &joined); err != nil {
			return errLabelsShape
		}
		*l = splitLabels(joined)
	default:
		return errLabelsShape
	}
	return nil
}

func splitLabels(joined string) Labels {
	parts := strings.Split(joined, ",")
	out := make(Labels, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
