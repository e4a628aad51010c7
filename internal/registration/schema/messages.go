package schema

import (
	"encoding/json"
	"fmt"
	"strings"
)

func quote(s string) string {
	return "'" + s + "'"
}

// render formats an offending value for a message: strings quoted, numbers
// and literals as JSON text, containers as compact JSON.
func render(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return quote(v)
	case json.Number:
		return v.String()
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		if f, ok := toFloat(v); ok {
			return formatFloat(f)
		}
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

func typeMessage(value any, typeName string, nullable bool) string {
	if nullable {
		return fmt.Sprintf("%s is not of type %s, 'null'", render(value), quote(typeName))
	}
	return fmt.Sprintf("%s is not of type %s", render(value), quote(typeName))
}

func additionalMessage(extra []string) string {
	quoted := make([]string, len(extra))
	for i, name := range extra {
		quoted[i] = quote(name)
	}
	verb := "was"
	if len(extra) > 1 {
		verb = "were"
	}
	return fmt.Sprintf("Additional properties are not allowed (%s %s unexpected)", strings.Join(quoted, ", "), verb)
}
