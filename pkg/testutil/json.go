package testutil

import "encoding/json"

// MustJSON marshals v or panics; for building request bodies in tests.
func MustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}
