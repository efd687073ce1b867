package apiclient

import (
	"encoding/json"
)

// Signature derives the cache key for a request: the final URL followed by
// the JSON encoding of the final parameter set. Map keys are encoded in
// sorted order, so equal parameter sets always produce the same key. Only
// GET requests are cached, so method does not change the key.
func Signature(method, url string, params Params) (string, error) {
	data, err := encodeParams(params)
	if err != nil {
		return "", err
	}
	return url + data, nil
}

func encodeParams(params Params) (string, error) {
	if params == nil {
		params = Params{}
	}
	data, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
