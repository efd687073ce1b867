package apiclient

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"sort"
	"strconv"
)

// formValues flattens params into url.Values using bracket notation for
// nested objects (a[b]=c) and indexed arrays (a[0]=x).
func formValues(params Params) url.Values {
	values := url.Values{}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		appendValue(values, k, params[k])
	}
	return values
}

func appendValue(values url.Values, key string, v any) {
	switch t := v.(type) {
	case map[string]any:
		appendMap(values, key, t)
	case Params:
		appendMap(values, key, t)
	case Payload:
		appendMap(values, key, t)
	case []any:
		for i, e := range t {
			appendValue(values, key+"["+strconv.Itoa(i)+"]", e)
		}
	case []string:
		for i, e := range t {
			values.Add(key+"["+strconv.Itoa(i)+"]", e)
		}
	default:
		values.Add(key, scalarString(t))
	}
}

func appendMap(values url.Values, key string, m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		appendValue(values, key+"["+k+"]", m[k])
	}
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}

// multipartBody writes params as form fields followed by files.
func multipartBody(params Params, files []FormFile) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for key, vals := range formValues(params) {
		for _, v := range vals {
			if err := w.WriteField(key, v); err != nil {
				return nil, "", err
			}
		}
	}

	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.Filename))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if f.Content != nil {
			if _, err := io.Copy(part, f.Content); err != nil {
				return nil, "", err
			}
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
