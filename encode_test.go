package apiclient

import (
	"io"
	"mime"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormValuesFlattensNestedParams(t *testing.T) {
	values := formValues(Params{
		"title":  "Hello world",
		"page":   float64(2),
		"count":  3,
		"draft":  false,
		"none":   nil,
		"filter": map[string]any{"tag": "go", "author": map[string]any{"id": 7}},
		"ids":    []any{"a", float64(1.5)},
		"names":  []string{"x", "y"},
	})

	assert.Equal(t, "Hello world", values.Get("title"))
	assert.Equal(t, "2", values.Get("page"))
	assert.Equal(t, "3", values.Get("count"))
	assert.Equal(t, "false", values.Get("draft"))
	assert.Equal(t, "", values.Get("none"))
	assert.True(t, values.Has("none"))
	assert.Equal(t, "go", values.Get("filter[tag]"))
	assert.Equal(t, "7", values.Get("filter[author][id]"))
	assert.Equal(t, "a", values.Get("ids[0]"))
	assert.Equal(t, "1.5", values.Get("ids[1]"))
	assert.Equal(t, "y", values.Get("names[1]"))
}

func TestFormValuesEncoding(t *testing.T) {
	encoded := formValues(Params{"b": "2 3", "a": map[string]any{"x": "&"}}).Encode()
	assert.Equal(t, "a%5Bx%5D=%26&b=2+3", encoded)

	assert.Empty(t, formValues(nil).Encode())
}

func TestMultipartBody(t *testing.T) {
	body, contentType, err := multipartBody(
		Params{"title": "avatar", "_method": "PATCH"},
		[]FormFile{
			{Field: "file", Filename: "a.png", ContentType: "image/png", Content: strings.NewReader("PNGDATA")},
			{Field: "raw", Filename: "b.bin", Content: strings.NewReader("\x00\x01")},
		},
	)
	require.NoError(t, err)

	mediaType, params, err := mime.ParseMediaType(contentType)
	require.NoError(t, err)
	assert.Equal(t, "multipart/form-data", mediaType)

	form, err := multipart.NewReader(body, params["boundary"]).ReadForm(1 << 20)
	require.NoError(t, err)

	assert.Equal(t, []string{"avatar"}, form.Value["title"])
	assert.Equal(t, []string{"PATCH"}, form.Value["_method"])

	require.Len(t, form.File["file"], 1)
	fh := form.File["file"][0]
	assert.Equal(t, "a.png", fh.Filename)
	assert.Equal(t, "image/png", fh.Header.Get("Content-Type"))
	f, err := fh.Open()
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "PNGDATA", string(data))

	require.Len(t, form.File["raw"], 1)
	assert.Equal(t, "application/octet-stream", form.File["raw"][0].Header.Get("Content-Type"))
}
