package api

import (
	"bytes"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
)

// FileUpload is an in-memory file part.
type FileUpload struct {
	Name        string
	Data        []byte
	ContentType string
}

// FileFromPath reads path into a FileUpload named after its base name.
func FileFromPath(path string) (FileUpload, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return FileUpload{}, err
	}
	name := filepath.Base(path)
	return FileUpload{Name: name, Data: b, ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))}, nil
}

type formField struct {
	name  string
	value string
}

// multipartBody encodes fields then files (each under fileField) into a buffered body.
func multipartBody(fields []formField, fileField string, files []FileUpload) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fileField, f.Name))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
