package codec

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
)

// EncodeMultipart writes Parts, or a map of plain fields, as a multipart body.
// The boundary is appended to the content type.
func EncodeMultipart(contentType string, body Body, _ Charsets) (*Entity, error) {
	var parts Parts
	switch b := body.(type) {
	case Parts:
		parts = b
	case Structured:
		params, ok := formParams(b.Value)
		if !ok {
			return nil, unencodable(contentType, body, nil)
		}
		for _, p := range params {
			parts = append(parts, Part{Name: p.Name, Value: p.Value})
		}
	default:
		return nil, unencodable(contentType, body, nil)
	}

	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	for _, part := range parts {
		if err := writePart(writer, part); err != nil {
			return nil, fmt.Errorf("multipart field %q: %w", part.Name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	header := writer.FormDataContentType()
	if key := Key(contentType); key != "" && key != "multipart/form-data" {
		header = key + "; boundary=" + writer.Boundary()
	}
	return &Entity{ContentType: header, Data: buf.Bytes(), Length: int64(buf.Len())}, nil
}

func writePart(writer *multipart.Writer, part Part) error {
	switch {
	case part.Path != "":
		file, err := os.Open(part.Path)
		if err != nil {
			return err
		}
		defer file.Close()

		fileName := part.FileName
		if fileName == "" {
			fileName = filepath.Base(part.Path)
		}
		w, err := createPart(writer, part, fileName)
		if err != nil {
			return err
		}
		_, err = io.Copy(w, file)
		return err
	case part.Content != nil:
		w, err := createPart(writer, part, part.FileName)
		if err != nil {
			return err
		}
		_, err = io.Copy(w, part.Content)
		return err
	case part.ContentType != "":
		w, err := createPart(writer, part, part.FileName)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, part.Value)
		return err
	default:
		return writer.WriteField(part.Name, part.Value)
	}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func createPart(writer *multipart.Writer, part Part, fileName string) (io.Writer, error) {
	h := make(textproto.MIMEHeader)
	disposition := fmt.Sprintf(`form-data; name="%s"`, quoteEscaper.Replace(part.Name))
	if fileName != "" {
		disposition += fmt.Sprintf(`; filename="%s"`, quoteEscaper.Replace(fileName))
	}
	h.Set("Content-Disposition", disposition)

	ct := part.ContentType
	if ct == "" && fileName != "" {
		ct = Binary.String()
	}
	if ct != "" {
		h.Set("Content-Type", ct)
	}
	return writer.CreatePart(h)
}
