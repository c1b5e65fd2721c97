package rest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/discordpkg/gatewayclient/encoding"
)

// Part is one field of a multipart form. Filename marks the part as a file upload.
type Part struct {
	Name     string
	Filename string
	Contents io.Reader
}

// Options tune a single request.
type Options struct {
	// HTTPErrors rejects responses with a non-success status code.
	HTTPErrors bool

	// Multipart sends the parts as multipart/form-data.
	Multipart []Part

	// JSON is encoded as the request body.
	JSON interface{}

	// Query replaces the query string of the URL.
	Query string

	// Headers are set on the request. Names are normalised to Title-Case.
	Headers map[string]string
}

var errConflictingBodies = errors.New("multipart and json bodies can not be combined")

// body builds the request body and its content type.
func (o *Options) body() (io.Reader, string, int, error) {
	if o == nil {
		return nil, "", 0, nil
	}
	if len(o.Multipart) > 0 && o.JSON != nil {
		return nil, "", 0, errConflictingBodies
	}

	if o.JSON != nil {
		data, err := encoding.Marshal(o.JSON)
		if err != nil {
			return nil, "", 0, fmt.Errorf("unable to encode json. %w", err)
		}
		return bytes.NewReader(data), "application/json", len(data), nil
	}

	if len(o.Multipart) > 0 {
		buffer := &bytes.Buffer{}
		writer := multipart.NewWriter(buffer)
		for _, part := range o.Multipart {
			var (
				field io.Writer
				err   error
			)
			if part.Filename != "" {
				field, err = writer.CreateFormFile(part.Name, part.Filename)
			} else {
				field, err = writer.CreateFormField(part.Name)
			}
			if err != nil {
				return nil, "", 0, fmt.Errorf("unable to create multipart field %s. %w", part.Name, err)
			}
			if part.Contents != nil {
				if _, err = io.Copy(field, part.Contents); err != nil {
					return nil, "", 0, fmt.Errorf("unable to write multipart field %s. %w", part.Name, err)
				}
			}
		}
		if err := writer.Close(); err != nil {
			return nil, "", 0, fmt.Errorf("unable to finish multipart body. %w", err)
		}
		return buffer, writer.FormDataContentType(), buffer.Len(), nil
	}

	return nil, "", 0, nil
}

// apply sets query and headers on the request.
func (o *Options) apply(req *http.Request) {
	if o == nil {
		return
	}
	if o.Query != "" {
		req.URL.RawQuery = strings.TrimPrefix(o.Query, "?")
	}
	for name, value := range o.Headers {
		setHeader(req.Header, name, value)
	}
}

// setHeader stores the value under the Title-Case form of name, replacing any value
// stored under another casing of the same name.
func setHeader(header http.Header, name, value string) {
	key := TitleCase(name)
	for existing := range header {
		if strings.EqualFold(existing, key) {
			delete(header, existing)
		}
	}
	header[key] = []string{value}
}

// TitleCase upper cases the first letter of every '-' separated word: "user-agent"
// becomes "User-Agent". Other letters are kept as given.
func TitleCase(name string) string {
	words := strings.Split(name, "-")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, "-")
}
