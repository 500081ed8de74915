package handler

import (
	"errors"
	"net/http"

	"github.com/withyou-app/withyou/internal/service"
	"github.com/withyou-app/withyou/internal/validation"
)

const maxUploadMemory = 10 << 20

// readImage parses a multipart form and validates the image in field. The
// returned cleanup closes the file and removes temporary parts.
func readImage(r *http.Request, field string) (*service.Upload, func(), error) {
	noop := func() {}

	err := r.ParseMultipartForm(maxUploadMemory)
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, noop, validation.ErrFileRequired
	}

	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, noop, validation.ErrFileRequired
	}
	if err != nil {
		return nil, noop, err
	}

	cleanup := func() {
		file.Close()
		if r.MultipartForm != nil {
			r.MultipartForm.RemoveAll()
		}
	}

	contentType, err := validation.ValidateFile(file, header, validation.ImageConstraints)
	if err != nil {
		cleanup()
		return nil, noop, err
	}

	return &service.Upload{
		Filename:    header.Filename,
		ContentType: contentType,
		Body:        file,
	}, cleanup, nil
}

// optionalImage is readImage for forms where the image may be omitted.
func optionalImage(r *http.Request, field string) (*service.Upload, func(), error) {
	upload, cleanup, err := readImage(r, field)
	if errors.Is(err, validation.ErrFileRequired) {
		return nil, func() {}, nil
	}
	return upload, cleanup, err
}

