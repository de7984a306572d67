// Package http provides HTTP server and handler implementations.
//
// This file parses conversion requests: multipart uploads from the UI and
// raw bodies posted to the API.

package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"budgetconv/internal/workbook"
)

var (
	ErrMissingFile  = errors.New("no file uploaded")
	ErrFileTooLarge = errors.New("file too large")
	ErrBadForm      = errors.New("invalid form")
)

// maxMemory is the part of a multipart upload kept in memory before
// spilling to temp files.
const maxMemory = 8 << 20

// ConvertForm holds the parsed fields of a conversion request.
type ConvertForm struct {
	FileName     string
	Data         []byte
	InputFormat  workbook.Format
	Sheet        string
	OutputFormat workbook.Format
	KeepSuffix   bool
}

// FormDefaults supplies values for fields the client omitted.
type FormDefaults struct {
	OutputFormat workbook.Format
	KeepSuffix   bool
}

// ParseUploadForm reads a multipart upload with fields file, format,
// keep_suffix and optionally source=gsheet with sheet.
func ParseUploadForm(w http.ResponseWriter, r *http.Request, maxBytes int64, def FormDefaults) (ConvertForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		if isTooLarge(err) {
			return ConvertForm{}, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, maxBytes)
		}
		return ConvertForm{}, fmt.Errorf("%w: %v", ErrBadForm, err)
	}

	form, err := parseOptions(r.MultipartForm.Value, def)
	if err != nil {
		return ConvertForm{}, err
	}

	if strings.EqualFold(firstValue(r.MultipartForm.Value, "source"), string(workbook.GSheet)) {
		form.InputFormat = workbook.GSheet
		form.Sheet = sanitizeInput(firstValue(r.MultipartForm.Value, "sheet"))
		form.FileName = form.Sheet
		if form.FileName == "" {
			form.FileName = "sheet"
		}
		return form, nil
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return ConvertForm{}, ErrMissingFile
		}
		return ConvertForm{}, fmt.Errorf("%w: %v", ErrBadForm, err)
	}
	defer file.Close()

	form.FileName = cleanFileName(header.Filename)
	if form.InputFormat, err = workbook.FormatFromName(form.FileName); err != nil {
		return ConvertForm{}, err
	}
	if form.Data, err = io.ReadAll(file); err != nil {
		return ConvertForm{}, fmt.Errorf("read upload: %w", err)
	}
	if len(form.Data) == 0 {
		return ConvertForm{}, ErrMissingFile
	}
	return form, nil
}

// ParseRawBody reads an API request whose body is the file itself. The
// file name comes from the name query parameter.
func ParseRawBody(w http.ResponseWriter, r *http.Request, maxBytes int64, def FormDefaults) (ConvertForm, error) {
	query := r.URL.Query()
	form, err := parseOptions(query, def)
	if err != nil {
		return ConvertForm{}, err
	}
	form.FileName = cleanFileName(query.Get("name"))
	if form.FileName == "" {
		return ConvertForm{}, fmt.Errorf("%w: name query parameter is required", ErrBadForm)
	}
	if form.InputFormat, err = workbook.FormatFromName(form.FileName); err != nil {
		return ConvertForm{}, err
	}

	body := http.MaxBytesReader(w, r.Body, maxBytes)
	if form.Data, err = io.ReadAll(body); err != nil {
		if isTooLarge(err) {
			return ConvertForm{}, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, maxBytes)
		}
		return ConvertForm{}, fmt.Errorf("read body: %w", err)
	}
	if len(form.Data) == 0 {
		return ConvertForm{}, ErrMissingFile
	}
	return form, nil
}

func parseOptions(values url.Values, def FormDefaults) (ConvertForm, error) {
	form := ConvertForm{OutputFormat: def.OutputFormat, KeepSuffix: def.KeepSuffix}

	if v := firstValue(values, "format"); v != "" {
		f, err := workbook.ParseFormat(v)
		if err != nil {
			return ConvertForm{}, err
		}
		if f == workbook.XLS {
			return ConvertForm{}, fmt.Errorf("%w: xls is read only", workbook.ErrUnsupportedFormat)
		}
		form.OutputFormat = f
	}
	if v := firstValue(values, "keep_suffix"); v != "" {
		b, err := parseBool(v)
		if err != nil {
			return ConvertForm{}, fmt.Errorf("%w: keep_suffix: %v", ErrBadForm, err)
		}
		form.KeepSuffix = b
	}
	return form, nil
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	return strconv.ParseBool(v)
}

func firstValue(values url.Values, key string) string {
	return strings.TrimSpace(values.Get(key))
}

// cleanFileName keeps only the base name of a client supplied path.
func cleanFileName(name string) string {
	name = sanitizeInput(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return ""
	}
	base := filepath.Base(name)
	if base == "." || base == "/" {
		return ""
	}
	return base
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large")
}
