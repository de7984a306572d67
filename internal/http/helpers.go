package http

import (
	"errors"
	"fmt"
	"html/template"
	"mime"
	"net/http"
	"strings"

	"budgetconv/internal/cache"
	"budgetconv/internal/core"
	applog "budgetconv/internal/log"
	"budgetconv/internal/services"
	"budgetconv/internal/workbook"
)

var templateFuncs = template.FuncMap{
	"add": func(a, b int) int { return a + b },
}

// statusForError maps conversion errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case core.IsInputError(err), errors.Is(err, workbook.ErrUnreadable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, workbook.ErrUnsupportedFormat),
		errors.Is(err, ErrMissingFile),
		errors.Is(err, ErrBadForm),
		errors.Is(err, services.ErrBackendUnavailable):
		return http.StatusBadRequest
	case errors.Is(err, cache.ErrArtifactNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func errorType(status int) string {
	switch status {
	case http.StatusUnprocessableEntity:
		return applog.ErrorTypeInput
	case http.StatusRequestEntityTooLarge:
		return applog.ErrorTypeTooLarge
	case http.StatusNotFound:
		return applog.ErrorTypeNotFound
	case http.StatusBadRequest:
		return applog.ErrorTypeValidation
	default:
		return applog.ErrorTypeInternal
	}
}

// userMessage returns the text shown for err. Server side failures are not
// detailed to the client.
func userMessage(err error) string {
	if statusForError(err) >= 500 {
		return "Conversion failed, please try again later."
	}
	return err.Error()
}

// contentDisposition builds an attachment header that survives non-ASCII
// file names.
func contentDisposition(name string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}
	return fmt.Sprintf("attachment; filename=%q", asciiOnly(name))
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

func asciiOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r > 126 || r < 32 || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, s)
}
