package http

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"budgetconv/internal/cache"
	"budgetconv/internal/core"
	applog "budgetconv/internal/log"
	"budgetconv/internal/services"
	"budgetconv/internal/workbook"
)

type formatOption struct {
	Value    string
	Label    string
	Selected bool
}

type indexData struct {
	Formats       []formatOption
	KeepSuffix    bool
	MaxUploadMB   int64
	SheetsEnabled bool
}

type resultData struct {
	Source      string
	Name        string
	Token       string
	Ref         string
	ExpiresAt   time.Time
	Year        string
	Stats       core.Stats
	Columns     []string
	Rows        [][]string
	TotalRows   int
	Truncated   bool
	PreviewRows int
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", applog.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	formats := []formatOption{
		{Value: string(workbook.XLSX), Label: "Excel (.xlsx)"},
		{Value: string(workbook.CSV), Label: "CSV (.csv)"},
		{Value: string(workbook.SQLite), Label: "SQLite (.db)"},
	}
	if s.opts.SheetsEnabled {
		formats = append(formats, formatOption{Value: string(workbook.GSheet), Label: "Google Sheet"})
	}
	for i := range formats {
		formats[i].Selected = formats[i].Value == string(s.opts.DefaultFormat)
	}

	data := indexData{
		Formats:       formats,
		KeepSuffix:    s.opts.KeepSuffix,
		MaxUploadMB:   s.opts.MaxUploadBytes >> 20,
		SheetsEnabled: s.opts.SheetsEnabled,
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Index template execution failed", applog.FieldError, err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleConvert converts an uploaded file, keeps the artifact for download
// and renders a preview fragment.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	form, err := ParseUploadForm(w, r, s.opts.MaxUploadBytes, s.formDefaults())
	if err != nil {
		s.writeError(ctx, w, "Invalid upload", err)
		return
	}

	art, err := s.convert(ctx, form)
	if err != nil {
		s.writeError(ctx, w, "Conversion failed", err)
		return
	}

	data := resultData{
		Source:      form.FileName,
		Name:        art.Name,
		Ref:         art.Ref,
		Year:        art.Year,
		Stats:       art.Stats,
		Columns:     art.Table.Columns(),
		TotalRows:   len(art.Table.Rows),
		PreviewRows: s.opts.PreviewRows,
	}
	if art.Data != nil {
		token, exp, err := s.artifacts.Put(cache.Artifact{Name: art.Name, ContentType: art.ContentType, Data: art.Data})
		if err != nil {
			s.writeError(ctx, w, "Failed to store artifact", err)
			return
		}
		data.Token, data.ExpiresAt = token, exp
	}
	n := min(len(art.Table.Rows), s.opts.PreviewRows)
	data.Rows = make([][]string, n)
	for i := 0; i < n; i++ {
		data.Rows[i] = art.Table.Values(i)
	}
	data.Truncated = n < len(art.Table.Rows)

	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "result.html", data); err != nil {
		s.logger.ErrorContext(ctx, "Result template execution failed", applog.FieldError, err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}

	resp := NewHTMXResponse().
		TriggerConversionCompleted(art.Name, art.Stats.ItemRows).
		TriggerFormReset().
		BodyHTML(buf.Bytes())
	if art.Stats.ItemRows == 0 {
		resp.TriggerWarningNotification("No expense lines found below the header row.")
	} else {
		resp.TriggerSuccessNotification(strconv.Itoa(art.Stats.ItemRows) + " rows converted")
	}
	resp.Write(w)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	art, err := s.artifacts.Get(token)
	if err != nil {
		http.Error(w, err.Error(), statusForError(err))
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Artifact downloaded",
		applog.FieldOperation, applog.OpDownload,
		applog.FieldFileName, art.Name,
		applog.FieldBytes, len(art.Data))

	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Disposition", contentDisposition(art.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(art.Data)))
	_, _ = w.Write(art.Data)
}

// handleAPIConvert accepts a multipart upload or a raw body (?name=...) and
// answers with the artifact itself.
func (s *Server) handleAPIConvert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		form ConvertForm
		err  error
	)
	if isMultipart(r) {
		form, err = ParseUploadForm(w, r, s.opts.MaxUploadBytes, s.formDefaults())
	} else {
		form, err = ParseRawBody(w, r, s.opts.MaxUploadBytes, s.formDefaults())
	}
	if err != nil {
		s.writeJSONError(ctx, w, err)
		return
	}

	art, err := s.convert(ctx, form)
	if err != nil {
		s.writeJSONError(ctx, w, err)
		return
	}

	if art.Data == nil {
		JSONResponse(w, http.StatusOK, map[string]interface{}{
			"ref":        art.Ref,
			"item_rows":  art.Stats.ItemRows,
			"group_rows": art.Stats.GroupRows,
			"year":       art.Year,
		})
		return
	}
	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Disposition", contentDisposition(art.Name))
	w.Header().Set("X-Item-Rows", strconv.Itoa(art.Stats.ItemRows))
	w.Header().Set("X-Group-Rows", strconv.Itoa(art.Stats.GroupRows))
	if art.Year != "" {
		w.Header().Set("X-Budget-Year", art.Year)
	}
	_, _ = w.Write(art.Data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	JSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status, code := "ready", http.StatusOK
	checks := map[string]interface{}{}

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}
	if s.converter == nil || s.artifacts == nil {
		checks["converter"] = "not_configured"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["converter"] = "ok"
		checks["artifacts"] = map[string]interface{}{"entries": s.artifacts.Size()}
	}
	rl := s.limiter.GetMetrics()
	checks["rate_limiter"] = map[string]interface{}{"active_clients": rl.ClientCount, "rejected": rl.TotalHits}
	tm := s.tracer.GetMetrics()
	checks["requests"] = map[string]interface{}{
		"total":            tm.TotalRequests,
		"last_response_ms": tm.LastResponseTime.Milliseconds(),
		"suspicious":       s.detector.GetMetrics().SuspiciousRequests,
	}

	JSONResponse(w, code, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) convert(ctx context.Context, form ConvertForm) (*services.Artifact, error) {
	if s.converter == nil {
		return nil, services.ErrBackendUnavailable
	}
	return s.converter.Convert(ctx, services.Request{
		Name:         form.FileName,
		Input:        bytes.NewReader(form.Data),
		InputFormat:  form.InputFormat,
		Sheet:        form.Sheet,
		OutputFormat: form.OutputFormat,
		KeepSuffix:   form.KeepSuffix,
	})
}

func (s *Server) formDefaults() FormDefaults {
	return FormDefaults{OutputFormat: s.opts.DefaultFormat, KeepSuffix: s.opts.KeepSuffix}
}

func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	status := statusForError(err)
	s.logError(ctx, msg, status, err)
	ErrorResponse(status, userMessage(err)).Write(w)
}

func (s *Server) writeJSONError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusForError(err)
	s.logError(ctx, "API conversion failed", status, err)
	JSONResponse(w, status, map[string]string{"error": userMessage(err)})
}

func (s *Server) logError(ctx context.Context, msg string, status int, err error) {
	logger := applog.FromContext(ctx)
	args := []any{applog.FieldError, err, applog.FieldStatusCode, status, applog.FieldErrorType, errorType(status)}
	if status >= 500 {
		logger.ErrorContext(ctx, msg, args...)
		return
	}
	logger.WarnContext(ctx, msg, args...)
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}
