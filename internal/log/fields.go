package log

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldRequestID    = "request_id"
	FieldClientIP     = "client_ip"
	FieldMethod       = "method"
	FieldPath         = "path"
	FieldStatusCode   = "status_code"
	FieldDuration     = "duration_ms"
	FieldUserAgent    = "user_agent"
	FieldSuccess      = "success"
	FieldError        = "error"
	FieldErrorType    = "error_type"
	FieldOperation    = "operation"
	FieldFileName     = "file_name"
	FieldInputFormat  = "input_format"
	FieldOutputFormat = "output_format"
	FieldRawRows      = "raw_rows"
	FieldItemRows     = "item_rows"
	FieldGroupRows    = "group_rows"
	FieldSkippedRows  = "skipped_rows"
	FieldYear         = "year"
	FieldBytes        = "bytes"
	FieldJobID        = "job_id"
	FieldArtifactRef  = "artifact_ref"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentConvert  = "convert"
	ComponentWorkbook = "workbook"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentSheets   = "sheets"
	ComponentCache    = "cache"
	ComponentTrace    = "trace"
	ComponentBackend  = "backend"
)

// Operations defines standard operation names
const (
	OpRead     = "read"
	OpConvert  = "convert"
	OpEncode   = "encode"
	OpPublish  = "publish"
	OpDownload = "download"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation = "validation_error"
	ErrorTypeInput      = "input_error"
	ErrorTypeTooLarge   = "too_large_error"
	ErrorTypeNotFound   = "not_found_error"
	ErrorTypeInternal   = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithFile adds the source file name and its formats
func (f LogFields) WithFile(name, inFormat, outFormat string) LogFields {
	f[FieldFileName] = name
	f[FieldInputFormat] = inFormat
	f[FieldOutputFormat] = outFormat
	return f
}

// WithConversion adds row counters of a finished transform
func (f LogFields) WithConversion(rawRows, itemRows, groupRows, skipped int, year string) LogFields {
	f[FieldRawRows] = rawRows
	f[FieldItemRows] = itemRows
	f[FieldGroupRows] = groupRows
	f[FieldSkippedRows] = skipped
	f[FieldYear] = year
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
