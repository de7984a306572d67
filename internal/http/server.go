package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"budgetconv/internal/cache"
	applog "budgetconv/internal/log"
	"budgetconv/internal/middleware/ratelimit"
	"budgetconv/internal/middleware/security"
	"budgetconv/internal/middleware/trace"
	"budgetconv/internal/services"
	"budgetconv/internal/workbook"
	appweb "budgetconv/web"
)

// Converter runs one conversion. *services.ConversionService implements it.
type Converter interface {
	Convert(ctx context.Context, req services.Request) (*services.Artifact, error)
}

// Options configure the HTTP server.
type Options struct {
	Addr               string
	MaxUploadBytes     int64
	DefaultFormat      workbook.Format
	KeepSuffix         bool
	RateLimitPerMinute int
	// PreviewRows caps the rows rendered in the result table.
	PreviewRows int
	// SheetsEnabled shows the hosted sheet source and output options.
	SheetsEnabled bool
	// TrustedProxies are CIDRs allowed to set X-Forwarded-For.
	TrustedProxies []string
	Logger         *applog.Logger
}

func (o *Options) setDefaults() {
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = 20 << 20
	}
	if o.DefaultFormat == "" {
		o.DefaultFormat = workbook.XLSX
	}
	if o.PreviewRows <= 0 {
		o.PreviewRows = 50
	}
	if o.Logger == nil {
		o.Logger = applog.New(applog.DefaultConfig())
	}
}

type Server struct {
	http.Server
	opts      Options
	templates *template.Template
	converter Converter
	artifacts *cache.ArtifactStore
	logger    *applog.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware. Template parse failures are logged
// and surface as 500 responses and a failing readiness check.
func NewServer(opts Options, conv Converter, artifacts *cache.ArtifactStore) *Server {
	opts.setDefaults()
	logger := opts.Logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		opts:      opts,
		converter: conv,
		artifacts: artifacts,
		logger:    logger,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:  security.NewDetector(),
		started:   time.Now(),
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", applog.FieldError, err)
		}
	}
	s.tracer = trace.NewMiddleware(opts.Logger, s.detector.ExtractClientIP)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", applog.FieldError, err)
	} else {
		s.templates = t
	}

	mux := http.NewServeMux()
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /convert", s.handleConvert)
	mux.Handle("GET /download/{token}", security.NoStore(http.HandlerFunc(s.handleDownload)))
	mux.Handle("POST /api/convert", security.NoStore(http.HandlerFunc(s.handleAPIConvert)))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit, http.MethodPost)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	var h http.Handler = mux
	h = limited(h)
	h = applog.ComponentMiddleware(applog.ComponentHTTP)(h)
	h = headers.Middleware(h)
	h = s.detector.Middleware(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Too many conversions, please wait a minute and retry.").Write(w)
}

// Shutdown gracefully shuts down the server and its background routines
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
