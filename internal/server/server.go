// Package server exposes the variant annotation service over HTTP.
package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
	"go.uber.org/zap"

	"github.com/varlab/vas/internal/annotate"
	"github.com/varlab/vas/internal/config"
	"github.com/varlab/vas/internal/output"
	"github.com/varlab/vas/internal/service"
	"github.com/varlab/vas/internal/store"
	"github.com/varlab/vas/internal/vcf"
)

// Version is set at build time.
var Version = "dev"

const apiPrefix = "/api/v1"

// defaultLimit caps listings when the caller gives no limit.
const defaultLimit = 100

// Server wires the orchestrator into an echo HTTP server.
type Server struct {
	echo   *echo.Echo
	svc    *service.Service
	cfg    *config.Config
	logger *zap.Logger
}

// New creates a server over the given service.
func New(svc *service.Service, cfg *config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		echo:   echo.New(),
		svc:    svc,
		cfg:    cfg,
		logger: logger,
	}

	s.echo.HideBanner = true
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.POST},
	}))

	g := s.echo.Group(apiPrefix)
	g.GET("/", s.handleInfo)
	g.POST("/upload", s.handleUpload)
	g.GET("/variants", s.handleList)
	g.GET("/variants/export", s.handleExport)
	g.GET("/variants/:id", s.handleGet)
	g.GET("/variants/:id/annotations", s.handleAnnotate)
	g.POST("/variants/annotations", s.handleAnnotateBatch)
	g.GET("/stats", s.handleStats)

	return s
}

// Start blocks serving HTTP on the configured port.
func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf(":%d", s.cfg.Server.Port))
}

// Handler returns the underlying HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) handleInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, InfoResponse{
		Name:    "vas - variant annotation service",
		Version: Version,
		Endpoints: map[string]string{
			"upload":      apiPrefix + "/upload - upload and parse a VCF file",
			"variants":    apiPrefix + "/variants - list stored variants",
			"variant":     apiPrefix + "/variants/{id} - get one variant",
			"annotations": apiPrefix + "/variants/{id}/annotations - annotate a variant",
			"batch":       apiPrefix + "/variants/annotations - annotate many variants",
			"export":      apiPrefix + "/variants/export - download variants as TSV",
			"stats":       apiPrefix + "/stats - store and annotation statistics",
		},
	})
}

// handleUpload accepts VCF bytes as a multipart "file" field or as the raw
// request body. Per-line issues come back as warnings with HTTP 200; only
// an unparseable header is a 400.
func (s *Server) handleUpload(c echo.Context) error {
	body, err := s.uploadBody(c)
	if err != nil {
		return s.fail(c, http.StatusBadRequest, err.Error())
	}
	defer body.Close()

	res, err := s.svc.Upload(c.Request().Context(), body)
	if err != nil {
		var perr *vcf.ParseError
		if errors.As(err, &perr) {
			return s.fail(c, http.StatusBadRequest, perr.Error())
		}
		s.logger.Error("upload failed", zap.Error(err))
		return s.fail(c, http.StatusInternalServerError, "upload failed")
	}

	warnings := res.Warnings
	if warnings == nil {
		warnings = []service.Warning{}
	}

	return c.JSON(http.StatusOK, UploadResponse{
		UploadID: res.UploadID,
		Stored:   res.Stored,
		Lines:    res.Lines,
		Warnings: warnings,
		Message:  fmt.Sprintf("stored %d variants", res.Stored),
	})
}

// uploadBody selects the multipart "file" part when present, otherwise the
// raw request body, capped at the configured upload size.
func (s *Server) uploadBody(c echo.Context) (io.ReadCloser, error) {
	if fh, err := c.FormFile("file"); err == nil {
		if fh.Size > s.cfg.Upload.MaxBytes {
			return nil, fmt.Errorf("file exceeds upload limit of %d bytes", s.cfg.Upload.MaxBytes)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open uploaded file: %w", err)
		}
		return f, nil
	}

	return http.MaxBytesReader(nil, c.Request().Body, s.cfg.Upload.MaxBytes), nil
}

func (s *Server) handleList(c echo.Context) error {
	filter, err := s.listFilter(c)
	if err != nil {
		return s.fail(c, http.StatusBadRequest, err.Error())
	}

	variants := s.svc.List(filter)
	results := make([]VariantSummary, 0, len(variants))
	for _, v := range variants {
		results = append(results, summarize(v))
	}

	return c.JSON(http.StatusOK, ListResponse{
		Count:   len(results),
		Limit:   filter.Limit,
		Offset:  filter.Offset,
		Results: results,
	})
}

func (s *Server) handleExport(c echo.Context) error {
	filter, err := s.listFilter(c)
	if err != nil {
		return s.fail(c, http.StatusBadRequest, err.Error())
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/tab-separated-values")
	resp.Header().Set(echo.HeaderContentDisposition, `attachment; filename="variants.tsv"`)
	resp.WriteHeader(http.StatusOK)

	vw := output.NewVariantWriter(resp)
	if err := vw.WriteHeader(); err != nil {
		return err
	}
	for _, v := range s.svc.List(filter) {
		if err := vw.Write(v); err != nil {
			return err
		}
	}
	return vw.Flush()
}

// listFilter parses chrom/min_quality/limit/offset query parameters.
func (s *Server) listFilter(c echo.Context) (store.Filter, error) {
	filter := store.Filter{
		Chrom: c.QueryParam("chrom"),
		Limit: defaultLimit,
	}

	if raw := c.QueryParam("min_quality"); raw != "" {
		q, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return filter, fmt.Errorf("invalid min_quality %q", raw)
		}
		filter.MinQual = &q
	}

	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return filter, fmt.Errorf("invalid limit %q: must be a positive integer", raw)
		}
		filter.Limit = n
	}

	if raw := c.QueryParam("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return filter, fmt.Errorf("invalid offset %q: must be a non-negative integer", raw)
		}
		filter.Offset = n
	}

	return filter, nil
}

func (s *Server) handleGet(c echo.Context) error {
	v, err := s.svc.Get(c.Param("id"))
	if err != nil {
		return s.fail(c, http.StatusNotFound, "variant not found")
	}
	return c.JSON(http.StatusOK, v)
}

func (s *Server) handleAnnotate(c echo.Context) error {
	mode, include, err := annotationParams(c.QueryParam("mode"), c.QueryParam("include"))
	if err != nil {
		return s.fail(c, http.StatusBadRequest, err.Error())
	}

	res, err := s.svc.Annotate(c.Request().Context(), c.Param("id"), mode, include)
	if err != nil {
		return s.annotationError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleAnnotateBatch(c echo.Context) error {
	var req BatchAnnotationRequest
	if err := c.Bind(&req); err != nil {
		return s.fail(c, http.StatusBadRequest, "malformed request body")
	}
	if len(req.IDs) == 0 {
		return s.fail(c, http.StatusBadRequest, "ids must not be empty")
	}

	mode, include, err := annotationParams(req.Mode, req.Include)
	if err != nil {
		return s.fail(c, http.StatusBadRequest, err.Error())
	}

	items, err := s.svc.AnnotateBatch(c.Request().Context(), req.IDs, mode, include)
	if err != nil {
		return s.annotationError(c, err)
	}

	results := make([]BatchAnnotationItem, len(items))
	for i, item := range items {
		results[i] = BatchAnnotationItem{VariantID: item.VariantID, Annotation: item.Result}
		if item.Err != nil {
			results[i].Error = item.Err.Error()
		}
	}

	return c.JSON(http.StatusOK, BatchAnnotationResponse{
		Mode:    string(mode),
		Results: results,
	})
}

func (s *Server) handleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.svc.Stats())
}

// annotationParams validates the mode and include parameters. An empty
// mode defaults to rest; an invalid mode never falls back.
func annotationParams(modeRaw, includeRaw string) (annotate.Mode, annotate.SourceSet, error) {
	if modeRaw == "" {
		modeRaw = string(annotate.ModeREST)
	}
	mode, err := annotate.ParseMode(modeRaw)
	if err != nil {
		return "", nil, err
	}

	include, err := annotate.ParseSources(includeRaw)
	if err != nil {
		return "", nil, err
	}
	return mode, include, nil
}

// annotationError maps the error taxonomy to distinct HTTP statuses.
func (s *Server) annotationError(c echo.Context, err error) error {
	var modeErr *annotate.UnsupportedModeError
	var unavail *annotate.UnavailableError

	switch {
	case errors.Is(err, store.ErrNotFound):
		return s.fail(c, http.StatusNotFound, "variant not found")
	case errors.As(err, &modeErr):
		return s.fail(c, http.StatusBadRequest, modeErr.Error())
	case errors.As(err, &unavail):
		s.logger.Warn("annotation backend unavailable",
			zap.String("backend", string(unavail.Backend)),
			zap.Error(err))
		return s.fail(c, http.StatusBadGateway, unavail.Error())
	default:
		s.logger.Error("annotation failed", zap.Error(err))
		return s.fail(c, http.StatusInternalServerError, "annotation failed")
	}
}

func (s *Server) fail(c echo.Context, status int, message string) error {
	return c.JSON(status, ErrorResponse{Status: status, Message: message})
}
