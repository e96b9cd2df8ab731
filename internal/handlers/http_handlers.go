package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/visionclaim/claims-engine/internal/auth"
	"github.com/visionclaim/claims-engine/internal/cache"
	"github.com/visionclaim/claims-engine/internal/catalog"
	"github.com/visionclaim/claims-engine/internal/claims"
	"github.com/visionclaim/claims-engine/internal/config"
	"github.com/visionclaim/claims-engine/internal/database"
	"github.com/visionclaim/claims-engine/internal/detection"
	"github.com/visionclaim/claims-engine/internal/estimator"
	"github.com/visionclaim/claims-engine/internal/metrics"
	"github.com/visionclaim/claims-engine/internal/report"
	"github.com/visionclaim/claims-engine/internal/severity"
	"github.com/visionclaim/claims-engine/internal/upload"
)

// HTTPHandler handles HTTP requests for the claims engine
type HTTPHandler struct {
	config       *config.Config
	logger       *slog.Logger
	detector     detection.Detector
	demoDetector detection.Detector
	estimator    *estimator.Estimator
	assembler    *report.Assembler
	catalogStore *catalog.Store
	reportRepo   *database.ReportRepository
	userRepo     *database.UserRepository
	reportCache  *cache.ReportCache
	authService  *auth.Service
	uploads      *upload.Manager
	metrics      *metrics.Collector
	validate     *validator.Validate
}

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler(
	cfg *config.Config,
	logger *slog.Logger,
	detector detection.Detector,
	est *estimator.Estimator,
	assembler *report.Assembler,
	catalogStore *catalog.Store,
	reportRepo *database.ReportRepository,
	userRepo *database.UserRepository,
	reportCache *cache.ReportCache,
	authService *auth.Service,
	uploads *upload.Manager,
	collector *metrics.Collector,
) *HTTPHandler {
	return &HTTPHandler{
		config:       cfg,
		logger:       logger,
		detector:     detector,
		demoDetector: detection.NewSimulated(),
		estimator:    est,
		assembler:    assembler,
		catalogStore: catalogStore,
		reportRepo:   reportRepo,
		userRepo:     userRepo,
		reportCache:  reportCache,
		authService:  authService,
		uploads:      uploads,
		metrics:      collector,
		validate:     validator.New(),
	}
}

// RegisterRoutes registers HTTP routes
func (h *HTTPHandler) RegisterRoutes(router *mux.Router) {
	router.Use(h.metricsMiddleware)

	router.HandleFunc("/health", h.handleHealth).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/auth/register", h.handleRegister).Methods("POST")
	api.HandleFunc("/auth/login", h.handleLogin).Methods("POST")
	api.HandleFunc("/currencies", h.handleCurrencies).Methods("GET")

	protected := api.NewRoute().Subrouter()
	protected.Use(h.authService.Middleware)
	protected.HandleFunc("/analyze", h.handleAnalyze).Methods("POST")
	protected.HandleFunc("/estimate", h.handleEstimate).Methods("POST")
	protected.HandleFunc("/demo", h.handleDemo).Methods("POST")
	protected.HandleFunc("/reports", h.handleListReports).Methods("GET")
	protected.HandleFunc("/reports/{id}", h.handleGetReport).Methods("GET")

	router.PathPrefix("/uploads/").Handler(
		http.StripPrefix("/uploads/", http.FileServer(http.Dir(h.uploads.Dir()))))
}

// Auth handlers

func (h *HTTPHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FirstName string `json:"first_name" validate:"required"`
		LastName  string `json:"last_name"`
		Email     string `json:"email" validate:"required,email"`
		Password  string `json:"password" validate:"required,min=8"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Please fill in all required fields; passwords need at least 8 characters")
		return
	}

	user, err := h.userRepo.Create(r.Context(), req.FirstName, req.LastName, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, database.ErrEmailTaken) {
			h.writeError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error("Failed to register user", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Could not create account")
		return
	}

	token, err := h.authService.GenerateToken(user.ID, user.Email, user.FullName())
	if err != nil {
		h.logger.Error("Failed to issue token", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Could not create session")
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

func (h *HTTPHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.userRepo.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, database.ErrInvalidCredentials) {
			h.writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		h.logger.Error("Login failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Could not verify credentials")
		return
	}

	token, err := h.authService.GenerateToken(user.ID, user.Email, user.FullName())
	if err != nil {
		h.logger.Error("Failed to issue token", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Could not create session")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

// Analysis handlers

// analyzeResponse is the wire document for a completed analysis.
type analyzeResponse struct {
	*report.Report
	ImageURL      string                `json:"image_url,omitempty"`
	ImageMetadata *upload.ImageMetadata `json:"image_metadata,omitempty"`
}

func (h *HTTPHandler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	if err := r.ParseMultipartForm(h.config.Uploads.MaxBytes); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid multipart request")
		return
	}

	file, fileHeader, err := r.FormFile("image")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "No image file provided")
		return
	}
	defer file.Close()

	filename, path, err := h.uploads.Save(fileHeader)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	if h.config.Detection.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Detection.Timeout)
		defer cancel()
	}

	detected, err := h.detector.Detect(ctx, path)
	if err != nil {
		h.logger.Error("Damage detection failed", "error", err)
		h.metrics.RecordAnalysis("detection_error", time.Since(started), 0)
		h.writeError(w, http.StatusInternalServerError, "Analysis failed")
		return
	}

	if !detected.VehicleDetected {
		h.metrics.RecordAnalysis("no_vehicle", time.Since(started), 0)
		h.writeError(w, http.StatusBadRequest,
			"No vehicle detected in the image. Please upload a clear photo of a damaged vehicle.")
		return
	}

	rep := h.runPipeline(detected, r.FormValue("currency"), filename)
	h.persistReport(r, rep)

	meta, err := h.uploads.Metadata(path)
	if err != nil {
		h.logger.Warn("Failed to read image metadata", "file", filename, "error", err)
	}

	h.metrics.RecordAnalysis("success", time.Since(started), len(detected.Damages))
	h.writeJSON(w, http.StatusOK, analyzeResponse{
		Report:        rep,
		ImageURL:      "/uploads/" + filename,
		ImageMetadata: meta,
	})
}

func (h *HTTPHandler) handleEstimate(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req struct {
		Damages  []claims.Damage `json:"damages"`
		Currency string          `json:"currency"`
		Vehicle  struct {
			Type     string `json:"type"`
			Color    string `json:"color"`
			Drivable bool   `json:"drivable"`
			Summary  string `json:"summary"`
		} `json:"vehicle"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	detected := &claims.DetectionResult{
		VehicleDetected: true,
		VehicleType:     req.Vehicle.Type,
		VehicleColor:    req.Vehicle.Color,
		Drivable:        req.Vehicle.Drivable,
		Summary:         req.Vehicle.Summary,
		Damages:         req.Damages,
	}

	rep := h.runPipeline(detected, req.Currency, "")
	h.persistReport(r, rep)

	h.metrics.RecordAnalysis("success", time.Since(started), len(req.Damages))
	h.writeJSON(w, http.StatusOK, rep)
}

func (h *HTTPHandler) handleDemo(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req struct {
		Currency string `json:"currency"`
	}
	if r.Body != nil {
		// Body is optional for the demo
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	detected, err := h.demoDetector.Detect(r.Context(), "")
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Demo analysis failed")
		return
	}

	rep := h.runPipeline(detected, req.Currency, "demo")
	h.metrics.RecordAnalysis("success", time.Since(started), len(detected.Damages))
	h.writeJSON(w, http.StatusOK, rep)
}

// runPipeline executes severity aggregation, cost estimation and report
// assembly over one detection result.
func (h *HTTPHandler) runPipeline(detected *claims.DetectionResult, currency, imageFile string) *report.Report {
	assessment := severity.Assess(detected.Damages)
	estimate := h.estimator.Estimate(detected.Damages, assessment, currency)
	rep := h.assembler.Assemble(detected, assessment, estimate, imageFile)

	h.metrics.RecordEstimate(estimate.Summary.Currency, assessment.Overall, estimate.Summary.Total)
	return rep
}

// persistReport stores the report and primes the cache. Persistence failures
// are logged but do not fail the request; the caller already has the report.
// The repository and cache are optional collaborators: without them the
// report is simply returned unstored.
func (h *HTTPHandler) persistReport(r *http.Request, rep *report.Report) {
	if h.reportRepo == nil {
		return
	}

	document, err := json.Marshal(rep)
	if err != nil {
		h.logger.Error("Failed to serialize report", "report_id", rep.ReportID, "error", err)
		return
	}

	record := &database.ReportRecord{
		ReportID:        rep.ReportID,
		OverallSeverity: rep.DamageAssessment.OverallSeverity,
		TotalCost:       rep.CostEstimate.Total,
		Currency:        rep.CostEstimate.Currency,
		ImageFile:       rep.ImageFile,
		Document:        document,
	}
	if tokenClaims, ok := auth.ClaimsFromContext(r.Context()); ok {
		record.UserID = sql.NullString{String: tokenClaims.UserID, Valid: true}
	}

	if err := h.reportRepo.Create(r.Context(), record); err != nil {
		h.logger.Error("Failed to persist report", "report_id", rep.ReportID, "error", err)
		return
	}

	h.metrics.RecordReportStored()
	if h.reportCache != nil {
		h.reportCache.Set(r.Context(), rep.ReportID, document)
	}
}

// Report handlers

func (h *HTTPHandler) handleGetReport(w http.ResponseWriter, r *http.Request) {
	reportID := mux.Vars(r)["id"]

	if document, err := h.reportCache.Get(r.Context(), reportID); err == nil {
		h.metrics.RecordCacheHit()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(document)
		return
	}
	h.metrics.RecordCacheMiss()

	record, err := h.reportRepo.GetByReportID(r.Context(), reportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.writeError(w, http.StatusNotFound, "Report not found")
			return
		}
		h.logger.Error("Failed to fetch report", "report_id", reportID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to fetch report")
		return
	}

	h.reportCache.Set(r.Context(), reportID, record.Document)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(record.Document)
}

func (h *HTTPHandler) handleListReports(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	records, total, err := h.reportRepo.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("Failed to list reports", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to list reports")
		return
	}

	items := make([]map[string]interface{}, 0, len(records))
	for _, rec := range records {
		items = append(items, map[string]interface{}{
			"report_id":        rec.ReportID,
			"overall_severity": rec.OverallSeverity,
			"total_cost":       rec.TotalCost,
			"currency":         rec.Currency,
			"image_file":       rec.ImageFile,
			"created_at":       rec.CreatedAt,
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"reports":     items,
		"total_count": total,
	})
}

// Misc handlers

func (h *HTTPHandler) handleCurrencies(w http.ResponseWriter, r *http.Request) {
	cat := h.catalogStore.Current()

	currencies := make([]map[string]interface{}, 0, len(cat.ExchangeRates))
	for code, cur := range cat.ExchangeRates {
		currencies = append(currencies, map[string]interface{}{
			"code":   code,
			"symbol": cur.Symbol,
			"rate":   cur.Rate,
			"base":   code == cat.BaseCurrency,
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"base_currency": cat.BaseCurrency,
		"currencies":    currencies,
	})
}

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "claims-engine",
		"timestamp": time.Now().UTC(),
	})
}

// Helpers

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (h *HTTPHandler) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}
		h.metrics.RecordHTTPRequest(r.Method, path, fmt.Sprintf("%d", rec.status), time.Since(started))
	})
}
