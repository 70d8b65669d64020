package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/estimate"
	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/export"
	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/pricetable"
	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/pricing"
	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/seed"
)

const (
	maxBodyBytes = 1 << 20
	xlsxMIME     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// tableLoader reads the price table artifact and names where it came from.
type tableLoader func(ctx context.Context) (*pricing.Table, string, error)

type server struct {
	table    atomic.Pointer[pricing.Table]
	db       *sql.DB
	load     tableLoader
	admin    *adminGuard
	validate *validator.Validate
	now      func() time.Time
}

func newServer(table *pricing.Table, database *sql.DB, load tableLoader, adminToken string) *server {
	s := &server{
		db:       database,
		load:     load,
		admin:    newAdminGuard(adminToken),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
	if table == nil {
		table = &pricing.Table{}
	}
	s.table.Store(table)
	return s
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/pricetable", s.handlePriceTable)
		r.Get("/pricetable/lint", s.handlePriceTableLint)
		r.With(s.admin.middleware).Post("/pricetable/reload", s.handlePriceTableReload)
		r.Get("/postnr/{postcode}", s.handlePostnr)
		r.Post("/estimate/{type}", s.handleEstimate)
		r.Post("/estimate/{type}/xlsx", s.handleEstimateXLSX)
	})
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *server) handlePriceTable(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := pricetable.Encode(w, s.table.Load()); err != nil {
		log.Printf("encode price table: %v", err)
	}
}

func (s *server) handlePriceTableLint(w http.ResponseWriter, r *http.Request) {
	issues := pricetable.Lint(s.table.Load())
	if issues == nil {
		issues = []pricetable.Issue{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"issues": issues})
}

type reloadResponse struct {
	Source     string `json:"source"`
	Categories int    `json:"categories"`
	Issues     int    `json:"issues"`
	SnapshotID int64  `json:"snapshotId,omitempty"`
}

func (s *server) handlePriceTableReload(w http.ResponseWriter, r *http.Request) {
	if s.load == nil {
		writeErrorJSON(w, http.StatusServiceUnavailable, "reload_unavailable", "no price table source configured")
		return
	}

	table, source, err := s.load(r.Context())
	if err != nil {
		priceTableReloadsTotal.WithLabelValues("error").Inc()
		log.Printf("reload price table from %s: %v", source, err)
		writeErrorJSON(w, http.StatusBadGateway, "price_table_unavailable", "could not load price table, keeping the current one")
		return
	}

	resp := reloadResponse{Source: source, Categories: len(table.Base), Issues: len(pricetable.Lint(table))}
	if s.db != nil {
		stats, err := seed.Run(r.Context(), s.db, table, source)
		if err != nil {
			priceTableReloadsTotal.WithLabelValues("error").Inc()
			log.Printf("cache reloaded price table: %v", err)
			writeErrorJSON(w, http.StatusInternalServerError, "db_error", "could not cache price table")
			return
		}
		resp.SnapshotID = stats.SnapshotID
	}

	s.table.Store(table)
	priceTableReloadsTotal.WithLabelValues("ok").Inc()
	log.Printf("price table reloaded from %s (%d categories, %d issues)", source, resp.Categories, resp.Issues)
	writeJSON(w, http.StatusOK, resp)
}

type postnrResponse struct {
	Postcode int     `json:"postcode"`
	Factor   float64 `json:"factor"`
	Note     string  `json:"note,omitempty"`
	Matched  bool    `json:"matched"`
}

func (s *server) handlePostnr(w http.ResponseWriter, r *http.Request) {
	postcode, err := strconv.Atoi(chi.URLParam(r, "postcode"))
	if err != nil || postcode < 0 || postcode > 9999 {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_postcode", "postcode must be a number between 0 and 9999")
		return
	}

	rules := s.table.Load().Postnr
	rule, ok := pricing.MatchPostnr(postcode, rules)
	writeJSON(w, http.StatusOK, postnrResponse{
		Postcode: postcode,
		Factor:   pricing.PostnrFactor(postcode, rules),
		Note:     rule.Note,
		Matched:  ok,
	})
}

func (s *server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	res, ok := s.estimate(w, r, "json")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) handleEstimateXLSX(w http.ResponseWriter, r *http.Request) {
	res, ok := s.estimate(w, r, "xlsx")
	if !ok {
		return
	}

	w.Header().Set("Content-Type", xlsxMIME)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="estimat-%s.xlsx"`, res.ProjectType))
	if err := export.WriteXLSX(w, res); err != nil {
		log.Printf("write estimate workbook: %v", err)
	}
}

// estimate decodes, validates and prices the request body for the project
// type in the URL. On failure it has already written the error response.
func (s *server) estimate(w http.ResponseWriter, r *http.Request, format string) (estimate.Result, bool) {
	project := estimate.ProjectType(chi.URLParam(r, "type"))
	if !project.Known() {
		writeErrorJSON(w, http.StatusNotFound, "unknown_project_type", fmt.Sprintf("unknown project type %q", project))
		return estimate.Result{}, false
	}

	diag := pricing.NewDiagnostics(nil)
	calc := pricing.NewCalculator(s.table.Load(), pricing.WithReporter(diag), pricing.WithClock(s.now))
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var res estimate.Result
	switch project {
	case estimate.ProjectAddition:
		var in estimate.AdditionInput
		if !s.decode(w, body, &in) {
			return estimate.Result{}, false
		}
		res = estimate.Addition(calc, in)
	case estimate.ProjectRenovation:
		var in estimate.RenovationInput
		if !s.decode(w, body, &in) {
			return estimate.Result{}, false
		}
		res = estimate.Renovation(calc, in)
	}

	estimatesTotal.WithLabelValues(string(project), format).Inc()
	pricingNoticesTotal.Add(float64(len(res.Notices)))
	return res, true
}

func (s *server) decode(w http.ResponseWriter, body io.Reader, dst any) bool {
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErrorJSON(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body is too large")
			return false
		}
		writeErrorJSON(w, http.StatusBadRequest, "invalid_json", "request body is not valid JSON")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

// writeErrorJSON writes {"error": {"code": string, "message": string}}.
func writeErrorJSON(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

// requestIDMiddleware propagates X-Request-ID or generates a UUID.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if rid == "" {
			rid = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", rid)
		next.ServeHTTP(w, r)
	})
}
