package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ssargent/shredder/pkg/catalog"
	"github.com/ssargent/shredder/pkg/hostnum"
	"github.com/ssargent/shredder/pkg/htable"
	"github.com/ssargent/shredder/pkg/image"
)

// Server holds the API server state
type Server struct {
	tables  TableCatalog
	config  ServerConfig
	metrics *Metrics
	logger  *zap.Logger
}

// NewServer creates a new API server
func NewServer(tables TableCatalog, config ServerConfig, metrics *Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		tables:  tables,
		config:  config,
		metrics: metrics,
		logger:  logger,
	}
}

// handleHealth reports service health and the number of open tables
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]interface{}{
		"status": "healthy",
		"tables": len(s.tables.Loaded()),
	})
}

// handleListTables lists every registered table
func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	records, err := s.tables.List()
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to list tables: %v", err), http.StatusInternalServerError)
		return
	}

	loaded := make(map[string]bool)
	for _, name := range s.tables.Loaded() {
		loaded[name] = true
	}

	tables := make([]TableResponse, 0, len(records))
	for _, record := range records {
		tables = append(tables, TableResponse{Record: record, Loaded: loaded[record.Name]})
	}
	sendSuccess(w, tables)
}

// handleGetTable describes one table. ?stats=true walks the whole table
// and adds chain statistics.
func (s *Server) handleGetTable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	record, err := s.tables.Get(name)
	if err != nil {
		s.sendTableError(w, name, err)
		return
	}

	withStats := r.URL.Query().Get("stats") == "true"
	resp := TableResponse{Record: *record}
	err = s.tables.View(name, func(img *image.Image) error {
		resp.Loaded = true
		resp.Mapped = img.Mapped()
		if !withStats {
			return nil
		}
		stats, err := img.Table().Stats()
		if err != nil {
			return err
		}
		resp.Stats = stats
		return nil
	})
	if err != nil {
		s.sendTableError(w, name, err)
		return
	}

	sendSuccess(w, resp)
}

// handleLookup writes the raw payload stored under key
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	key, err := hostnum.ParseUint32(chi.URLParam(r, "key"))
	if err != nil {
		sendError(w, fmt.Sprintf("Invalid key: %v", err), http.StatusBadRequest)
		return
	}

	err = s.tables.View(name, func(img *image.Image) error {
		res, err := img.Table().Lookup(key)
		if err != nil {
			return err
		}
		if !res.Found {
			s.metrics.RecordLookup(name, resultMiss, res.Probes)
			return htable.ErrNotFound
		}
		s.metrics.RecordLookup(name, resultHit, res.Probes)

		h := w.Header()
		h.Set("Content-Type", "application/octet-stream")
		h.Set("Content-Length", strconv.Itoa(len(res.Data)))
		h.Set(HeaderLength, strconv.Itoa(len(res.Data)))
		h.Set(HeaderBucket, strconv.FormatUint(uint64(res.Bucket), 10))
		h.Set(HeaderProbes, strconv.Itoa(res.Probes))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(res.Data); err != nil {
			s.logger.Debug("failed to write payload", zap.String("table", name), zap.Error(err))
		}
		return nil
	})
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, htable.ErrNotFound):
		sendError(w, "Key not found", http.StatusNotFound)
	case errors.Is(err, catalog.ErrTableNotFound):
		sendError(w, "Table not found", http.StatusNotFound)
	default:
		s.metrics.RecordLookup(name, resultError, 0)
		s.logger.Error("lookup failed",
			zap.String("table", name),
			zap.Uint32("key", key),
			zap.Error(err))
		sendError(w, fmt.Sprintf("Lookup failed: %v", err), http.StatusInternalServerError)
	}
}

func (s *Server) sendTableError(w http.ResponseWriter, name string, err error) {
	if errors.Is(err, catalog.ErrTableNotFound) {
		sendError(w, "Table not found", http.StatusNotFound)
		return
	}
	s.logger.Error("table request failed", zap.String("table", name), zap.Error(err))
	sendError(w, fmt.Sprintf("Failed to read table: %v", err), http.StatusInternalServerError)
}
