package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"github.com/jsphweid/scoredex/catalog"
	"github.com/jsphweid/scoredex/logging"
	"github.com/jsphweid/scoredex/model"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the catalog over a read-only HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		ix, err := e.openIndex()
		if err != nil {
			return err
		}
		defer ix.Close()

		s := &server{
			catalogs: catalog.New(e.catalogOptions(), e.logger),
			logger:   logging.NewComponentLogger(e.logger, "serve"),
		}
		if ix != nil {
			s.index = ix
		}
		handler := cors.New(cors.Options{
			AllowedOrigins: e.cfg.Serve.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet},
		}).Handler(newRouter(s))

		srv := &http.Server{Addr: e.cfg.Serve.Bind, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
		errc := make(chan error, 1)
		go func() { errc <- srv.ListenAndServe() }()
		s.logger.Info("listening", "bind", e.cfg.Serve.Bind)

		select {
		case err := <-errc:
			return err
		case <-cmd.Context().Done():
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}
	},
}

type catalogLoader interface {
	Load() (*model.Catalog, error)
}

type searcher interface {
	Search(ctx context.Context, q string, limit int) ([]model.SearchResult, error)
}

type server struct {
	catalogs catalogLoader
	// optional
	index  searcher
	logger *slog.Logger
}

func newRouter(s *server) http.Handler {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/scores", s.handleList).Methods(http.MethodGet)
	router.HandleFunc("/scores/{title}", s.handleShow).Methods(http.MethodGet)
	router.HandleFunc("/search", s.handleSearch).Methods(http.MethodGet)
	return router
}

func (s *server) load(w http.ResponseWriter) (*model.Catalog, bool) {
	c, err := s.catalogs.Load()
	if err != nil {
		s.logger.Warn("catalog unavailable", logging.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, model.ErrorResponse{Error: "catalog unavailable"})
		return nil, false
	}
	return c, true
}

func (s *server) handleList(w http.ResponseWriter, r *http.Request) {
	c, ok := s.load(w)
	if !ok {
		return
	}
	res := make([]model.ScoreSummary, 0, len(c.Records))
	for _, title := range c.Titles() {
		res = append(res, c.Records[title].Summary())
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) handleShow(w http.ResponseWriter, r *http.Request) {
	c, ok := s.load(w)
	if !ok {
		return
	}
	rec, ok := c.Records[mux.Vars(r)["title"]]
	if !ok {
		writeJSON(w, http.StatusNotFound, model.ErrorResponse{Error: "no such title"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: "missing query parameter q"})
		return
	}
	if s.index != nil {
		res, err := s.index.Search(r.Context(), q, 0)
		if err == nil {
			writeJSON(w, http.StatusOK, res)
			return
		}
		s.logger.Warn("search index failed, scanning catalog", logging.Error(err))
	}

	c, ok := s.load(w)
	if !ok {
		return
	}
	needle := strings.ToLower(q)
	res := []model.SearchResult{}
	for _, title := range c.Titles() {
		if strings.Contains(strings.ToLower(title), needle) {
			res = append(res, model.SearchResult{Title: title, Path: c.Records[title].FileInfo.Path})
		}
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
