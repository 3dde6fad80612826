// Package api exposes a small read-only HTTP surface over a completed
// index directory, plus a background indexing trigger — the natural
// extension of SPEC_FULL.md §6's index(...)/search(...) entry points onto
// HTTP, in the same gin route-group-and-graceful-shutdown shape the
// teacher's own api package uses for its engine.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/irindex/irindex/config"
	irerrors "github.com/irindex/irindex/internal/errors"
	"github.com/irindex/irindex/internal/indexer"
	"github.com/irindex/irindex/internal/indexwriter"
	"github.com/irindex/irindex/internal/jobs"
	"github.com/irindex/irindex/internal/query"
	"github.com/irindex/irindex/model"
)

// Server holds the dependencies shared by every handler: the index
// directory search requests are served from, a cache of opened Searchers
// keyed by ranking mode, and the job manager backing /jobs.
type Server struct {
	indexDir string
	jobs     *jobs.Manager

	mu        sync.Mutex
	searchers map[config.RankingMode]query.Searcher
}

// NewServer constructs a Server over indexDir with its own job manager.
// Callers must call Close when done to release any opened searchers, and
// Jobs().Stop() to drain the job manager.
func NewServer(indexDir string) *Server {
	mgr := jobs.NewManager(1)
	mgr.Start()
	return &Server{
		indexDir:  indexDir,
		jobs:      mgr,
		searchers: make(map[config.RankingMode]query.Searcher),
	}
}

// Jobs exposes the background job manager so cmd/irindex can stop it
// during graceful shutdown.
func (s *Server) Jobs() *jobs.Manager { return s.jobs }

// Close releases every searcher opened during the server's lifetime.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, searcher := range s.searchers {
		searcher.Close()
	}
}

func (s *Server) searcherFor(mode config.RankingMode) (query.Searcher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if searcher, ok := s.searchers[mode]; ok {
		return searcher, nil
	}
	searcher, err := query.NewSearcher(s.indexDir, mode, query.Options{})
	if err != nil {
		return nil, err
	}
	s.searchers[mode] = searcher
	return searcher, nil
}

// SetupRoutes registers every handler on router.
func SetupRoutes(router *gin.Engine, s *Server) {
	router.GET("/health", s.healthHandler)
	router.GET("/stats", s.statsHandler)
	router.POST("/search", s.searchHandler)
	router.POST("/jobs/index", s.createIndexJobHandler)
	router.GET("/jobs/metrics", s.jobMetricsHandler)
	router.GET("/jobs/:id", s.getJobHandler)
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) statsHandler(c *gin.Context) {
	meta, err := indexwriter.LoadMetadata(s.indexDir)
	if err != nil {
		sendDomainError(c, ErrorCodeInternalError, err)
		return
	}
	loc, err := query.OpenLocator(s.indexDir)
	if err != nil {
		sendDomainError(c, ErrorCodeInternalError, err)
		return
	}
	defer loc.Close()

	c.JSON(http.StatusOK, gin.H{
		"num_docs":   meta.NumDocs,
		"num_terms":  loc.NumTerms(),
		"avg_dl":     meta.AvgDL,
		"cache":      meta.Settings.Cache,
		"positional": meta.Settings.Positional,
	})
}

// searchRequest mirrors one line of a batch queries file plus the two
// parameters a CLI invocation would otherwise take from flags.
type searchRequest struct {
	QueryText string             `json:"query_text" binding:"required"`
	Mode      config.RankingMode `json:"mode" binding:"required"`
	TopK      int                `json:"top_k"`
}

func (s *Server) searchHandler(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}
	if err := config.ValidateRankingMode(req.Mode); err != nil {
		sendDomainError(c, ErrorCodeValidationFailed, err)
		return
	}
	topK := req.TopK
	if topK <= 0 {
		topK = 10
	}

	searcher, err := s.searcherFor(req.Mode)
	if err != nil {
		sendDomainError(c, ErrorCodeSearchFailed, err)
		return
	}

	results, err := searcher.Search(req.QueryText)
	if err != nil {
		sendDomainError(c, ErrorCodeSearchFailed, err)
		return
	}
	if len(results) > topK {
		results = results[:topK]
	}

	run := model.RunEntry{DocumentsPMID: make([]string, len(results)), Scores: make([]float64, len(results))}
	for i, r := range results {
		run.DocumentsPMID[i] = r.PMID
		run.Scores[i] = r.Score
	}
	c.JSON(http.StatusOK, run)
}

// createIndexJobRequest names a collection to index into a fresh output
// directory, using the same config.IndexSettings the CLI's `index`
// subcommand validates.
type createIndexJobRequest struct {
	CollectionPath string              `json:"collection_path" binding:"required"`
	OutDir         string              `json:"out_dir" binding:"required"`
	Settings       config.IndexSettings `json:"settings"`
}

func (s *Server) createIndexJobHandler(c *gin.Context) {
	var req createIndexJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}

	idx, err := indexer.NewIndexer(req.Settings)
	if err != nil {
		sendDomainError(c, ErrorCodeValidationFailed, err)
		return
	}

	jobID := s.jobs.CreateJob(model.JobTypeBuildIndex, req.OutDir, nil)
	err = s.jobs.ExecuteJob(jobID, func(ctx context.Context, job *model.Job) error {
		_, err := idx.Index(ctx, req.CollectionPath, req.OutDir, func(current int) {
			s.jobs.UpdateJobProgress(jobID, current, 0, "indexing")
		})
		return err
	})
	if err != nil {
		sendDomainError(c, ErrorCodeIndexingFailed, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID})
}

func (s *Server) jobMetricsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.jobs.GetMetrics())
}

func (s *Server) getJobHandler(c *gin.Context) {
	job, err := s.jobs.GetJob(c.Param("id"))
	if err != nil {
		var notFound *irerrors.NotFoundError
		if errors.As(err, &notFound) {
			sendError(c, http.StatusNotFound, ErrorCodeJobNotFound, err.Error())
			return
		}
		sendDomainError(c, ErrorCodeInternalError, err)
		return
	}
	c.JSON(http.StatusOK, job)
}
