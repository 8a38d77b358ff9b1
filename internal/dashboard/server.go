// Package dashboard serves the read-only JSON API over the stored sheets
// plus job state and manual triggers. No authentication: deploy behind a
// trusted network.
package dashboard

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lesson-insights-go/internal/config"
	"lesson-insights-go/internal/jobs"
	"lesson-insights-go/internal/logger"
	"lesson-insights-go/internal/sheet"
	"lesson-insights-go/internal/store"
	"lesson-insights-go/internal/types"
)

type Server struct {
	cfg      config.Config
	registry *jobs.Registry
	log      *logger.Logger
}

func New(cfg config.Config, registry *jobs.Registry) *Server {
	return &Server{
		cfg:      cfg,
		registry: registry,
		log:      logger.New(),
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	api := r.Group("/api")
	{
		api.GET("/jobs", s.listJobs)
		api.POST("/jobs/:name/run", s.triggerJob)
		api.GET("/lessons", s.lessons)
		api.GET("/daily_tutors", s.sheetRows(sheet.DailyTutorsSheet))
		api.GET("/weekly_tutors", s.sheetRows(sheet.WeeklyTutorsSheet))
		api.GET("/monthly_tutors", s.sheetRows(sheet.MonthlyTutorsSheet))
	}
	return r
}

// Run blocks serving on the configured port.
func (s *Server) Run() error {
	s.log.WithField("port", s.cfg.Port).Info("dashboard listening")
	return s.Router().Run(":" + s.cfg.Port)
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.log.WithRequest(c.Request).Info("request")
		c.Next()
	}
}

func (s *Server) listJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": s.registry.Snapshot()})
}

func (s *Server) triggerJob(c *gin.Context) {
	status, err := s.registry.Trigger(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, status)
}

// lessons returns stored lesson records, optionally filtered by date and
// tutor.
func (s *Server) lessons(c *gin.Context) {
	wb, err := store.Open(s.cfg.WorkbookPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer wb.Discard()

	records, err := wb.Lessons()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	date := c.Query("date")
	tutor := c.Query("tutor")
	filtered := make([]types.LessonRecord, 0, len(records))
	for _, rec := range records {
		if date != "" && rec.DateJST != date {
			continue
		}
		if tutor != "" && rec.TutorName != tutor {
			continue
		}
		filtered = append(filtered, rec)
	}
	c.JSON(http.StatusOK, gin.H{"lessons": filtered})
}

// sheetRows serves a summary sheet as header-keyed objects.
func (s *Server) sheetRows(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		wb, err := store.Open(s.cfg.WorkbookPath)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		defer wb.Discard()

		rows, err := wb.Rows(name)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if len(rows) == 0 {
			c.JSON(http.StatusOK, gin.H{"rows": []gin.H{}})
			return
		}

		headers := rows[0]
		out := make([]gin.H, 0, len(rows)-1)
		for _, row := range rows[1:] {
			obj := gin.H{}
			for i, h := range headers {
				if i < len(row) {
					obj[h] = row[i]
				} else {
					obj[h] = ""
				}
			}
			out = append(out, obj)
		}
		c.JSON(http.StatusOK, gin.H{"rows": out})
	}
}
