package result

import (
	"context"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/facebookgo/grace/gracehttp"
	"github.com/pkg/errors"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/scribe/internal/pkg/persistence"
	"github.com/airenas/scribe/internal/pkg/status"
	"github.com/airenas/scribe/internal/pkg/utils"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// JobLoader loads a transcription job by ID
type JobLoader interface {
	LoadJob(ctx context.Context, id string) (*persistence.Job, error)
}

// Data keeps data required for service work
type Data struct {
	Port   int
	Loader JobLoader
}

type jobResult struct {
	ID        string     `json:"id"`
	Status    string     `json:"status"`
	FileName  string     `json:"fileName,omitempty"`
	Duration  float64    `json:"duration"`
	Language  string     `json:"language,omitempty"`
	Cost      int        `json:"cost"`
	Error     string     `json:"error,omitempty"`
	Created   time.Time  `json:"created"`
	Completed *time.Time `json:"completed,omitempty"`
}

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Int("port", data.Port).Msg("Starting job result service")

	if err := validate(data); err != nil {
		return err
	}

	portStr := strconv.Itoa(data.Port)

	e := initRoutes(data)

	e.Server.Addr = ":" + portStr
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = time.Minute

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	return gracehttp.Serve(e.Server)
}

func validate(data *Data) error {
	if data.Loader == nil {
		return errors.New("no job loader")
	}
	return nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("scribe_result", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.GET("/job/:id", job(data))
	e.GET("/job/:id/text", text(data))
	e.HEAD("/job/:id/text", text(data))
	e.GET("/live", live(data))

	goapp.Log.Info().Msg("Routes:")
	for _, r := range e.Routes() {
		goapp.Log.Info().Msgf("  %s %s", r.Method, r.Path)
	}
	return e
}

func live(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		return c.JSONBlob(http.StatusOK, []byte(`{"service":"OK"}`))
	}
}

func job(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("job method")()

		j, err := load(c, data)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, toResult(j))
	}
}

func text(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("text method")()

		j, err := load(c, data)
		if err != nil {
			return err
		}
		if status.From(j.Status) != status.Completed || !j.ResultText.Valid {
			return echo.NewHTTPError(http.StatusNotFound, "no result")
		}
		modTime := j.Created
		if j.Completed.Valid {
			modTime = j.Completed.Time
		}
		w := c.Response()
		w.Header().Set("Content-Disposition", "attachment; filename="+resultName(j.FileName))
		http.ServeContent(w, c.Request(), "result.txt", modTime, strings.NewReader(j.ResultText.String))
		return nil
	}
}

func load(c echo.Context, data *Data) (*persistence.Job, error) {
	id := c.Param("id")
	if id == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "No ID")
	}
	j, err := data.Loader.LoadJob(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			goapp.Log.Warn().Str("ID", goapp.Sanitize(id)).Msg("no job")
			return nil, echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		goapp.Log.Error().Err(err).Send()
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "Can't load job")
	}
	return j, nil
}

func toResult(j *persistence.Job) *jobResult {
	res := &jobResult{ID: j.ID, Status: j.Status, FileName: j.FileName, Duration: j.Duration, Language: j.Language,
		Cost: j.Cost, Error: utils.FromSQLStr(j.ErrorMessage), Created: j.Created}
	if j.Completed.Valid {
		res.Completed = &j.Completed.Time
	}
	return res
}

// resultName makes "<base>.txt" from the uploaded file name
func resultName(file string) string {
	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	if base == "" || base == "." || base == "/" {
		base = "transcription"
	}
	return base + ".txt"
}
