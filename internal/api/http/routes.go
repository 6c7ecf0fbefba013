package httpapi

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var validate = validator.New()

// TemperatureReporter produces the plain-text temperature report for a location.
// A zero date asks for the latest sample.
type TemperatureReporter interface {
	Report(ctx context.Context, location string, date time.Time) (string, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, reporter TemperatureReporter) {
	api := app.Group("/api")

	api.Get("/temperature", func(c *fiber.Ctx) error {
		q, err := parseTemperatureQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		report, err := reporter.Report(c.UserContext(), q.Location, q.date)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch temperature data")
		}

		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.SendString(report)
	})
}

// RegisterOps adds the health and Prometheus scrape endpoints.
func RegisterOps(app *fiber.App, service string, gatherer prometheus.Gatherer) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": service,
		})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}

// temperatureQuery holds query parameters for the temperature endpoint.
type temperatureQuery struct {
	Location string `validate:"required"`
	Date     string `validate:"omitempty,datetime=2006-01-02"`

	date time.Time
}

func parseTemperatureQuery(c *fiber.Ctx) (temperatureQuery, error) {
	q := temperatureQuery{
		Location: strings.TrimSpace(c.Query("location")),
		Date:     strings.TrimSpace(c.Query("date")),
	}

	if err := validate.Struct(q); err != nil {
		return q, err
	}

	if q.Date != "" {
		d, err := time.Parse(time.DateOnly, q.Date)
		if err != nil {
			return q, err
		}
		q.date = d
	}
	return q, nil
}
