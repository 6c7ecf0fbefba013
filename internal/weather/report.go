package weather

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/i474232898/temperature-monitor/internal/common"
)

// Fixed report texts for empty results.
const (
	NoDataForLocationAndDate = "no data found for the given location and date."
	NoDataForLocation        = "no data found for the given location."
)

// Report answers a temperature query for location, matched against city or country.
// A zero date asks for the latest sample. Absence of data is reported as text;
// only store failures are returned as errors.
func (s *Service) Report(ctx context.Context, location string, date time.Time) (string, error) {
	if date.IsZero() {
		return s.ReportLatest(ctx, location)
	}
	return s.ReportDay(ctx, location, date)
}

// ReportDay lists every sample of location created on date's calendar day, one per line.
func (s *Service) ReportDay(ctx context.Context, location string, date time.Time) (string, error) {
	from, to := common.DayWindow(date, s.reportZone)
	log := s.logger.WithFields(logrus.Fields{"location": location, "date": from.Format(time.DateOnly)})
	log.Info("temperature query for location and date")

	samples, err := s.store.QueryRange(ctx, location, location, from, to)
	if err != nil {
		return "", fmt.Errorf("query samples for %s: %w", location, err)
	}
	if len(samples) == 0 {
		log.Warn("no temperature data for location and date")
		return NoDataForLocationAndDate, nil
	}
	log.WithField("samples", len(samples)).Debug("temperature samples found")

	var sb strings.Builder
	for _, sample := range samples {
		sb.WriteString(s.formatSample(sample))
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// ReportLatest returns the most recent sample of location on a single line.
func (s *Service) ReportLatest(ctx context.Context, location string) (string, error) {
	log := s.logger.WithField("location", location)
	log.Info("latest temperature query for location")

	sample, err := s.store.QueryLatest(ctx, location, location)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn("no temperature data for location")
			return NoDataForLocation, nil
		}
		return "", fmt.Errorf("query latest sample for %s: %w", location, err)
	}
	return s.formatSample(sample), nil
}

func (s *Service) formatSample(sample Sample) string {
	return sample.Temperature.StringFixed(TemperaturePlaces) + " | " + sample.CreatedAt.In(s.reportZone).Format(time.RFC3339)
}
