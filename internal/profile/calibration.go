package profile

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/hustlexp/insight/pkg/models"
)

// FetchCalibration retrieves calibration metrics, optionally filtered to a
// single metric name. Any failure degrades to an empty list.
func (f *Fetcher) FetchCalibration(ctx context.Context, metric string) []models.CalibrationMetric {
	ctx, span := f.tracer.Start(ctx, "calibration.fetch")
	defer span.End()

	path := "/system/calibration"
	if metric != "" {
		path += "?metric=" + url.QueryEscape(metric)
	}
	body, err := f.get(ctx, path)
	if err != nil {
		f.countFetch("calibration", "failure")
		f.logger.Warn("calibration fetch failed", "metric", metric, "error", err)
		return []models.CalibrationMetric{}
	}

	var envelope struct {
		Metrics []models.CalibrationMetric `json:"metrics"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		f.countFetch("calibration", "failure")
		f.logger.Warn("calibration response undecodable", "error", err)
		return []models.CalibrationMetric{}
	}
	f.countFetch("calibration", "success")
	if envelope.Metrics == nil {
		return []models.CalibrationMetric{}
	}
	return envelope.Metrics
}
