// Package metrics exports the statistics of a sync run as a Prometheus textfile
// for the node exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/takeshy/bvsync/internal/downloader"
)

type runMetrics struct {
	files           *prometheus.GaugeVec
	bytes           *prometheus.GaugeVec
	downloadSeconds *prometheus.GaugeVec
	runSeconds      *prometheus.GaugeVec
	lastRun         *prometheus.GaugeVec
}

func newRunMetrics(reg prometheus.Registerer) *runMetrics {
	m := &runMetrics{
		files: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bvsync_files",
			Help: "Files handled by the last sync run, by result",
		}, []string{"camera", "result"}),
		bytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bvsync_bytes_total",
			Help: "Bytes downloaded by the last sync run",
		}, []string{"camera"}),
		downloadSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bvsync_download_seconds",
			Help: "Time spent streaming files during the last sync run",
		}, []string{"camera"}),
		runSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bvsync_run_seconds",
			Help: "Wall time of the last sync run",
		}, []string{"camera"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bvsync_last_run_timestamp_seconds",
			Help: "Unix time the last sync run finished",
		}, []string{"camera"}),
	}
	reg.MustRegister(m.files, m.bytes, m.downloadSeconds, m.runSeconds, m.lastRun)
	return m
}

func (m *runMetrics) observe(address string, stats downloader.Stats, finished time.Time) {
	m.files.WithLabelValues(address, "copied").Set(float64(stats.Copied))
	m.files.WithLabelValues(address, "ignored").Set(float64(stats.Ignored))
	m.files.WithLabelValues(address, "errored").Set(float64(stats.Errored))
	m.files.WithLabelValues(address, "temp_cleaned").Set(float64(stats.TempCleaned))
	m.bytes.WithLabelValues(address).Set(float64(stats.TotalBytes))
	m.downloadSeconds.WithLabelValues(address).Set(stats.DownloadDuration.Seconds())
	m.runSeconds.WithLabelValues(address).Set(stats.TotalDuration.Seconds())
	m.lastRun.WithLabelValues(address).Set(float64(finished.Unix()))
}

// WriteTextfile writes stats to path. The file is replaced atomically.
func WriteTextfile(path, address string, stats downloader.Stats) error {
	reg := prometheus.NewRegistry()
	newRunMetrics(reg).observe(address, stats, time.Now())

	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
