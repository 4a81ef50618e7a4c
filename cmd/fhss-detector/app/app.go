package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roman-kulish/fhss-detector/internal/metrics"
	"github.com/roman-kulish/fhss-detector/internal/publish"
	"github.com/roman-kulish/fhss-detector/internal/scanner"
	"github.com/roman-kulish/fhss-detector/internal/sdr/rtltcp"
	"github.com/roman-kulish/fhss-detector/internal/spectrum"
	"github.com/roman-kulish/fhss-detector/internal/storage"
	"github.com/roman-kulish/fhss-detector/internal/stream"
)

const shutdownTimeout = 5 * time.Second

// Run connects to the receiver and scans until ctx is cancelled, the stream
// fails or the managed rtl_tcp server exits.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	var serverDone <-chan error
	if config.Server.Enabled {
		server, err := rtltcp.NewServer(config.Server, config.Receiver, rtltcp.WithServerLogger(logger))
		if err != nil {
			return fmt.Errorf("creating rtl_tcp server: %w", err)
		}

		if serverDone, err = server.Start(ctx); err != nil {
			return fmt.Errorf("starting rtl_tcp server: %w", err)
		}
		defer server.Stop()

		select {
		case <-ctx.Done():
			return nil
		case err = <-serverDone:
			return serverExited(err)
		case <-time.After(config.Server.StartupDelay.Duration()):
		}
	}

	// observers are appended once the session ID is known and before Start
	var observers scanner.Observers

	session, err := scanner.New(config.Receiver, config.Detector,
		scanner.WithLogger(logger),
		scanner.WithObserver(&observers),
		scanner.WithProbe(collector),
	)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	defer session.Close()

	logger = logger.With(slog.String("session", session.ID()))

	failed := make(chan error, 1)
	observers = append(observers, collector, logObserver(logger, failed))

	if config.Storage.Enabled {
		store, err := createStorage(&config.Storage)
		if err != nil {
			return fmt.Errorf("failed to create storage: %w", err)
		}
		defer store.Close()

		sessionID, err := store.CreateSession(ctx, session.ID(), config.Receiver.Address, config.Receiver)
		if err != nil {
			return fmt.Errorf("creating storage session: %w", err)
		}

		recorder := NewRecorder(store, sessionID,
			WithMaxBatchSize(config.Storage.MaxBatchSize),
			WithEveryNth(config.Storage.EveryNth),
			WithQueueSize(config.Storage.QueueSize),
			WithRecorderLogger(logger),
		)
		defer recorder.Close()

		observers = append(observers, recorder)
	}

	if config.MQTT.Enabled {
		publisher, err := publish.Connect(config.MQTT, session.ID(), config.Receiver.Address, publish.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("connecting to MQTT broker: %w", err)
		}
		defer publisher.Close()

		observers = append(observers, publisher)
	}

	if config.HTTP.Enabled {
		hub := stream.NewHub(stream.WithLogger(logger))
		defer hub.Close()

		observers = append(observers, hub)

		httpServer := &http.Server{
			Addr:              config.HTTP.Address,
			Handler:           newMux(registry, hub, session),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			logger.Info("http listener started", slog.String("address", config.HTTP.Address))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http listener failed", slog.Any("error", err))
			}
		}()

		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			_ = httpServer.Shutdown(shutdownCtx)
		}()
	}

	defer session.Stop()

	if err = session.Connect(ctx); err != nil {
		return fmt.Errorf("connecting to receiver: %w", err)
	}
	if err = session.Start(ctx); err != nil {
		return fmt.Errorf("starting session: %w", err)
	}

	logger.Info("detector running",
		slog.String("receiver", config.Receiver.Address),
		slog.String("frequency", humanize.SIWithDigits(config.Receiver.CenterFrequency, 3, "Hz")),
		slog.String("sampleRate", humanize.SIWithDigits(float64(config.Receiver.SampleRate), 3, "S/s")),
	)

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		return nil

	case err = <-failed:
		return fmt.Errorf("scanning stopped: %w", err)

	case err = <-serverDone:
		return serverExited(err)
	}
}

func serverExited(err error) error {
	if err == nil {
		return errors.New("rtl_tcp server exited")
	}
	return fmt.Errorf("rtl_tcp server exited: %w", err)
}

// logObserver logs detections and forwards the first error to failed.
func logObserver(logger *slog.Logger, failed chan<- error) scanner.Observer {
	return scanner.ObserverFuncs{
		Detection: func(d spectrum.Detection) {
			logger.Info("drone detected",
				slog.String("classification", d.Classification),
				slog.String("frequency", humanize.SIWithDigits(d.Frequency, 3, "Hz")),
				slog.String("bandwidth", humanize.SIWithDigits(d.Bandwidth, 3, "Hz")),
				slog.Float64("hopRate", d.HopRate),
				slog.Float64("confidence", d.Confidence),
				slog.Float64("signalStrength", d.SignalStrength),
			)
		},
		Error: func(err error) {
			select {
			case failed <- err:
			default:
			}
		},
	}
}

func newMux(registry *prometheus.Registry, hub http.Handler, session *scanner.Session) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	mux.Handle("GET /ws", hub)
	mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(session.Status())
	})
	return mux
}

func createStorage(config *StorageConfig) (*storage.SqliteStore, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current working directory: %w", err)
	}

	dbPath := config.DataDirectory
	if dbPath == "" {
		dbPath = defaultDataDirectory
	}
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(wd, dbPath)
	}

	stat, err := os.Stat(dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage directory '%s' does not exist: %w", dbPath, err)
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("invalid storage directory '%s'", dbPath)
	}

	dbPath = filepath.Join(dbPath, fmt.Sprintf("fhss_session_%s.sqlite", time.Now().UTC().Format("20060102_150405")))
	return storage.NewSqliteStore(dbPath), nil
}
