package app

import (
	"context"
	"fmt"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/fhss-detector/internal/storage"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.NewSqliteStore(config.DBPath)
	defer store.Close()

	if config.ListSessions {
		return listSessions(ctx, store, os.Stdout)
	}

	return renderSession(ctx, store, config, logger)
}

func listSessions(ctx context.Context, store storage.Store, out io.Writer) error {
	sessions, err := store.Sessions(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tRECEIVER\tFRAMES\tDURATION")
	for _, sess := range sessions {
		summary, err := store.Summary(ctx, sess.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			sess.ID,
			sess.StartTime.Local().Format(time.DateTime),
			sess.Receiver,
			humanize.Comma(summary.Frames),
			summary.EndTime.Sub(summary.StartTime).Round(time.Millisecond),
		)
	}
	return tw.Flush()
}

func renderSession(ctx context.Context, store storage.Store, config *Config, logger *slog.Logger) error {
	summary, err := store.Summary(ctx, config.SessionID)
	if err != nil {
		return fmt.Errorf("reading session summary: %w", err)
	}
	if summary.Frames == 0 {
		return fmt.Errorf("session %d: %w", config.SessionID, storage.ErrNoData)
	}

	var opts []storage.ReaderOption
	var filters []any
	if config.StartTime != nil {
		opts = append(opts, storage.WithStartTime(config.StartTime.UTC()))
		filters = append(filters, slog.String("startTime", config.StartTime.UTC().Format(time.DateTime)))
	}
	if config.EndTime != nil {
		opts = append(opts, storage.WithEndTime(config.EndTime.UTC()))
		filters = append(filters, slog.String("endTime", config.EndTime.UTC().Format(time.DateTime)))
	}

	logger.Info("iterator configuration", filters...)

	reader, err := store.ReadFrames(ctx, config.SessionID, opts...)
	if err != nil {
		return err
	}
	defer reader.Close()

	perRow := framesPerRow(summary.Frames, config.MaxRows)

	logger.Info("reading frames",
		slog.String("frames", humanize.Comma(summary.Frames)),
		slog.Int("framesPerRow", perRow),
	)

	data := NewWaterfallData(NewSmoothBounds(0.3), perRow)
	for reader.Next(ctx) {
		data.Update(reader.Current())
	}
	if err = reader.Error(); err != nil {
		return err
	}
	data.Flush()

	bounds := data.BoundsTracker.Current()

	logger.Info("finished reading frames",
		slog.Group("stats",
			slog.String("startTime", data.TimestampStart.Local().Format(time.DateTime)),
			slog.String("endTime", data.TimestampEnd.Local().Format(time.DateTime)),
			slog.String("minFreq", formatFrequency(data.FrequencyMin)),
			slog.String("maxFreq", formatFrequency(data.FrequencyMax)),
			slog.String("minPower", fmt.Sprintf("%0.2fdB", bounds.Min)),
			slog.String("maxPower", fmt.Sprintf("%0.2fdB", bounds.Max)),
		))

	renderer := NewWaterfallRenderer(RenderConfig{
		Location:      config.TimeZone,
		ColorTheme:    config.Theme,
		Bounds:        config.powerBounds(bounds),
		NoAnnotations: config.NoAnnotations,
	})

	logger.Info("rendering waterfall",
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.String("format", string(config.Format)),
			slog.String("theme", string(config.Theme)),
			slog.Int("width", data.Width),
			slog.Int("height", data.Height),
		))

	img, err := renderer.Render(data)
	if err != nil {
		return fmt.Errorf("rendering waterfall: %w", err)
	}

	out, err := os.Create(config.OutputFile)
	if err != nil {
		return err
	}
	defer out.Close()

	switch config.Format {
	case ImageJPEG:
		err = jpeg.Encode(out, img, &jpeg.Options{Quality: 98})
	default:
		err = png.Encode(out, img)
	}
	if err != nil {
		return fmt.Errorf("encoding image: %w", err)
	}

	return out.Close()
}
