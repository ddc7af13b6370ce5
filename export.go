package amp

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// ExportConfig configures the exporting of a mission run.
type ExportConfig struct {
	Filename  string
	AsCSV     bool // one CSV file per segment
	Snapshot  bool // zstd compressed msgpack of the whole run
	Timestamp bool
}

// IsUseless returns whether this config doesn't actually do anything.
func (c ExportConfig) IsUseless() bool {
	return !c.AsCSV && !c.Snapshot
}

// path returns the output file for suffix and extension in the configured output directory.
func (c ExportConfig) path(suffix, ext string) string {
	name := c.Filename
	if suffix != "" {
		name += "-" + suffix
	}
	if c.Timestamp {
		t := time.Now()
		name += fmt.Sprintf("-%d-%02d-%02dT%02d.%02d.%02d", t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second())
	}
	return filepath.Join(ampConfig().outputDir, name+"."+ext)
}

// StreamResults writes every segment result received on the channel as a CSV file until
// the channel is closed.
func StreamResults(conf ExportConfig, run uuid.UUID, results <-chan SegmentResult) error {
	var firstErr error
	for sr := range results {
		if !conf.AsCSV || firstErr != nil {
			continue
		}
		firstErr = writeSegmentFile(conf, run, sr)
	}
	return firstErr
}

func writeSegmentFile(conf ExportConfig, run uuid.UUID, sr SegmentResult) error {
	f, err := os.Create(conf.path(sr.Tag, "csv"))
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "# Creation date (UTC): %s\n# Run: %s\n# Segment: %s (converged: %t, iterations: %d)\n",
		time.Now().UTC(), run, sr.Tag, sr.Converged, sr.Iterations); err != nil {
		return err
	}
	if err := WriteSegmentCSV(f, sr); err != nil {
		return err
	}
	return f.Close()
}

// WriteSegmentCSV writes one row per control point and one column per component of every
// condition. Columns of multi-component conditions are suffixed with their index.
func WriteSegmentCSV(w io.Writer, sr SegmentResult) error {
	cw := csv.NewWriter(w)
	var header []string
	rows := 0
	for _, path := range sr.Paths {
		a := sr.Conditions[path]
		rows = max(rows, a.Rows)
		if a.Cols == 1 {
			header = append(header, path)
			continue
		}
		for j := 0; j < a.Cols; j++ {
			header = append(header, fmt.Sprintf("%s[%d]", path, j))
		}
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	record := make([]string, len(header))
	for i := 0; i < rows; i++ {
		k := 0
		for _, path := range sr.Paths {
			a := sr.Conditions[path]
			for j := 0; j < a.Cols; j++ {
				record[k] = ""
				if i < a.Rows {
					record[k] = strconv.FormatFloat(a.At(i, j), 'g', -1, 64)
				}
				k++
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveSnapshot writes the results to the snapshot file of the configuration.
func SaveSnapshot(conf ExportConfig, r *Results) error {
	f, err := os.Create(conf.path("", "msgpack.zst"))
	if err != nil {
		return err
	}
	defer f.Close()
	if err := EncodeSnapshot(f, r); err != nil {
		return err
	}
	return f.Close()
}

// EncodeSnapshot writes the results as zstd compressed msgpack.
func EncodeSnapshot(w io.Writer, r *Results) error {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}
	defer zw.Close()

	if err := msgpack.NewEncoder(zw).Encode(r); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to close zstd writer: %w", err)
	}
	return nil
}

// LoadSnapshot reads results written by EncodeSnapshot.
func LoadSnapshot(r io.Reader) (*Results, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer zr.Close()

	var res Results
	if err := msgpack.NewDecoder(zr).Decode(&res); err != nil {
		return nil, fmt.Errorf("failed to decode results: %w", err)
	}
	return &res, nil
}
