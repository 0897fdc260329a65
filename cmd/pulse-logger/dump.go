package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/pulse-logger/internal/pulselog"
	"github.com/sweeney/pulse-logger/internal/store"
)

// Output formats for dump.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
	formatCBOR = "cbor"
)

func newDumpCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "dump [file]",
		Short: "Decode a sensor log",
		Long: `Decode a sensor log and print its segments. Without a file argument the
log in the data directory is read. A truncated tail is reported on stderr and
everything before it is still printed.`,
		Example: `  pulse-logger dump                         # text listing of the live log
  pulse-logger dump sensor.log -o json      # JSON export of a copied log
  pulse-logger dump -o cbor > sensor.cbor   # compact binary export`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.SensorLogPath()
			if len(args) == 1 {
				path = args[0]
			}
			return dumpFile(cmd.OutOrStdout(), store.NewFileStore(path), output, a.cfg)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", formatText, "output format: text, json, yaml or cbor")
	return cmd
}

func dumpFile(w io.Writer, src store.Source, output string, cfg Config) error {
	rc, err := src.NewReader()
	if err != nil {
		return err
	}
	defer rc.Close()

	segs, derr := pulselog.ReadSegments(rc)
	if derr != nil {
		if len(segs) == 0 {
			return fmt.Errorf("decode %s: %w", src.Name(), derr)
		}
		fmt.Fprintf(os.Stderr, "warning: %s: %v\n", src.Name(), derr)
	}
	return writeSegments(w, segs, output, cfg)
}

func writeSegments(w io.Writer, segs []pulselog.Segment, output string, cfg Config) error {
	switch output {
	case formatText:
		return writeText(w, segs, cfg)
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(segs)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(segs)
	case formatCBOR:
		data, err := cbor.Marshal(segs)
		if err != nil {
			return fmt.Errorf("encode cbor: %w", err)
		}
		_, err = w.Write(data)
		return err
	}
	return fmt.Errorf("unknown output format %q (want text, json, yaml or cbor)", output)
}

func writeText(w io.Writer, segs []pulselog.Segment, cfg Config) error {
	const layout = "2006-01-02T15:04:05Z"
	total := 0
	for _, seg := range segs {
		if _, err := fmt.Fprintf(w, "segment %s: %d entries, %d pulses\n",
			seg.Start.UTC().Format(layout), len(seg.Entries), seg.Pulses()); err != nil {
			return err
		}
		for _, e := range seg.Entries {
			fmt.Fprintf(w, "  %s %5d %5d\n", seg.BucketStart(e, cfg.Bucket).UTC().Format(layout), e.Offset, e.Pulses)
		}
		total += seg.Pulses()
	}
	_, err := fmt.Fprintf(w, "%d segments, %d pulses\n", len(segs), total)
	return err
}

func newResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete the sensor and event logs",
		Long: `Delete the sensor and event logs in the data directory. Refuses to run
while a daemon holds the logs open; use POST /delete-logs on a running daemon.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range []string{a.cfg.SensorLogPath(), a.cfg.EventLogPath()} {
				if err := removeLog(store.NewFileStore(path)); err != nil {
					return err
				}
				log.Printf("removed %s", path)
			}
			return nil
		},
	}
}

// removeLog deletes a log after taking its lock, so a running daemon's log
// is never removed from under it.
func removeLog(st store.Store) error {
	if err := st.Open(); err != nil {
		return fmt.Errorf("log in use or unreadable: %w", err)
	}
	return st.Remove()
}
