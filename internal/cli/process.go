package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dataforge/dataset-pipeline/internal/codec"
	"github.com/dataforge/dataset-pipeline/internal/transform"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"sigs.k8s.io/yaml"
)

// ProcessOptions runs one transformation on a local file without a server.
type ProcessOptions struct {
	Input        string
	InputFormat  string
	OutputFormat string
	ConfigFile   string
	Output       string

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

type ProcessStats struct {
	Input    int
	Output   int
	Filtered int
	PII      int
}

func DefaultProcessOptions() *ProcessOptions {
	return &ProcessOptions{
		Input:  "-",
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

func NewCmdProcess() *cobra.Command {
	o := DefaultProcessOptions()
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Transform a local file with a processing config.",
		Example: "  pipeline process -i customers.csv -c mapping.yaml -f jsonl -o customers.jsonl\n" +
			"  cat events.json | pipeline process --input-format json -f csv",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), args)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *ProcessOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.Input, "input", "i", o.Input, "Input file, - reads stdin")
	fs.StringVar(&o.InputFormat, "input-format", o.InputFormat, "Input format (csv, json, jsonl, xlsx). Guessed from the file extension when empty")
	fs.StringVarP(&o.OutputFormat, "format", "f", o.OutputFormat, "Output format (csv, json, jsonl). Overrides the config outputFormat")
	fs.StringVarP(&o.ConfigFile, "config", "c", o.ConfigFile, "Processing config file in yaml or json")
	fs.StringVarP(&o.Output, "output", "o", o.Output, "Output file, stdout when empty")
}

func (o *ProcessOptions) Complete(cmd *cobra.Command, args []string) error {
	if o.InputFormat == "" && o.Input != "-" {
		o.InputFormat = strings.TrimPrefix(filepath.Ext(o.Input), ".")
	}
	if o.OutputFormat == "" && o.Output != "" {
		o.OutputFormat = strings.TrimPrefix(filepath.Ext(o.Output), ".")
	}
	return nil
}

func (o *ProcessOptions) Validate(args []string) error {
	if o.InputFormat == "" {
		return fmt.Errorf("--input-format is required when reading stdin")
	}
	if _, err := codec.ParseFormat(o.InputFormat); err != nil {
		return err
	}
	if o.OutputFormat != "" {
		f, err := codec.ParseFormat(o.OutputFormat)
		if err != nil {
			return err
		}
		if f == codec.FormatXLSX {
			return &codec.UnsupportedFormatError{Format: f}
		}
	}
	return nil
}

func (o *ProcessOptions) Run(ctx context.Context, args []string) error {
	cfg, err := loadProcessingConfig(o.ConfigFile)
	if err != nil {
		return err
	}
	if o.OutputFormat != "" {
		cfg.OutputFormat, _ = codec.ParseFormat(o.OutputFormat)
	}

	t, err := transform.New(cfg)
	if err != nil {
		return err
	}

	data, err := o.readInput()
	if err != nil {
		return err
	}

	inputFormat, _ := codec.ParseFormat(o.InputFormat)
	records, err := codec.Decode(data, inputFormat)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", o.Input, err)
	}

	out, stats := processRecords(ctx, t, records)
	if err := ctx.Err(); err != nil {
		return err
	}

	encoded, err := codec.Encode(out, t.Config().OutputFormat)
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	if err := o.writeOutput(encoded); err != nil {
		return err
	}

	fmt.Fprintf(o.stderr, "records: %d in, %d out, %d filtered, %d with pii\n", stats.Input, stats.Output, stats.Filtered, stats.PII)
	return nil
}

func processRecords(ctx context.Context, t *transform.Transformer, records []*codec.Record) ([]*codec.Record, ProcessStats) {
	stats := ProcessStats{Input: len(records)}
	out := make([]*codec.Record, 0, len(records))
	for _, r := range records {
		if ctx.Err() != nil {
			break
		}
		result := t.Transform(r)
		if result.Filtered {
			stats.Filtered++
			continue
		}
		if result.PIIFields > 0 {
			stats.PII++
		}
		out = append(out, result.Record)
	}
	stats.Output = len(out)
	return out, stats
}

func loadProcessingConfig(path string) (*transform.Config, error) {
	cfg := &transform.Config{}
	if path == "" {
		return cfg, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.UnmarshalStrict(content, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

func (o *ProcessOptions) readInput() ([]byte, error) {
	if o.Input == "-" {
		return io.ReadAll(o.stdin)
	}
	data, err := os.ReadFile(o.Input)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return data, nil
}

func (o *ProcessOptions) writeOutput(data []byte) error {
	if o.Output == "" {
		_, err := o.stdout.Write(data)
		return err
	}
	if err := os.WriteFile(o.Output, data, 0o644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}
