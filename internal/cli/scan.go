package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dataforge/dataset-pipeline/internal/pii"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// ScanOptions redacts or reports PII in text read line by line.
type ScanOptions struct {
	Types          []string
	PreserveLength bool
	Output         string

	stdin  io.Reader
	stdout io.Writer
}

func DefaultScanOptions() *ScanOptions {
	return &ScanOptions{
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}
}

func NewCmdScan() *cobra.Command {
	o := DefaultScanOptions()
	cmd := &cobra.Command{
		Use:     "scan [FILE]",
		Short:   "Redact PII from text, or report it with -o json.",
		Example: "  echo 'mail john@example.com' | pipeline scan\n  pipeline scan notes.txt -o json --types email,phone",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

func (o *ScanOptions) Bind(fs *pflag.FlagSet) {
	fs.StringSliceVar(&o.Types, "types", o.Types, "PII types to detect, all when empty")
	fs.BoolVar(&o.PreserveLength, "preserve-length", o.PreserveLength, "Replace matches with a mask of the same length")
	fs.StringVarP(&o.Output, "output", "o", o.Output, "Output format. One of: (json). Redacted text when empty")
}

func (o *ScanOptions) Validate(args []string) error {
	for _, t := range o.Types {
		if !pii.Type(t).Valid() {
			return fmt.Errorf("unknown pii type: %s", t)
		}
	}
	if o.Output != "" && o.Output != jsonFormat {
		return fmt.Errorf("output format must be %s", jsonFormat)
	}
	return nil
}

func (o *ScanOptions) Run(ctx context.Context, args []string) error {
	types := make([]pii.Type, 0, len(o.Types))
	for _, t := range o.Types {
		types = append(types, pii.Type(t))
	}
	detector, err := pii.NewDetector(pii.Options{EnabledTypes: types})
	if err != nil {
		return err
	}

	in := o.stdin
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening input: %w", err)
		}
		defer f.Close()
		in = f
	}

	return o.scan(ctx, detector, in)
}

type scanLine struct {
	Line    int         `json:"line"`
	Matches []pii.Match `json:"matches"`
}

func (o *ScanOptions) scan(ctx context.Context, detector *pii.Detector, in io.Reader) error {
	enc := json.NewEncoder(o.stdout)
	redactOpts := pii.RedactOptions{PreserveLength: o.PreserveLength}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line++
		text := scanner.Text()

		if o.Output == jsonFormat {
			matches := detector.Matches(text)
			if len(matches) == 0 {
				continue
			}
			if err := enc.Encode(scanLine{Line: line, Matches: matches}); err != nil {
				return err
			}
			continue
		}

		if _, err := io.WriteString(o.stdout, detector.Redact(text, redactOpts)+"\n"); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}
