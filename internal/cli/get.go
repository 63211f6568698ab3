package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	api "github.com/dataforge/dataset-pipeline/api/v1alpha1"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thoas/go-funk"
	"sigs.k8s.io/yaml"
)

const (
	jsonFormat = "json"
	yamlFormat = "yaml"
)

var (
	legalOutputTypes = []string{jsonFormat, yamlFormat}
)

type GetOptions struct {
	GlobalOptions

	Output string
}

func DefaultGetOptions() *GetOptions {
	return &GetOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdGet() *cobra.Command {
	o := DefaultGetOptions()
	cmd := &cobra.Command{
		Use:   "get (TYPE | TYPE/ID)",
		Short: "Display one or many jobs or datasets.",
		Args:  cobra.ExactArgs(1),
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

func (o *GetOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVarP(&o.Output, "output", "o", o.Output, fmt.Sprintf("Output format. One of: (%s).", strings.Join(legalOutputTypes, ", ")))
}

func (o *GetOptions) Complete(cmd *cobra.Command, args []string) error {
	if err := o.GlobalOptions.Complete(cmd, args); err != nil {
		return err
	}
	return nil
}

func (o *GetOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}

	_, id, err := parseAndValidateKindId(args[0])
	if err != nil {
		return err
	}

	if id == "" && o.ProjectId == "" {
		return fmt.Errorf("--project is required when listing")
	}

	if len(o.Output) > 0 && !funk.Contains(legalOutputTypes, o.Output) {
		return fmt.Errorf("output format must be one of %s", strings.Join(legalOutputTypes, ", "))
	}

	return nil
}

func (o *GetOptions) Run(ctx context.Context, args []string) error {
	c, err := o.Client()
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}

	kind, id, err := parseAndValidateKindId(args[0])
	if err != nil {
		return err
	}

	var response any
	switch {
	case kind == JobKind && id != "":
		response, err = c.GetJob(ctx, jobID(id))
	case kind == JobKind:
		response, err = c.ListJobs(ctx, o.ProjectId)
	case kind == DatasetKind && id != "":
		response, err = c.GetDataset(ctx, id)
	case kind == DatasetKind:
		response, err = c.ListDatasets(ctx, o.ProjectId)
	default:
		return fmt.Errorf("unsupported resource kind: %s", kind)
	}
	if err != nil {
		if id == "" {
			return fmt.Errorf("listing %s: %w", plural(kind), err)
		}
		return fmt.Errorf("reading %s/%s: %w", kind, id, err)
	}

	return printResponse(os.Stdout, response, o.Output)
}

func printResponse(w io.Writer, response any, output string) error {
	switch output {
	case jsonFormat:
		marshalled, err := json.Marshal(response)
		if err != nil {
			return fmt.Errorf("marshalling resource: %w", err)
		}
		fmt.Fprintf(w, "%s\n", string(marshalled))
		return nil
	case yamlFormat:
		marshalled, err := yaml.Marshal(response)
		if err != nil {
			return fmt.Errorf("marshalling resource: %w", err)
		}
		fmt.Fprintf(w, "%s\n", string(marshalled))
		return nil
	default:
		return printTable(w, response)
	}
}

func printTable(out io.Writer, response any) error {
	w := tabwriter.NewWriter(out, 0, 8, 1, '\t', 0)
	switch r := response.(type) {
	case *api.Job:
		printJobsTable(w, *r)
	case api.JobList:
		printJobsTable(w, r...)
	case *api.Dataset:
		printDatasetsTable(w, *r)
	case api.DatasetList:
		printDatasetsTable(w, r...)
	default:
		return fmt.Errorf("unknown resource type %T", response)
	}
	return w.Flush()
}

func printJobsTable(w io.Writer, jobs ...api.Job) {
	fmt.Fprintln(w, "ID\tSTATUS\tPROGRESS\tRECORDS\tPII\tCREATED")
	for _, j := range jobs {
		fmt.Fprintf(w, "%d\t%s\t%d%%\t%d/%d\t%d\t%s\n",
			j.Id, j.Status, j.Progress, j.OutputRecordCount, j.InputRecordCount, j.PiiDetectedCount, j.CreatedAt.Format(time.RFC3339))
	}
}

func printDatasetsTable(w io.Writer, datasets ...api.Dataset) {
	fmt.Fprintln(w, "ID\tNAME\tFORMAT\tRECORDS\tSIZE")
	for _, d := range datasets {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", d.Id, d.Name, d.Format, d.RecordCount, d.FileSize)
	}
}
