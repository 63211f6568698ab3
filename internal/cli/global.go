package cli

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dataforge/dataset-pipeline/internal/client"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type GlobalOptions struct {
	ServerUrl string
	ProjectId string
	Timeout   time.Duration
}

func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		ServerUrl: "http://localhost:3443",
		Timeout:   30 * time.Second,
	}
}

func (o *GlobalOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.ServerUrl, "server-url", "u", o.ServerUrl, "Address of the server")
	fs.StringVarP(&o.ProjectId, "project", "p", o.ProjectId, "Project the resources belong to")
	fs.DurationVar(&o.Timeout, "timeout", o.Timeout, "Timeout of a single request")
}

func (o *GlobalOptions) Complete(cmd *cobra.Command, args []string) error {
	return nil
}

func (o *GlobalOptions) Validate(args []string) error {
	if o.ServerUrl == "" {
		return fmt.Errorf("server url must not be empty")
	}
	return nil
}

func (o *GlobalOptions) Client() (*client.Client, error) {
	return client.New(o.ServerUrl, client.WithHTTPClient(&http.Client{Timeout: o.Timeout}))
}
