// Package cli implements the timeline command line client.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crossingdelta/timeline/internal/client"
	"github.com/crossingdelta/timeline/internal/timeline"
)

// app holds what the commands share once flags and config are resolved
type app struct {
	configPath string
	server     string
	cfg        *Config
}

func (a *app) load(cmd *cobra.Command, _ []string) error {
	cfg, err := LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("server") {
		cfg.Server = a.server
	}
	a.cfg = cfg
	return nil
}

// session returns the saved session, pointed at the configured server when
// --server was given
func (a *app) session(cmd *cobra.Command) (client.Session, error) {
	s, err := LoadSession(a.cfg.SessionFile)
	if err != nil {
		return client.Session{}, err
	}
	if cmd.Flags().Changed("server") || s.Server == "" {
		s.Server = a.cfg.Server
	}
	return s, nil
}

// controller builds a task controller for the saved session
func (a *app) controller(cmd *cobra.Command) (*timeline.Controller, client.Session, error) {
	s, err := a.session(cmd)
	if err != nil {
		return nil, client.Session{}, err
	}
	api := client.New(a.cfg.Server, nil).WithSession(s)
	return timeline.NewController(api), s, nil
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:               "timeline",
		Short:             "Project timeline client",
		Long:              "timeline signs in to a timeline server and manages your company's tasks from the terminal.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.load,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ~/.timeline/config.yaml)")
	root.PersistentFlags().StringVar(&a.server, "server", "", "server URL (overrides config and TIMELINE_SERVER)")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newTasksCmd(a),
		newUICmd(a),
	)
	return root
}

// Execute runs the CLI and reports errors on stderr
func Execute(ctx context.Context) error {
	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
