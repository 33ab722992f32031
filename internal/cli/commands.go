package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/crossingdelta/timeline/internal/client"
	"github.com/crossingdelta/timeline/internal/timeline"
	"github.com/crossingdelta/timeline/internal/tui"
)

func newLoginCmd(a *app) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and save the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if username == "" || password == "" {
				return errors.New("username and password are required")
			}

			s, err := client.New(a.cfg.Server, nil).Login(cmd.Context(), username, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			if err := SaveSession(a.cfg.SessionFile, s); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", s.User.Username, s.User.Company)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account name")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (read from stdin when omitted)")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := ClearSession(a.cfg.SessionFile); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.session(cmd)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "USERNAME\t%s\n", s.User.Username)
			fmt.Fprintf(w, "EMAIL\t%s\n", s.User.Email)
			fmt.Fprintf(w, "COMPANY\t%s\n", s.User.Company)
			fmt.Fprintf(w, "SERVER\t%s\n", s.Server)
			return w.Flush()
		},
	}
}

func newUICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Open the interactive timeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctrl, s, err := a.controller(cmd)
			if err != nil {
				return err
			}
			loggedOut, err := tui.Run(cmd.Context(), s, ctrl)
			if err != nil {
				return err
			}
			if loggedOut {
				return ClearSession(a.cfg.SessionFile)
			}
			return nil
		},
	}
}

func newTasksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List and change tasks",
	}
	cmd.AddCommand(
		newTasksListCmd(a),
		newTasksAddCmd(a),
		newTasksEditCmd(a),
		newTasksDeleteCmd(a),
	)
	return cmd
}

// loaded builds a controller and loads the task list
func loaded(cmd *cobra.Command, a *app) (*timeline.Controller, error) {
	ctrl, _, err := a.controller(cmd)
	if err != nil {
		return nil, err
	}
	ctrl.Do(cmd.Context(), ctrl.Load())
	return ctrl, nil
}

// settle runs call and turns a notice raised by it into an error
func settle(ctx context.Context, ctrl *timeline.Controller, call timeline.Call) error {
	ctrl.Do(ctx, call)
	if n, ok := ctrl.Notice(); ok {
		return errors.New(n.Text)
	}
	return nil
}

func findTask(ctrl *timeline.Controller, key string) (timeline.ClientTask, error) {
	for _, t := range ctrl.Tasks() {
		if t.Key() == key {
			return t, nil
		}
	}
	return nil, fmt.Errorf("task %s not found", key)
}

func newTasksListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tasks ordered by start date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctrl, err := loaded(cmd, a)
			if err != nil {
				return err
			}
			return printTasks(cmd.OutOrStdout(), ctrl.Tasks())
		},
	}
}

func printTasks(out io.Writer, tasks []timeline.ClientTask) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTART\tEND\tPROGRESS\tTYPE")
	for _, t := range tasks {
		d := t.Data()
		id := t.Key()
		if _, ok := t.(timeline.PlaceholderTask); ok {
			id += " (sample)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d%%\t%s\n",
			id, d.Name, d.Start.UTC().Format("2006-01-02"), d.End.UTC().Format("2006-01-02"), d.Progress, d.Type)
	}
	return w.Flush()
}

func newTasksAddCmd(a *app) *cobra.Command {
	var form timeline.TaskForm
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctrl, err := loaded(cmd, a)
			if err != nil {
				return err
			}
			ctrl.OpenAdd()
			call, err := ctrl.SubmitAdd(form)
			if err != nil {
				return err
			}
			if err := settle(cmd.Context(), ctrl, call); err != nil {
				return err
			}
			tasks := ctrl.Tasks()
			created := tasks[len(tasks)-1]
			fmt.Fprintf(cmd.OutOrStdout(), "Created task %s: %s\n", created.Key(), created.Data().Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&form.Name, "name", "", "task name")
	cmd.Flags().StringVar(&form.Start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&form.End, "end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&form.Progress, "progress", 0, "progress percent (0-100)")
	return cmd
}

func newTasksEditCmd(a *app) *cobra.Command {
	var name, start, end string
	var progress int
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a task; unset flags keep their current values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := loaded(cmd, a)
			if err != nil {
				return err
			}
			t, err := findTask(ctrl, args[0])
			if err != nil {
				return err
			}
			if !ctrl.OpenEdit(t) {
				n, _ := ctrl.Notice()
				return errors.New(n.Text)
			}

			form := timeline.FormFor(t)
			flags := cmd.Flags()
			if flags.Changed("name") {
				form.Name = name
			}
			if flags.Changed("start") {
				form.Start = start
			}
			if flags.Changed("end") {
				form.End = end
			}
			if flags.Changed("progress") {
				form.Progress = progress
			}

			call, err := ctrl.SubmitEdit(form)
			if err != nil {
				return err
			}
			if err := settle(cmd.Context(), ctrl, call); err != nil {
				return err
			}
			updated, err := findTask(ctrl, args[0])
			if err != nil {
				return err
			}
			d := updated.Data()
			fmt.Fprintf(cmd.OutOrStdout(), "Updated task %s: %s %s..%s %d%%\n",
				updated.Key(), d.Name, d.Start.UTC().Format("2006-01-02"), d.End.UTC().Format("2006-01-02"), d.Progress)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "task name")
	cmd.Flags().StringVar(&start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&progress, "progress", 0, "progress percent (0-100)")
	return cmd
}

func newTasksDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := loaded(cmd, a)
			if err != nil {
				return err
			}
			t, err := findTask(ctrl, args[0])
			if err != nil {
				return err
			}
			if err := settle(cmd.Context(), ctrl, ctrl.Delete(t)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s\n", args[0])
			return nil
		},
	}
}
