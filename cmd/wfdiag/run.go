package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aescanero/wfdiag/internal/application/orchestrator"
	apihttp "github.com/aescanero/wfdiag/pkg/api/http"
	"github.com/aescanero/wfdiag/pkg/domain"
)

func newRunCmd() *cobra.Command {
	var (
		tasks  []string
		format string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a diagnostic session in the foreground",
		Long: `Run a diagnostic session and wait for it to finish. The session is printed as
JSON on stdout when it starts and when it ends; progress goes to stderr.
Without --tasks every task available at the current privilege level runs.`,
		Example: `  wfdiag run
  wfdiag run --tasks processor,physical_memory --format json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(true)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(cmd.Context(), cfg, nil, logger)
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
				defer cancel()
				if err := a.close(shutdownCtx); err != nil {
					logger.Error("orchestrator shutdown error", zap.Error(err))
				}
			}()

			if len(tasks) == 0 {
				for _, t := range a.manager.ListTasks() {
					tasks = append(tasks, t.ID)
				}
			}
			req := domain.SessionRequest{TaskIDs: tasks, OutputFormat: domain.OutputFormat(format)}
			final, err := runSession(ctx, a.manager, req, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if final.Status != domain.SessionStatusCompleted {
				return fmt.Errorf("session %s %s", final.ID, final.Status)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&tasks, "tasks", nil, "comma separated task ids (see wfdiag list)")
	cmd.Flags().StringVar(&format, "format", "both", "output format: json, archive or both")
	return cmd
}

// runSession starts req, prints its progress to progress until it settles and
// writes the initial and final session to out. When ctx is cancelled the
// session is cancelled and still waited for.
func runSession(ctx context.Context, m *orchestrator.Manager, req domain.SessionRequest, out, progress io.Writer) (domain.Session, error) {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	session, err := m.StartSession(context.Background(), req)
	if err != nil {
		_ = enc.Encode(apihttp.APIResponse{Error: err.Error()})
		return domain.Session{}, err
	}
	if err := enc.Encode(apihttp.APIResponse{Success: true, Data: session}); err != nil {
		return domain.Session{}, err
	}
	id := session.ID

	subCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates, err := m.Subscribe(subCtx, id)
	if err != nil {
		return domain.Session{}, err
	}

	current, err := m.Progress(subCtx, id)
	if err != nil {
		return domain.Session{}, err
	}
	last := ""
	show := func(u domain.ProgressUpdate) {
		line := fmt.Sprintf("[%3.0f%%] %d/%d %s", u.Progress*100, u.CompletedTasks, u.TotalTasks, u.Message)
		if line != last {
			fmt.Fprintln(progress, line)
			last = line
		}
	}
	show(current)

	interrupted := ctx.Done()
loop:
	for !current.Status.IsTerminal() {
		select {
		case <-interrupted:
			interrupted = nil
			if err := m.CancelSession(context.Background(), id); err != nil {
				fmt.Fprintf(progress, "cancel: %v\n", err)
			}
		case u, ok := <-updates:
			if !ok {
				break loop
			}
			current = u
			show(u)
		}
	}

	final, err := m.GetSession(context.Background(), id)
	if err != nil {
		return domain.Session{}, err
	}
	return final, enc.Encode(apihttp.APIResponse{Success: final.Status == domain.SessionStatusCompleted, Data: final})
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the diagnostic tasks available at the current privilege level",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(true)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			a, err := newApp(cmd.Context(), cfg, nil, logger)
			if err != nil {
				return err
			}
			defer func() { _ = a.close(context.Background()) }()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tADMIN")
			for _, t := range a.manager.ListTasks() {
				admin := ""
				if t.AdminRequired {
					admin = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, t.Name, strings.ToLower(t.Category), admin)
			}
			return w.Flush()
		},
	}
}
