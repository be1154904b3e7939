package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"smtptester/internal/client"
	"smtptester/pkg"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// formFields are the flags forwarded to client.Form.Set, in display order.
var formFields = []struct {
	name  string
	usage string
}{
	{"host", "SMTP server hostname"},
	{"port", "SMTP server port (default 587)"},
	{"secure", "Use implicit TLS (true|false)"},
	{"user", "SMTP username"},
	{"pass", "SMTP password"},
	{"from", "Sender address; with --to also sends a test message"},
	{"to", "Recipient address; with --from also sends a test message"},
}

type output struct {
	Phase   string `json:"phase"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		baseURL = envOr("SMTP_TESTER_URL", "http://localhost:3000")
		out     = "text"
		profile string
		timeout = 60 * time.Second
		values  = make(map[string]*string, len(formFields))
	)

	root := &cobra.Command{
		Use:           "smtpform",
		Short:         "Test an SMTP configuration through the smtptester API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out != "text" && out != "json" {
				return fmt.Errorf("--out must be json or text, got %q", out)
			}

			form := client.NewForm()
			if profile != "" {
				var err error
				if form, err = client.LoadProfile(profile); err != nil {
					return err
				}
			}
			for _, f := range formFields {
				if !cmd.Flags().Changed(f.name) {
					continue
				}
				if err := form.Set(f.name, *values[f.name]); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c := client.New(baseURL, &http.Client{Timeout: timeout})
			return run(ctx, cmd.OutOrStdout(), c, form, out)
		},
	}

	root.Flags().StringVar(&baseURL, "api-url", baseURL, "Base URL of the smtptester API (env SMTP_TESTER_URL)")
	root.Flags().StringVar(&out, "out", out, "Output format: json|text")
	root.Flags().StringVar(&profile, "profile", "", "YAML file with preset form values; flags override it")
	root.Flags().DurationVar(&timeout, "timeout", timeout, "HTTP timeout for the submission")
	for _, f := range formFields {
		values[f.name] = root.Flags().String(f.name, "", f.usage)
	}

	return root
}

func run(ctx context.Context, w io.Writer, c *client.Client, form client.Form, out string) error {
	if out == "text" {
		fmt.Fprintf(w, "%s: testing %s:%d\n", client.PhasePending, form.Host, form.Port)
	}

	status, err := c.Submit(ctx, form)
	if err != nil && !errors.Is(err, client.ErrBackendUnreachable) {
		return err
	}

	if out == "json" {
		o := output{Phase: status.Phase.String(), Message: status.Message}
		if status.Details != nil {
			o.Details = status.Details
		}
		if perr := pkg.PrettyPrint(w, o); perr != nil {
			return perr
		}
	} else {
		fmt.Fprintf(w, "%s: %s\n", status.Phase, status.Message)
		if status.Details != nil {
			for _, msg := range status.Details.FormErrors {
				fmt.Fprintf(w, "  - %s\n", msg)
			}
			paths := make([]string, 0, len(status.Details.FieldErrors))
			for path := range status.Details.FieldErrors {
				paths = append(paths, path)
			}
			sort.Strings(paths)
			for _, path := range paths {
				for _, msg := range status.Details.FieldErrors[path] {
					fmt.Fprintf(w, "  - %s: %s\n", path, msg)
				}
			}
		}
	}

	if err != nil {
		return err
	}
	if status.Phase != client.PhaseSuccess {
		return fmt.Errorf("smtp test failed: %s", status.Message)
	}
	return nil
}
