package console

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/jvcardoso/pro-team-care-console/internal/api"
	"github.com/jvcardoso/pro-team-care-console/internal/board"
	"github.com/jvcardoso/pro-team-care-console/internal/console/commands/analyticscmd"
	"github.com/jvcardoso/pro-team-care-console/internal/console/commands/common"
	"github.com/jvcardoso/pro-team-care-console/internal/console/commands/kanbancmd"
	"github.com/jvcardoso/pro-team-care-console/internal/console/commands/registrycmd"
	"github.com/jvcardoso/pro-team-care-console/internal/console/commands/sessioncmd"
	"github.com/jvcardoso/pro-team-care-console/internal/service"
	"github.com/jvcardoso/pro-team-care-console/pkg/consoleconfig"
)

type globalFlags struct {
	serverURL string
	output    string
}

// commandRuntime builds the service graph lazily so configuration errors
// only surface on commands that actually talk to the backend.
type commandRuntime struct {
	cfg      *Config
	services *common.Services
}

func (r *commandRuntime) Output() string {
	return string(r.cfg.Output)
}

func (r *commandRuntime) Services() (*common.Services, error) {
	if r.services != nil {
		return r.services, nil
	}

	tokens := consoleconfig.NewTokenStore(r.cfg.TokenPath)
	client, err := api.New(api.Options{
		BaseURL: r.cfg.ServerURL,
		Tokens:  tokens,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		return nil, err
	}

	kanban := service.NewKanbanService(client)
	r.services = &common.Services{
		Client:         client,
		Tokens:         tokens,
		Auth:           service.NewAuthService(client, tokens),
		Kanban:         kanban,
		Board:          board.NewManager(kanban, slog.New(slog.NewTextHandler(io.Discard, nil))),
		Companies:      service.NewCompaniesService(client),
		Establishments: service.NewEstablishmentsService(client),
		Geocoding:      service.NewGeocodingService(client),
		Session:        service.NewSecureSessionService(client),
		Analytics:      service.NewAnalyticsService(client),
	}
	return r.services, nil
}

func NewRootCommand(initial Config, stdout, stderr io.Writer) *cobra.Command {
	cfg := initial
	flags := globalFlags{
		serverURL: initial.ServerURL,
		output:    string(initial.Output),
	}
	runtime := &commandRuntime{cfg: &cfg}

	root := &cobra.Command{
		Use:   "ptc",
		Short: "Operate the Pro Team Care backend from the terminal.",
		Long: strings.TrimSpace(`ptc is a unified binary for:
- running a self-contained sandbox backend
- working the kanban board of operational cards
- managing companies and establishments
- switching the secure session context

Use ptc help <command> for command-specific examples.

The console is transport-focused:
- --server-url selects the backend endpoint
- --output selects text/json formatting`),
		Example: strings.TrimSpace(`ptc --help
ptc serve
ptc login -e operador@empresa.com.br -p ...
ptc board show
ptc card create -t "Paciente sem autorização" -c 1
ptc company list --status active
ptc watch --topic card.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return applyGlobalFlags(&cfg, flags)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&flags.serverURL, "server-url", flags.serverURL, "Backend API base URL (e.g. http://127.0.0.1:8080)")
	root.PersistentFlags().StringVar(&flags.output, "output", flags.output, "Output format: text or json")

	root.AddCommand(newServeCommand(&cfg))
	root.AddCommand(newWatchCommand(&cfg, stdout))
	root.AddCommand(sessioncmd.NewLogin(runtime, stdout, emit, wrapServiceError, wrapCLIError))
	root.AddCommand(sessioncmd.NewLogout(runtime, stdout, emit, wrapServiceError, wrapCLIError))
	root.AddCommand(sessioncmd.NewSession(runtime, stdout, emit, wrapServiceError, wrapCLIError))
	root.AddCommand(kanbancmd.NewBoard(runtime, stdout, emit, wrapServiceError, wrapCLIError))
	root.AddCommand(kanbancmd.NewCard(runtime, stdout, emit, wrapServiceError, wrapCLIError))
	root.AddCommand(kanbancmd.NewMovement(runtime, stdout, emit, wrapServiceError, wrapCLIError))
	root.AddCommand(kanbancmd.NewImport(runtime, stdout, emit, wrapServiceError, wrapCLIError))
	root.AddCommand(registrycmd.NewCompany(runtime, stdout, emit, wrapServiceError, wrapCLIError))
	root.AddCommand(registrycmd.NewEstablishment(runtime, stdout, emit, wrapServiceError, wrapCLIError))
	root.AddCommand(registrycmd.NewGeocode(runtime, stdout, emit, wrapServiceError, wrapCLIError))
	root.AddCommand(analyticscmd.NewITIL(runtime, stdout, emit, wrapServiceError, wrapCLIError))

	return root
}

func applyGlobalFlags(cfg *Config, flags globalFlags) error {
	output := strings.TrimSpace(flags.output)
	if !isValidOutput(output) {
		return &cliError{status: http.StatusBadRequest, message: fmt.Sprintf("invalid --output: %s", output)}
	}

	cfg.ServerURL = strings.TrimSpace(flags.serverURL)
	cfg.Output = Output(output)

	if cfg.ServerURL == "" {
		return &cliError{status: http.StatusBadRequest, message: "--server-url cannot be empty"}
	}

	return nil
}

func newWatchCommand(cfg *Config, stdout io.Writer) *cobra.Command {
	watchCmd := &cobra.Command{
		Use:     "watch",
		Aliases: []string{"events", "stream"},
		Short:   "Stream realtime events over websocket.",
		Long:    "Connect to the backend websocket and continuously print events until interrupted.",
		Example: strings.TrimSpace(`ptc watch
ptc watch --topic card.
ptc events --topic session. --output json`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			topic, _ := cmd.Flags().GetString("topic")
			wsURL, err := BuildWebsocketURL(cfg.ServerURL, strings.TrimSpace(topic))
			if err != nil {
				return &cliError{status: http.StatusBadRequest, message: err.Error()}
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
			if err != nil {
				return &cliError{status: http.StatusBadGateway, message: err.Error()}
			}
			defer conn.Close()

			// Interrupts cancel context, but ReadJSON can still block until socket activity.
			// Close the connection when context is done to unblock reads immediately.
			go func() {
				<-ctx.Done()
				_ = conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "interrupt"),
					time.Now().Add(500*time.Millisecond),
				)
				_ = conn.Close()
			}()

			for {
				select {
				case <-ctx.Done():
					return nil
				default:
				}

				var event map[string]any
				if err := conn.ReadJSON(&event); err != nil {
					if ctx.Err() != nil {
						return nil
					}
					return &cliError{status: http.StatusBadGateway, message: err.Error()}
				}

				line, err := FormatWatchLine(cfg.Output, event)
				if err != nil {
					return &cliError{status: http.StatusInternalServerError, message: err.Error()}
				}
				if _, err := fmt.Fprintln(stdout, line); err != nil {
					return &cliError{status: http.StatusInternalServerError, message: err.Error()}
				}
			}
		},
	}

	watchCmd.Flags().StringP("topic", "t", "", "Optional event type prefix filter, e.g. card. or session.")
	return watchCmd
}
