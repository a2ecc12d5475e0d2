// Package cli implements the fauxd command line interface.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fauxapi/fauxd/pkg/augment"
	"github.com/fauxapi/fauxd/pkg/config"
	"github.com/fauxapi/fauxd/pkg/dispatch"
	"github.com/fauxapi/fauxd/pkg/importer"
	"github.com/fauxapi/fauxd/pkg/logging"
	"github.com/fauxapi/fauxd/pkg/persist"
	"github.com/fauxapi/fauxd/pkg/resource"
	"github.com/fauxapi/fauxd/pkg/server"
	"github.com/fauxapi/fauxd/pkg/spec"
	"github.com/fauxapi/fauxd/pkg/synth"
	"github.com/fauxapi/fauxd/pkg/validation"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fauxd",
		Short: "Schema-driven stateful mock API server",
		Long: "fauxd serves a mock API from an OpenAPI document: responses are\n" +
			"synthesized from the response schemas, and created resources are\n" +
			"stored so the mock behaves statefully across requests.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var (
		configPath string
		specFile   string
		specURL    string
		port       int
		dataDir    string
		withMeta   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the mock server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if specFile != "" {
				cfg.Spec.File = specFile
				cfg.Spec.URL = ""
			}
			if specURL != "" {
				cfg.Spec.URL = specURL
				cfg.Spec.File = ""
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if dataDir != "" {
				cfg.Persistence.Enabled = true
				cfg.Persistence.DataDir = dataDir
			}
			if withMeta {
				cfg.Server.IncludeMeta = true
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file path")
	cmd.Flags().StringVarP(&specFile, "spec", "s", "", "OpenAPI document path")
	cmd.Flags().StringVar(&specURL, "spec-url", "", "OpenAPI document URL")
	cmd.Flags().IntVarP(&port, "port", "p", 4280, "listen port")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "enable persistence into this directory")
	cmd.Flags().BoolVar(&withMeta, "meta", false, "include diagnostic meta headers in responses")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Logging.Level),
		Format: logging.ParseFormat(cfg.Logging.Format),
	})

	doc, err := loadDocument(ctx, cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("serving document", "title", doc.Title, "operations", len(doc.Operations()))

	storeOpts := []resource.Option{resource.WithLogger(logger)}
	if cfg.Persistence.Enabled {
		saver := persist.NewFileSaver(filepath.Join(cfg.Persistence.DataDir, "state.json"))
		storeOpts = append(storeOpts, resource.WithSaver(saver))
	}
	store := resource.NewStore(storeOpts...)
	if cfg.Persistence.Enabled {
		if err := store.Open(); err != nil {
			logger.Warn("could not load saved state, starting empty", "error", err)
		}
	}
	server.Seed(store, cfg.Seed, logger)

	synthesizer := synth.New(nil)
	metrics := dispatch.NewMetricsObserver()

	dispatcherOpts := []dispatch.DispatcherOption{
		dispatch.WithLogger(logger),
		dispatch.WithObserver(metrics),
	}
	if cfg.Server.IncludeMeta {
		dispatcherOpts = append(dispatcherOpts, dispatch.WithMeta())
	}
	if cfg.Augment.Enabled {
		provider, perr := augment.NewHTTPProvider(augment.HTTPConfig{
			Endpoint: cfg.Augment.Endpoint,
			APIKey:   cfg.Augment.APIKey,
			Model:    cfg.Augment.Model,
		})
		if perr != nil {
			logger.Warn("augmentation disabled", "error", perr)
		} else {
			timeout := time.Duration(cfg.Augment.TimeoutSeconds) * time.Second
			dispatcherOpts = append(dispatcherOpts,
				dispatch.WithAugmenter(augment.NewAugmenter(provider, synthesizer, timeout, logger)))
			logger.Info("augmentation enabled", "provider", provider.Name(), "model", cfg.Augment.Model)
		}
	}

	d := dispatch.New(doc, store, synthesizer, validation.New(logger), dispatcherOpts...)
	srv := server.New(cfg, d, store, metrics, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("shutting down", "reason", "context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loadDocument(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*spec.Document, error) {
	im := importer.New(logger)
	switch {
	case cfg.Spec.File != "":
		return im.ImportFile(ctx, cfg.Spec.File)
	case cfg.Spec.URL != "":
		return im.ImportURL(ctx, cfg.Spec.URL)
	default:
		return nil, fmt.Errorf("no spec source: set spec.file, spec.url, or --spec")
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <spec-file>",
		Short: "Import a document and report its operations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := importer.New(nil).ImportFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d paths, %d schemas\n",
				doc.Title, doc.Version, len(doc.Paths), len(doc.Schemas))
			for _, op := range doc.Operations() {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", op.ID())
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "fauxd "+Version)
		},
	}
}
