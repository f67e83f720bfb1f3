package main

import (
	"github.com/spf13/cobra"

	"obesitycheck/app"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port int
	var watch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the prediction form, the JSON API and the live preview.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Http.Port = port
			}
			if cmd.Flags().Changed("watch") {
				cfg.Artifacts.Watch = watch
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := app.NewLogger(cfg)
			defer logger.Sync()
			a, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Serve(cmd.Context())
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP port, overrides http.port")
	cmd.Flags().BoolVar(&watch, "watch", false, "Reload artifacts when their files change")
	return cmd
}
