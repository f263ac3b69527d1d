package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"batchdigest/internal/config"
	"batchdigest/internal/report"
)

// ConfigureLogging sets up logrus for command line use: text output with
// full timestamps on stderr.
func ConfigureLogging() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stderr)
	log.SetLevel(log.InfoLevel)
}

// app carries state shared by every subcommand. cfg is populated by the
// root command's PersistentPreRunE; subcommands add their own flags to
// params for the --summary printout.
type app struct {
	v         *viper.Viper
	configDir string
	cfg       config.Config
	params    *report.Summary
}

// RootCmd is the root Cobra command that gets called from the main func.
// All other sub-commands should be registered here.
func RootCmd() *cobra.Command {
	a := &app{v: viper.New(), params: report.NewSummary()}
	cmd := &cobra.Command{
		Use:           "batchdigest",
		Short:         "batchdigest reduces large line-oriented inputs in parallel.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&a.configDir, "config", "", "Directory holding batchdigest.yaml")
	config.AddFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		histogramCmd(a),
		countCmd(a),
		freqCmd(a),
		lengthsCmd(a),
	)

	return cmd
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.v, cmd.Flags(), a.configDir)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		config.LogValidationErrors(log.StandardLogger(), err)
		return err
	}
	if cfg.Verbose {
		log.SetLevel(log.DebugLevel)
	}
	a.cfg = cfg
	return nil
}
