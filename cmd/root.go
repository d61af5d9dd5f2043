package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var pipelinePath string

var rootCmd = &cobra.Command{
	Use:   "eigenface",
	Short: "Eigenface face recognition from a handful of training photos",
	Long: `Eigenface builds a principal-component model of each subject's face from
a few training crops and recognizes unseen crops by the subject whose model
reconstructs them with the lowest mean squared error.

Photos live under <data_dir>/<subject>/, crops under <data_dir>/<subject>/faces/.
Subjects and their train/test split come from the pipeline file
(EIGENFACE_PIPELINE, default eigenface.yaml).`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&pipelinePath, "pipeline", "", "Pipeline file (overrides EIGENFACE_PIPELINE)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
