package cmd

import (
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/answer-grader/internal/logger"
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe FILE",
	Short: "Transcribe a recorded answer and report delivery metrics",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		transcribe(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(transcribeCmd)

	transcribeCmd.Flags().String("reference", "", "script the speaker read, enables word error rate")
	transcribeCmd.Flags().StringP("output", "o", outputJSON, "output format: json or yaml")
}

func transcribe(cmd *cobra.Command, path string) {
	ctx := cmd.Context()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	input, err := os.ReadFile(path)
	if err != nil {
		logger.Fatal("reading the audio file", zap.Error(err))
	}

	comps, err := buildComponents(ctx, config, logger)
	if err != nil {
		logger.Fatal("building components", zap.Error(err))
	}
	defer comps.Close(logger)

	reference, _ := cmd.Flags().GetString("reference")
	result, err := comps.speech.Transcribe(ctx, input, reference)
	if err != nil {
		logger.Fatal("transcription failed", zap.Error(err))
	}

	output, _ := cmd.Flags().GetString("output")
	if err := writeOutput(os.Stdout, output, result); err != nil {
		logger.Fatal("writing the result", zap.Error(err))
	}
}
