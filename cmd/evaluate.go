package cmd

import (
	"errors"
	"log"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/answer-grader/internal/evaluation"
	"github.com/spigell/answer-grader/internal/logger"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Grade a single answer",
	Run: func(cmd *cobra.Command, _ []string) {
		evaluate(cmd)
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringP("question", "q", "", "interview question")
	evaluateCmd.Flags().StringP("answer", "a", "", "candidate answer")
	evaluateCmd.Flags().StringP("role", "r", "", "role whose keywords are added to coverage (e.g. go, java, mern)")
	evaluateCmd.Flags().String("reference", "", "reference answer used instead of a generated one")
	evaluateCmd.Flags().StringP("output", "o", outputJSON, "output format: json or yaml")
}

func evaluate(cmd *cobra.Command) {
	ctx := cmd.Context()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	req, err := evaluationRequest(cmd, promptInput)
	if err != nil {
		logger.Fatal("reading input", zap.Error(err))
	}

	comps, err := buildComponents(ctx, config, logger)
	if err != nil {
		logger.Fatal("building components", zap.Error(err))
	}
	defer comps.Close(logger)

	result, err := comps.engine.Evaluate(ctx, req)
	if err != nil {
		logger.Fatal("evaluating the answer", zap.Error(err))
	}

	output, _ := cmd.Flags().GetString("output")
	if err := writeOutput(os.Stdout, output, result); err != nil {
		logger.Fatal("writing the result", zap.Error(err))
	}
}

// evaluationRequest reads the flags and asks for a missing question or
// answer. An answer may legitimately be blank, so only the question is
// required to be non-empty after prompting.
func evaluationRequest(cmd *cobra.Command, ask func(label string) (string, error)) (evaluation.Request, error) {
	flags := cmd.Flags()
	question, _ := flags.GetString("question")
	answer, _ := flags.GetString("answer")
	role, _ := flags.GetString("role")
	reference, _ := flags.GetString("reference")

	var err error
	if strings.TrimSpace(question) == "" {
		if question, err = ask("Question"); err != nil {
			return evaluation.Request{}, err
		}
	}
	if strings.TrimSpace(question) == "" {
		return evaluation.Request{}, errors.New("question is required")
	}

	if !flags.Changed("answer") {
		if answer, err = ask("Answer"); err != nil {
			return evaluation.Request{}, err
		}
	}

	return evaluation.Request{
		Question:        question,
		Answer:          answer,
		Role:            role,
		ReferenceAnswer: reference,
	}, nil
}

func promptInput(label string) (string, error) {
	prompt := promptui.Prompt{Label: label}
	return prompt.Run()
}
