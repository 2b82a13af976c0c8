package cmd

import (
	"errors"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/answer-grader/internal/logger"
	"github.com/spigell/answer-grader/internal/questions"
)

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Generate interview questions for a role",
	Run: func(cmd *cobra.Command, _ []string) {
		generateQuestions(cmd)
	},
}

func init() {
	rootCmd.AddCommand(questionsCmd)

	questionsCmd.Flags().StringP("role", "r", "", "role to ask about (e.g. go, java, mern)")
	questionsCmd.Flags().IntP("count", "n", questions.DefaultCount, "number of questions")
	questionsCmd.Flags().String("job-description", "", "job description whose keywords steer the questions")
	questionsCmd.Flags().StringP("output", "o", outputJSON, "output format: json or yaml")
}

func generateQuestions(cmd *cobra.Command) {
	ctx := cmd.Context()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	req, err := questionRequest(cmd, promptInput)
	if err != nil {
		logger.Fatal("reading input", zap.Error(err))
	}

	comps, err := buildComponents(ctx, config, logger)
	if err != nil {
		logger.Fatal("building components", zap.Error(err))
	}
	defer comps.Close(logger)

	result, err := comps.questions.Generate(ctx, req)
	if err != nil {
		logger.Fatal("generating questions", zap.Error(err))
	}

	output, _ := cmd.Flags().GetString("output")
	if err := writeOutput(os.Stdout, output, result); err != nil {
		logger.Fatal("writing the result", zap.Error(err))
	}
}

// questionRequest reads the flags and asks for the role when it is missing.
func questionRequest(cmd *cobra.Command, ask func(label string) (string, error)) (questions.Request, error) {
	flags := cmd.Flags()
	role, _ := flags.GetString("role")
	count, _ := flags.GetInt("count")
	jobDescription, _ := flags.GetString("job-description")

	var err error
	if strings.TrimSpace(role) == "" {
		if role, err = ask("Role"); err != nil {
			return questions.Request{}, err
		}
	}
	if strings.TrimSpace(role) == "" {
		return questions.Request{}, errors.New("role is required")
	}

	return questions.Request{
		Role:           role,
		Count:          count,
		JobDescription: jobDescription,
	}, nil
}
