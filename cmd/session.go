package cmd

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spigell/answer-grader/internal/logger"
	"github.com/spigell/answer-grader/internal/session"
)

var sessionCmd = &cobra.Command{
	Use:   "session FILE",
	Short: "Summarize a practice session from a YAML or JSON file of graded answers",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		summarizeSession(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)

	sessionCmd.Flags().StringP("role", "r", "", "role of the session, overrides the file")
	sessionCmd.Flags().StringP("output", "o", outputJSON, "output format: json or yaml")
}

func summarizeSession(cmd *cobra.Command, path string) {
	ctx := cmd.Context()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	req, err := readSession(path)
	if err != nil {
		logger.Fatal("reading the session", zap.Error(err))
	}
	if role, _ := cmd.Flags().GetString("role"); strings.TrimSpace(role) != "" {
		req.Role = role
	}

	comps, err := buildComponents(ctx, config, logger)
	if err != nil {
		logger.Fatal("building components", zap.Error(err))
	}
	defer comps.Close(logger)

	summary, err := comps.sessions.Summarize(ctx, req)
	if err != nil {
		logger.Fatal("summarizing the session", zap.Error(err))
	}

	output, _ := cmd.Flags().GetString("output")
	if err := writeOutput(os.Stdout, output, summary); err != nil {
		logger.Fatal("writing the result", zap.Error(err))
	}
}

// readSession decodes a session file. JSON is accepted as a YAML subset.
func readSession(path string) (session.Request, error) {
	var req session.Request

	data, err := os.ReadFile(path)
	if err != nil {
		return req, err
	}
	if err := yaml.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("parsing session file %q: %w", path, err)
	}
	return req, nil
}
