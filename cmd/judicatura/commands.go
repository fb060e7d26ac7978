package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ahrav/go-judicatura/internal/application"
	"github.com/ahrav/go-judicatura/internal/matching"
)

func (c *cli) createNormalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize",
		Short: "Normalize every category feed into canonical candidates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := c.pipeline().Normalize(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
}

func (c *cli) createAssociateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "associate",
		Short: "Associate normalized candidates with judicial districts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sum, err := c.pipeline().Associate(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]int{
				"total":     sum.Total,
				"matched":   sum.Matched(),
				"exact":     sum.Exact,
				"state":     sum.State,
				"unmatched": sum.Unmatched,
			})
		},
	}
}

func (c *cli) createLookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup",
		Short: "Build the per-district candidate lookup table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := c.pipeline().Lookup(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
}

func (c *cli) createScoreCmd() *cobra.Command {
	var (
		model       string
		maxAttempts int
		sqliteDSN   string
	)
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score candidates against the evaluation rubric",
		Long: `Scores every normalized candidate with the configured model.

Results are checkpointed after every candidate. Rerunning the command
skips folios already present in the scored JSON file.

Provider keys are read from OPENROUTER_API_KEY, OPENAI_API_KEY,
ANTHROPIC_API_KEY or GOOGLE_API_KEY.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if model != "" {
				c.cfg.Scoring.Model = model
			}
			if maxAttempts > 0 {
				c.cfg.Scoring.MaxAttempts = maxAttempts
			}
			if sqliteDSN != "" {
				c.cfg.Store.SQLiteDSN = sqliteDSN
			}

			client, err := application.NewLLMClient(c.cfg.Scoring, c.metrics, nil)
			if err != nil {
				return err
			}
			sum, err := c.pipeline().Score(cmd.Context(), client)
			if err != nil {
				return err
			}
			return printJSON(cmd, sum)
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "provider/model spec, e.g. openrouter/google/gemini-2.5-flash-preview")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "override scoring.max_attempts")
	cmd.Flags().StringVar(&sqliteDSN, "sqlite", "", "mirror scores into this SQLite database")
	return cmd
}

func (c *cli) createJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join",
		Short: "Export scores joined with feed and profile fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := c.pipeline().Join(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]int{"rows": n})
		},
	}
}

func (c *cli) createMatchCmd() *cobra.Command {
	var (
		questions string
		answers   string
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Rank scored candidates against a voter's answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := c.pipeline().Match(questions, answers, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
	cmd.Flags().StringVar(&questions, "questions", "", "questionnaire JSON file")
	cmd.Flags().StringVar(&answers, "answers", "", "voter answers JSON file")
	cmd.Flags().IntVar(&limit, "limit", matching.DefaultLimit, "number of candidates to return")
	_ = cmd.MarkFlagRequired("questions")
	_ = cmd.MarkFlagRequired("answers")
	return cmd
}

func (c *cli) createConfigCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Prints the configuration after defaults, the config file and flags
are applied. With --watch the file is reloaded on every save and each
valid version is printed until the command is interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := printYAML(cmd, c.cfg); err != nil {
				return err
			}
			if !watch {
				return nil
			}

			loader, err := application.NewConfigLoader(c.configPath, application.WithConfigLogger(c.logger))
			if err != nil {
				return err
			}
			stop, err := loader.Watch(cmd.Context(), &application.Config{}, func(v any) {
				cfg := *v.(*application.Config)
				c.applyOverrides(&cfg)
				if err := printYAML(cmd, cfg); err != nil {
					c.logger.Warn("failed to print config", zap.Error(err))
				}
			})
			if err != nil {
				return err
			}
			defer stop()

			<-cmd.Context().Done()
			return nil
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "reprint the configuration whenever the file changes")
	return cmd
}
