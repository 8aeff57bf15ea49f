package cmd

import (
	"context"
	"fmt"
	"io"
	"math/rand"

	"github.com/spf13/cobra"

	"nounfill-go/internal/progress"
	"nounfill-go/internal/session"
)

var checkCmd = &cobra.Command{
	Use:   "check --title TITLE NOUN...",
	Short: "Submit one set of answers for a title and print the verdict",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		if title == "" {
			return fmt.Errorf("--title is required")
		}

		cfg, _, client, err := setup()
		if err != nil {
			return err
		}
		policy, err := session.ParseMatchPolicy(cfg.Session.MatchPolicy)
		if err != nil {
			return err
		}
		rules := session.Rules{
			MaxAttempts: cfg.Session.MaxAttempts,
			RevealAfter: cfg.Session.RevealAfterErrors,
			Policy:      policy,
		}
		return checkOnce(cmd.Context(), cmd.OutOrStdout(), client, rules, title, args)
	},
}

func init() {
	checkCmd.Flags().String("title", "", "title of the sentence to answer")
	rootCmd.AddCommand(checkCmd)
}

type sentenceChecker interface {
	Sentence(ctx context.Context, title string) (session.Sentence, error)
	Check(ctx context.Context, sentence string, answers []string) (session.Verdict, error)
}

// checkOnce drives a controller through one load and one submission.
func checkOnce(ctx context.Context, w io.Writer, b sentenceChecker, rules session.Rules, title string, answers []string) error {
	ctrl := session.NewController(rules, progress.New(0), rand.New(rand.NewSource(1)))

	t := ctrl.BeginTitle(title)
	s, err := b.Sentence(ctx, t.Title)
	if err != nil {
		ctrl.Fail(t)
		msg, _ := ctrl.Message()
		return fmt.Errorf("%s: %w", msg, err)
	}
	ctrl.Complete(t, s)

	a := ctrl.Active()
	if len(answers) != a.NounCount {
		return fmt.Errorf("%q has %d nouns, got %d answers", a.Title, a.NounCount, len(answers))
	}
	for i, ans := range answers {
		ctrl.SetAnswer(i, ans)
	}

	sub, err := ctrl.PrepareSubmit()
	if err != nil {
		msg, _ := ctrl.Message()
		return fmt.Errorf("%s: %w", msg, err)
	}
	v, err := b.Check(ctx, sub.Sentence, sub.Answers)
	if err != nil {
		ctrl.FailSubmit(sub)
		msg, _ := ctrl.Message()
		return fmt.Errorf("%s: %w", msg, err)
	}
	ctrl.ApplyVerdict(sub, v)

	a = ctrl.Active()
	for i, ans := range sub.Answers {
		mark := "x"
		if a.InputStatus[i] {
			mark = "ok"
		}
		fmt.Fprintf(w, "%d. %-20s %s\n", i+1, ans, mark)
	}
	if v.IsCorrect {
		fmt.Fprintln(w, "Correct!")
	} else {
		fmt.Fprintln(w, "Incorrect.")
	}
	return nil
}
