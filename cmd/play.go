package cmd

import (
	"fmt"
	"io"
	"math/rand"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"nounfill-go/internal/api"
	"nounfill-go/internal/config"
	"nounfill-go/internal/journal"
	"nounfill-go/internal/logger"
	"nounfill-go/internal/playback"
	"nounfill-go/internal/session"
	"nounfill-go/internal/tui"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Start an interactive session (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlay(cmd)
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The terminal belongs to the UI, so logs go to a file or nowhere.
	var out io.Writer = io.Discard
	if cfg.Log.File != "" {
		f, err := logger.OpenFile(cfg.Log.File)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	log, err := logger.New(cfg, out)
	if err != nil {
		return err
	}

	client, err := api.NewClient(cfg.Backend, log)
	if err != nil {
		return err
	}
	cache, err := playback.NewCache(cfg.Playback.CacheDir, client)
	if err != nil {
		return err
	}
	defer cache.Close()

	j, err := journal.Open(cfg.Journal.DSN)
	if err != nil {
		return err
	}
	defer j.Close()

	policy, err := session.ParseMatchPolicy(cfg.Session.MatchPolicy)
	if err != nil {
		return err
	}

	m := tui.New(ctx, tui.Options{
		Backend: client,
		Audio:   cache,
		Player:  newPlayer(cfg.Playback),
		Journal: j,
		Log:     log,
		Session: session.Rules{
			MaxAttempts: cfg.Session.MaxAttempts,
			RevealAfter: cfg.Session.RevealAfterErrors,
			Policy:      policy,
		},
		Playback: playback.Rules{
			SlowdownAfter: cfg.Playback.SlowdownAfter,
			RevealAfter:   cfg.Playback.RevealAfter,
		},
		MasteryThreshold: cfg.Session.MasteryThreshold,
		AdvanceDelay:     cfg.Session.AdvanceDelay,
		ReplayDelay:      cfg.Playback.ReplayDelay,
		Rand:             rand.New(rand.NewSource(time.Now().UnixNano())),
	})

	log.WithField("backend", cfg.Backend.BaseURL).Info("session started")
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run session: %w", err)
	}

	sum := m.Summary()
	mastered, total := m.Mastered()
	log.WithFields(logrus.Fields{
		"attempts": sum.Attempts,
		"correct":  sum.Correct,
		"mastered": mastered,
	}).Info("session ended")
	fmt.Fprintf(cmd.OutOrStdout(), "Mastered %d/%d titles | %d attempts, %d correct | %d solved, %d exhausted\n",
		mastered, total, sum.Attempts, sum.Correct, sum.Solved, sum.Exhausted)
	return nil
}

func newPlayer(cfg config.Playback) playback.Player {
	if !cfg.Enabled {
		return playback.Disabled{}
	}
	return playback.NewCommandPlayer(cfg.Command, cfg.Args)
}
