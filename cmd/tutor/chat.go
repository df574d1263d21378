package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-tutor/internal/platform/cache"
	"github.com/p-n-ai/pai-tutor/internal/platform/config"
	"github.com/p-n-ai/pai-tutor/internal/platform/logging"
	"github.com/p-n-ai/pai-tutor/internal/report"
	"github.com/p-n-ai/pai-tutor/internal/settings"
	"github.com/p-n-ai/pai-tutor/internal/tutor"
)

const (
	defaultTranscriptPath = "chat_log.txt"
	defaultExportPath     = "progress.xlsx"
)

type chatFlags struct {
	tutorial     string
	settingsPath string
	profile      string
	cacheURL     string
}

func newChatCmd(opts *options, cfg *config.Config) *cobra.Command {
	f := &chatFlags{}
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start a tutoring conversation in the terminal",
		Long: `Starts a conversation with the tutor. Besides the tutor's own
keywords (topics, next, quiz, progress) the terminal understands:

  /theme [dark|light]  switch or toggle the color theme
  /save [path]         save the conversation (default chat_log.txt)
  /export [path]       export progress as a spreadsheet (default progress.xlsx)
  /help                show help`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), config.LogConfig{Level: opts.logLevel, Format: "text"}))

			cat, err := opts.catalog(f.tutorial)
			if err != nil {
				return err
			}
			norm, err := newNormalizer()
			if err != nil {
				return fmt.Errorf("preparing normalizer: %w", err)
			}
			tut, err := tutor.NewTutorial(cat, norm)
			if err != nil {
				return err
			}

			store, closeStore, err := openSettings(cmd.Context(), f)
			if err != nil {
				return err
			}
			defer closeStore()

			c := &chatLoop{
				in:      cmd.InOrStdin(),
				out:     cmd.OutOrStdout(),
				session: tut.NewSession(),
				store:   store,
			}
			return c.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&f.tutorial, "tutorial", "t", cfg.Curriculum.DefaultTutorial, "tutorial to start (python, csharp, cpp)")
	cmd.Flags().StringVar(&f.settingsPath, "settings", cfg.Settings.Path, "settings file")
	cmd.Flags().StringVar(&f.profile, "profile", cfg.Settings.Profile, "settings profile when a cache is configured")
	cmd.Flags().StringVar(&f.cacheURL, "cache-url", cfg.Cache.URL, "redis URL for shared settings")
	return cmd
}

// openSettings picks the shared Redis store when a cache URL is given and
// falls back to the settings file otherwise.
func openSettings(ctx context.Context, f *chatFlags) (settings.Store, func(), error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if f.cacheURL != "" {
		c, err := cache.New(ctx, f.cacheURL)
		if err == nil {
			return settings.NewRedisStore(c.Client, f.profile), func() { _ = c.Close() }, nil
		}
		slog.Warn("cache unavailable, using settings file", "error", err)
	}
	path := f.settingsPath
	if path == "" {
		path = "settings.json"
	}
	return settings.NewFileStore(path), func() {}, nil
}

type chatLoop struct {
	in      io.Reader
	out     io.Writer
	session *tutor.Session
	store   settings.Store

	theme theme
	log   []report.Line
}

func (c *chatLoop) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c.theme = newTheme(c.out, c.store.Load(ctx).DarkMode)

	c.agentSays(c.session.Greet())

	scanner := bufio.NewScanner(c.in)
	for {
		fmt.Fprint(c.out, c.theme.learner.Render(report.SpeakerLearner+": "))
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			c.command(ctx, line)
			continue
		}
		c.learnerSaid(line)

		reply := c.session.Respond(line)
		c.agentSays(reply.Text)
		if reply.Exit {
			return nil
		}
	}
	fmt.Fprintln(c.out)
	return scanner.Err()
}

func (c *chatLoop) learnerSaid(text string) {
	c.log = append(c.log, report.Line{Speaker: report.SpeakerLearner, Text: text})
}

func (c *chatLoop) agentSays(text string) {
	c.log = append(c.log, report.Line{Speaker: report.SpeakerAgent, Text: text})
	fmt.Fprintf(c.out, "%s %s\n\n", c.theme.agent.Render(report.SpeakerAgent+":"), text)
}

func (c *chatLoop) notice(format string, args ...any) {
	fmt.Fprintln(c.out, c.theme.notice.Render(fmt.Sprintf(format, args...)))
}

// command runs a slash command. Tutoring commands are part of the
// conversation and go to the chat log; /theme, /save and /export do not.
func (c *chatLoop) command(ctx context.Context, line string) {
	fields := strings.Fields(line)
	arg := strings.Join(fields[1:], " ")

	name := strings.ToLower(fields[0])
	switch name {
	case "/help", "/topics", "/next", "/quiz", "/progress":
		c.learnerSaid(line)
	}

	switch name {
	case "/help":
		c.agentSays(c.session.Help())
	case "/topics":
		c.agentSays(c.session.ListTopics())
	case "/next":
		c.agentSays(c.session.NextSubtopic())
	case "/quiz":
		c.agentSays(c.session.StartQuiz())
	case "/progress":
		c.agentSays(c.session.ShowProgress())
	case "/theme":
		c.setTheme(ctx, arg)
	case "/save":
		c.save(orDefault(arg, defaultTranscriptPath))
	case "/export":
		c.export(orDefault(arg, defaultExportPath))
	default:
		c.notice("Unknown command %s. Try /help.", fields[0])
	}
}

func (c *chatLoop) setTheme(ctx context.Context, arg string) {
	dark := !c.theme.dark
	switch strings.ToLower(arg) {
	case "dark":
		dark = true
	case "light":
		dark = false
	case "":
	default:
		c.notice("Unknown theme %q. Use dark or light.", arg)
		return
	}

	c.theme = newTheme(c.out, dark)
	if err := c.store.Save(ctx, settings.Settings{DarkMode: dark}); err != nil {
		slog.Error("failed to save settings", "error", err)
		c.notice("Theme changed to %s but could not be saved.", c.theme.name())
		return
	}
	c.notice("Theme changed to %s.", c.theme.name())
}

func (c *chatLoop) save(path string) {
	err := writeFile(path, func(w io.Writer) error {
		return report.WriteTranscript(w, c.log)
	})
	if err != nil {
		c.notice("Failed to save chat log: %v", err)
		return
	}
	c.notice("Chat log has been saved to %s", path)
}

func (c *chatLoop) export(path string) {
	title := c.session.Catalog().Name + " progress"
	err := writeFile(path, func(w io.Writer) error {
		return report.WriteProgressXLSX(w, title, c.session.Progress().Snapshot())
	})
	if err != nil {
		c.notice("Failed to export progress: %v", err)
		return
	}
	c.notice("Progress has been exported to %s", path)
}

// writeFile creates path and fills it with write. A failed close is
// reported like a failed write.
func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
