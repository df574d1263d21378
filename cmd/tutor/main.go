// Command tutor runs a tutoring conversation in the terminal and inspects
// curriculum catalogs.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-tutor/curricula"
	"github.com/p-n-ai/pai-tutor/internal/curriculum"
	"github.com/p-n-ai/pai-tutor/internal/matcher"
	"github.com/p-n-ai/pai-tutor/internal/platform/config"
)

// newNormalizer builds the matcher's text pipeline. Tests swap it for a
// dictionary-free one.
var newNormalizer = matcher.NewEnglishNormalizer

type options struct {
	curriculumPath string
	logLevel       string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg, err := config.Load()
	if err != nil {
		cfg = &config.Config{}
	}
	opts := &options{}

	root := &cobra.Command{
		Use:   "tutor",
		Short: "A rule-based programming tutor",
		Long: `tutor walks you through programming tutorials topic by topic,
answers questions by matching them against the curriculum and quizzes you
on what you learned.

Run without arguments to start a chat with the default tutorial.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.curriculumPath, "curricula", cfg.Curriculum.Path,
		"directory of catalog YAML files (default: built-in catalogs)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")

	chat := newChatCmd(opts, cfg)
	root.RunE = chat.RunE
	root.Flags().AddFlagSet(chat.Flags())

	root.AddCommand(
		chat,
		newTutorialsCmd(opts),
		newTopicsCmd(opts, cfg),
		newValidateCmd(),
	)
	return root
}

func (o *options) loader() (*curriculum.Loader, error) {
	if o.curriculumPath == "" {
		return curriculum.NewLoader(curricula.FS)
	}
	return curriculum.NewLoaderFromDir(o.curriculumPath)
}

func (o *options) catalog(name string) (*curriculum.Catalog, error) {
	loader, err := o.loader()
	if err != nil {
		return nil, err
	}
	cat, err := loader.Find(name)
	if err != nil {
		return nil, fmt.Errorf("tutorial %q: %w", name, err)
	}
	return cat, nil
}
