package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-tutor/curricula"
	"github.com/p-n-ai/pai-tutor/internal/curriculum"
	"github.com/p-n-ai/pai-tutor/internal/platform/config"
)

func newTutorialsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tutorials",
		Short: "List the available tutorials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := opts.loader()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, c := range loader.Catalogs() {
				fmt.Fprintf(out, "%-8s %s (%d topics)\n", c.ID, c.Name, len(c.Topics))
			}
			return nil
		},
	}
}

func newTopicsCmd(opts *options, cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "topics [tutorial]",
		Short: "Show the topic tree of a tutorial",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := cfg.Curriculum.DefaultTutorial
			if len(args) == 1 {
				name = args[0]
			}
			cat, err := opts.catalog(name)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", cat.Name)
			for i, t := range cat.Topics {
				quiz := ""
				if n := len(t.Quiz); n > 0 {
					quiz = fmt.Sprintf(" [%d quiz questions]", n)
				}
				fmt.Fprintf(out, "%2d. %s%s\n", i+1, t.Name, quiz)
				for _, s := range t.Subtopics {
					marker := "-"
					if s.Content.Value() == nil {
						marker = "?"
					}
					fmt.Fprintf(out, "      %s %s\n", marker, s.Name)
				}
			}
			return nil
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [dir]",
		Short: "Validate catalog YAML files",
		Long:  "Checks every .yaml/.yml file under dir (default: the built-in catalogs) against the catalog schema.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var fsys fs.FS = curricula.FS
			if len(args) == 1 {
				fsys = os.DirFS(args[0])
			}
			return validateFS(cmd, fsys)
		},
	}
}

var errInvalidCatalogs = errors.New("invalid catalogs found")

func validateFS(cmd *cobra.Command, fsys fs.FS) error {
	out := cmd.OutOrStdout()
	checked, failed := 0, 0

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(p)) {
		case ".yaml", ".yml":
		default:
			return nil
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		checked++
		if err := curriculum.Validate(data); err != nil {
			failed++
			fmt.Fprintf(out, "FAIL %s\n", p)
			var verr *curriculum.ValidationError
			if errors.As(err, &verr) {
				for _, problem := range verr.Problems {
					fmt.Fprintf(out, "     %s\n", problem)
				}
			} else {
				fmt.Fprintf(out, "     %v\n", err)
			}
			return nil
		}
		fmt.Fprintf(out, "ok   %s\n", p)
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking catalogs: %w", err)
	}

	fmt.Fprintf(out, "%d checked, %d invalid\n", checked, failed)
	if failed > 0 {
		return errInvalidCatalogs
	}
	return nil
}
