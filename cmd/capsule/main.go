// Command capsule is a terminal front-end for a Code Capsule server.
//
//	capsule list --search hook --tag react
//	capsule create --description "Counter" --language javascript --code-file counter.js --tag react
//	capsule tag add <id> hooks
//	capsule delete <id>
package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/code-capsule/internal/client"
	"github.com/sakif/code-capsule/internal/model"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLibrary reads the config file, applies flag overrides and loads the
// collection from the server.
func newLibrary(cmd *cobra.Command) (*client.Library, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := client.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if cmd.Flags().Changed("server") {
		cfg.Server, _ = cmd.Flags().GetString("server")
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout.Duration, _ = cmd.Flags().GetDuration("timeout")
	}

	lib := client.NewLibrary(client.New(cfg.Server, cfg.Timeout.Duration))
	if err := lib.Refresh(cmd.Context()); err != nil {
		return nil, err
	}
	return lib, nil
}

var rootCmd = &cobra.Command{
	Use:          "capsule",
	Short:        "Save, tag and search code snippets",
	SilenceUsage: true,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List snippets, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		search, _ := cmd.Flags().GetString("search")
		tags, _ := cmd.Flags().GetStringSlice("tag")

		lib, err := newLibrary(cmd)
		if err != nil {
			return err
		}

		snippets := lib.Filter(search, tags)
		if len(snippets) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No snippets found.")
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tLANGUAGE\tMODIFIED\tTAGS\tDESCRIPTION")
		for _, s := range snippets {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				s.ID,
				client.LanguageLabel(s.Language),
				s.ModifiedAt.Local().Format(time.DateTime),
				strings.Join(s.Tags, ","),
				truncate(s.Description, 60),
			)
		}
		return tw.Flush()
	},
}

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List every tag in use",
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := newLibrary(cmd)
		if err != nil {
			return err
		}
		for _, tag := range lib.Tags() {
			fmt.Fprintln(cmd.OutOrStdout(), tag)
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one snippet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := newLibrary(cmd)
		if err != nil {
			return err
		}
		s, ok := lib.Get(args[0])
		if !ok {
			return fmt.Errorf("%w: %s", client.ErrUnknownSnippet, args[0])
		}
		printSnippet(cmd.OutOrStdout(), s)
		return nil
	},
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Save a new snippet",
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")
		language, _ := cmd.Flags().GetString("language")
		codeFile, _ := cmd.Flags().GetString("code-file")
		tags, _ := cmd.Flags().GetStringSlice("tag")

		code, err := readCode(cmd, codeFile)
		if err != nil {
			return err
		}

		lib, err := newLibrary(cmd)
		if err != nil {
			return err
		}

		created, err := lib.Create(cmd.Context(), client.FormData{
			Code:        code,
			Description: description,
			Language:    language,
			Tags:        normalizeTags(tags),
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", created.ID)
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change a snippet's code, description or tags",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := newLibrary(cmd)
		if err != nil {
			return err
		}
		current, ok := lib.Get(args[0])
		if !ok {
			return fmt.Errorf("%w: %s", client.ErrUnknownSnippet, args[0])
		}

		// Start from the stored values so the form validates as a whole.
		form := client.FormData{
			Code:        current.Code,
			Description: current.Description,
			Language:    current.Language,
			Tags:        current.Tags,
		}
		if cmd.Flags().Changed("description") {
			form.Description, _ = cmd.Flags().GetString("description")
		}
		if cmd.Flags().Changed("code-file") {
			path, _ := cmd.Flags().GetString("code-file")
			if form.Code, err = readCode(cmd, path); err != nil {
				return err
			}
		}
		if cmd.Flags().Changed("tag") {
			tags, _ := cmd.Flags().GetStringSlice("tag")
			form.Tags = normalizeTags(tags)
		}

		updated, err := lib.Update(cmd.Context(), args[0], form)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", updated.ID)
		return nil
	},
}

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Add or remove tags",
}

var tagAddCmd = &cobra.Command{
	Use:   "add <id> <tag>...",
	Short: "Append tags to a snippet",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTagUpdate(cmd, args, model.OperationAdd)
	},
}

var tagRemoveCmd = &cobra.Command{
	Use:   "remove <id> <tag>...",
	Short: "Keep only the listed tags that a snippet already has",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTagUpdate(cmd, args, model.OperationRemove)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a snippet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := newLibrary(cmd)
		if err != nil {
			return err
		}
		if err := lib.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	},
}

func runTagUpdate(cmd *cobra.Command, args []string, op model.Operation) error {
	lib, err := newLibrary(cmd)
	if err != nil {
		return err
	}

	id, tags := args[0], normalizeTags(args[1:])
	var updated *model.Snippet
	if op == model.OperationAdd {
		updated, err = lib.AddTags(cmd.Context(), id, tags)
	} else {
		updated, err = lib.RemoveTags(cmd.Context(), id, tags)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s tags: %s\n", updated.ID, strings.Join(updated.Tags, ", "))
	return nil
}

// readCode reads snippet text from path, or stdin when path is "-".
func readCode(cmd *cobra.Command, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("--code-file is required (use - for stdin)")
	}
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(cmd.InOrStdin())
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading code: %w", err)
	}
	return string(b), nil
}

func normalizeTags(in []string) []string {
	tags := []string{}
	for _, t := range in {
		tags = client.AddTag(tags, t)
	}
	return tags
}

func printSnippet(w io.Writer, s model.Snippet) {
	fmt.Fprintf(w, "%s\n", s.Description)
	fmt.Fprintf(w, "id:       %s\n", s.ID)
	fmt.Fprintf(w, "language: %s (%s)\n", client.LanguageLabel(s.Language), client.HighlightMode(s.Language))
	fmt.Fprintf(w, "tags:     %s\n", strings.Join(s.Tags, ", "))
	fmt.Fprintf(w, "created:  %s\n", s.CreatedAt.Local().Format(time.DateTime))
	fmt.Fprintf(w, "modified: %s\n\n", s.ModifiedAt.Local().Format(time.DateTime))
	fmt.Fprintln(w, s.Code)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func init() {
	rootCmd.PersistentFlags().String("server", client.DefaultServer, "API base URL")
	rootCmd.PersistentFlags().String("config", client.DefaultConfigPath(), "Path to config.toml")
	rootCmd.PersistentFlags().Duration("timeout", client.DefaultTimeout, "Per-request timeout")

	listCmd.Flags().StringP("search", "s", "", "Case-insensitive text in description or code")
	listCmd.Flags().StringSliceP("tag", "t", nil, "Only snippets carrying every given tag")

	createCmd.Flags().StringP("description", "d", "", "What the snippet does")
	createCmd.Flags().StringP("language", "l", client.DefaultLanguage, "Snippet language")
	createCmd.Flags().StringP("code-file", "f", "", "File holding the code (- for stdin)")
	createCmd.Flags().StringSliceP("tag", "t", nil, "Tag (repeatable)")

	editCmd.Flags().StringP("description", "d", "", "New description")
	editCmd.Flags().StringP("code-file", "f", "", "File holding the new code (- for stdin)")
	editCmd.Flags().StringSliceP("tag", "t", nil, "Replacement tags (repeatable)")

	tagCmd.AddCommand(tagAddCmd)
	tagCmd.AddCommand(tagRemoveCmd)

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(tagCmd)
	rootCmd.AddCommand(deleteCmd)
}
