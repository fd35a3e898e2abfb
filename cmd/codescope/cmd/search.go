package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	var (
		topK   int
		root   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the index with a natural-language query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := newEngine([]string{root})
			if err != nil {
				return err
			}
			defer eng.Close()

			query := strings.Join(args, " ")
			results, err := eng.Search(cmd.Context(), query, topK)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}

			if len(results) == 0 {
				fmt.Println("No results.")
				return nil
			}
			for i, r := range results {
				fmt.Printf("%2d. %-8s %-30s %s:%d-%d  (%.3f)\n",
					i+1, r.Kind, r.QualifiedName, r.File, r.StartLine, r.EndLine, r.Score)
				if r.CodePreview != "" {
					fmt.Printf("    %s\n", firstLine(r.CodePreview))
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Maximum number of results (default from config)")
	cmd.Flags().StringVar(&root, "root", ".", "Source tree to search")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit results as JSON")
	return cmd
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
