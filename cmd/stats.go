package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arjunm/recallmap/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show assessment statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return fmt.Errorf("resolve database path: %w", err)
		}

		s, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		ctx := context.Background()
		sum, err := s.EventRepo().Summary(ctx)
		if err != nil {
			return fmt.Errorf("query summary: %w", err)
		}

		if sum.SessionsStarted == 0 {
			fmt.Println("No assessment sessions recorded yet.")
			return nil
		}

		sep := strings.Repeat("─", 44)

		fmt.Println("Sessions")
		fmt.Println(sep)
		fmt.Printf("%-24s %6d\n", "Started", sum.SessionsStarted)
		fmt.Printf("%-24s %6d\n", "Completed", sum.SessionsCompleted)
		fmt.Printf("%-24s %6d\n", "Exited early", sum.SessionsExited)
		if !sum.LastSessionAt.IsZero() {
			fmt.Printf("%-24s %s\n", "Last session",
				sum.LastSessionAt.Local().Format("2006-01-02 15:04"))
		}

		fmt.Println()
		fmt.Println("Answers")
		fmt.Println(sep)
		fmt.Printf("%-24s %6d\n", "Graded", sum.Answers)
		fmt.Printf("%-24s %6d\n", "Correct", sum.Correct)
		fmt.Printf("%-24s %5.0f%%\n", "Accuracy", sum.Accuracy()*100)
		fmt.Printf("%-24s %6d\n", "Hints served", sum.Hints)
		fmt.Printf("%-24s %6d\n", "Misconceptions", sum.Misconceptions)

		if sum.LLMRequests > 0 {
			fmt.Println()
			fmt.Println("LLM")
			fmt.Println(sep)
			fmt.Printf("%-24s %6d\n", "Requests", sum.LLMRequests)
			fmt.Printf("%-24s %6d\n", "Failures", sum.LLMFailures)
		}

		missed, err := s.EventRepo().MissedNodeTypes(ctx, 5)
		if err != nil {
			return fmt.Errorf("query missed node types: %w", err)
		}
		if len(missed) > 0 {
			fmt.Println()
			fmt.Println("Most-missed node types")
			fmt.Println(sep)
			for _, m := range missed {
				fmt.Printf("%-24s %6d\n", m.NodeType, m.Misses)
			}
		}
		return nil
	},
}
