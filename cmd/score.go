package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/bookjoin/internal/match"
)

func newScoreCmd() *cobra.Command {
	var scorer string
	var threshold float64

	cmd := &cobra.Command{
		Use:   "score <text> <text>",
		Short: "Score two title/author strings with the fuzzy matcher",
		Example: `  bookjoin score "The Hobbit J.R.R. Tolkien" "Hobbit, The Tolkien"
  bookjoin score --scorer edit "Dune Frank Herbert" "Dune Herbert"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeScore(args[0], args[1], scorer, threshold)
		},
	}

	cmd.Flags().StringVar(&scorer, "scorer", match.ScorerTokenSort, "Similarity scorer (token_sort or edit)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0.85, "Match threshold (0-1)")

	return cmd
}

func executeScore(a, b, scorerName string, threshold float64) error {
	scorer, ok := match.ScorerByName(scorerName)
	if !ok {
		return fmt.Errorf("unknown scorer: %s", scorerName)
	}

	na, nb := match.Normalize(a), match.Normalize(b)
	score := scorer(na, nb)

	fmt.Printf("A:         %q\n", na)
	fmt.Printf("B:         %q\n", nb)
	fmt.Printf("Score:     %.4f (%s)\n", score, scorerName)
	fmt.Printf("Threshold: %.4f\n", threshold)
	if match.Meets(score, threshold) {
		fmt.Println("Result:    match")
	} else {
		fmt.Println("Result:    no match")
	}
	return nil
}
