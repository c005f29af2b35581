package main

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var extractCircularID string

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract compliance impacts from scraped circulars",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Extractor.Run(ctx, extractCircularID)
		if err != nil {
			return eris.Wrap(err, "extract")
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal result")
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractCircularID, "circular", "", "extract a single circular by ID (default: batch of scraped circulars)")
	rootCmd.AddCommand(extractCmd)
}
