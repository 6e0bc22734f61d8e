/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ragchat-be",
	Short: "Chat backend with knowledge-base retrieval",
	Long: `ragchat-be serves a streaming chat API backed by MongoDB for
conversations and Weaviate for knowledge-base similarity search.

Subcommands:
  start    run the HTTP server
  reindex  rebuild the vector index from the document store`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config/config.yaml", "config file")
}
