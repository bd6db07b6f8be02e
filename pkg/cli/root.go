// Package cli provides the command-line interface for Forge
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile     string
	projectRoot string
	verbosity   string
	version     string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "forge",
	Short: "Release-matrix builder for single-binary CLI tools",
	Long: `🔨 Forge - Build, verify, and package a matrix of platform-specific binaries

Forge expands your enabled platforms and runtime versions into a build
matrix, drives the external packaging tool for every combination, hashes
each artifact, and records a manifest so later verify and package phases
can reconcile against it.`,

	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("🔨 Forge v%s\n", version)
			return
		}
		cmd.Help()
	},
}

// Execute runs the CLI
func Execute(v string) error {
	version = v

	initializeRootCommand()

	return rootCmd.Execute()
}

// initializeRootCommand sets up the root command and its flags.
// Explicit initialization instead of init() keeps this testable.
func initializeRootCommand() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: forge.config.json)")
	rootCmd.PersistentFlags().StringVar(&projectRoot, "root", ".", "project root directory")
	rootCmd.PersistentFlags().StringVarP(&verbosity, "verbosity", "v", "info", "log level (debug, info, warn, error)")

	rootCmd.Flags().Bool("version", false, "Print version information and quit")

	rootCmd.AddCommand(newBuildCmd())
	rootCmd.AddCommand(newPlanCmd())
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newPackageCmd())
	rootCmd.AddCommand(newCleanCmd())
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(projectRoot)
		viper.SetConfigName("forge.config")
		viper.SetConfigType("json")
	}

	viper.SetEnvPrefix("FORGE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if verbosity == "debug" {
			fmt.Println("Using config file:", viper.ConfigFileUsed())
		}
	}
}

// Helper functions

func printSuccess(message string) {
	fmt.Printf("🔨 %s %s\n", color.GreenString("[Forge]"), message)
}

func printError(message string) {
	fmt.Fprintf(os.Stderr, "🔨 %s %s\n", color.RedString("[Forge]"), message)
}

func printInfo(message string) {
	fmt.Printf("🔨 %s %s\n", color.CyanString("[Forge]"), message)
}

func printWarning(message string) {
	fmt.Printf("🔨 %s %s\n", color.YellowString("[Forge]"), message)
}

func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return filepath.Join(projectRoot, "forge.config.json")
}
