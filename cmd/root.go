package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"blogforge/src/log"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "blogforge",
	Short: "Generate long-form blog drafts step by step",
	Long: `blogforge turns an article brief into a published CMS draft through a
resumable job: outline, one section per step, SEO metadata, then the draft.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read config %s: %w", cfgFile, err)
			}
		}
		return log.Configure(viper.GetBool("log.development"), viper.GetInt("log.level"))
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	settingDefaultConfig()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().String("store", "", "job store backend: memory, postgres or redis")
	viper.BindPFlag("store.backend", rootCmd.PersistentFlags().Lookup("store"))
}
