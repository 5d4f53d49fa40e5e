// Package commands implements the tripctl command tree.
package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tripplanner/internal/client"
)

// NewRootCmd builds the tripctl command tree with its own viper instance.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	root := &cobra.Command{
		Use:   "tripctl",
		Short: "tripctl - command line client for the trip planner",
		Long: `tripctl drives a tripplanner server: collect trip details, chat with the
assistant, then generate and export the itinerary.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, cfgFile)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.tripctl.yaml)")
	flags.String("server", "http://localhost:8080", "tripplanner server URL")
	flags.Duration("timeout", 90*time.Second, "request timeout")
	flags.Bool("json", false, "print raw JSON responses")
	_ = v.BindPFlag("server", flags.Lookup("server"))
	_ = v.BindPFlag("timeout", flags.Lookup("timeout"))
	_ = v.BindPFlag("json", flags.Lookup("json"))

	root.AddCommand(
		newSessionCmd(v),
		newTripCmd(v),
		newChatCmd(v),
		newItineraryCmd(v),
		newExtractCmd(v),
	)
	return root
}

func initConfig(v *viper.Viper, cfgFile string) error {
	// .env is optional.
	_ = godotenv.Load()

	v.SetEnvPrefix("TRIPCTL")
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		v.AddConfigPath(home)
		v.SetConfigName(".tripctl")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		if cfgFile == "" && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", filepath.Base(v.ConfigFileUsed()), err)
	}
	return nil
}

func newClient(v *viper.Viper) *client.Client {
	return client.New(v.GetString("server"), v.GetDuration("timeout"), client.WithRetries(2, 500*time.Millisecond))
}

// printJSON writes v indented when --json is set and reports whether it did.
func printJSON(v *viper.Viper, w io.Writer, value any) (bool, error) {
	if !v.GetBool("json") {
		return false, nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return true, enc.Encode(value)
}
