// Package cli wires the cobra command tree. The bare command opens the
// terminal study app; serve hosts the favorites-sync backend; sync runs a
// one-shot reconcile of the local favorites file against that backend.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chirag6451/idiom-master/internal/account"
	"github.com/chirag6451/idiom-master/internal/audio"
	"github.com/chirag6451/idiom-master/internal/catalog"
	"github.com/chirag6451/idiom-master/internal/favorites"
	"github.com/chirag6451/idiom-master/internal/gateway"
	"github.com/chirag6451/idiom-master/internal/logging"
	"github.com/chirag6451/idiom-master/internal/tui"
)

var cfgFile string

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo records the build metadata injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "idiom-master",
	Short: "Study idioms and words across languages from your terminal",
	Long: `idiom-master opens a terminal app that explains idioms and words, shows
their equivalents across the configured languages, reads the canonical
example aloud, and keeps a bounded favorites list per user.

Favorites live in a local file and optionally mirror to a backend. Run
"idiom-master serve" to host one and "idiom-master sync" to reconcile
against it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := stateDir()
		if err != nil {
			return err
		}

		// The terminal renderer owns stdout for the whole run, so logs
		// go to a dated file instead.
		logFile, err := logging.ToFile(filepath.Join(dir, "logs"))
		if err != nil {
			return err
		}
		defer logFile.Close()

		cat, err := loadCatalog()
		if err != nil {
			return err
		}
		gw, err := gateway.New(gatewayConfig())
		if err != nil {
			return err
		}
		accounts, err := account.NewStore(filepath.Join(dir, "accounts"))
		if err != nil {
			return err
		}
		local, err := openLocalFavorites(dir)
		if err != nil {
			return err
		}
		cache, err := audio.NewCache(filepath.Join(dir, "audio-cache"), nil)
		if err != nil {
			return err
		}

		noAlt, _ := cmd.Flags().GetBool("no-alt-screen")
		return tui.Run(tui.Config{
			Accounts: accounts,
			Catalog:  cat,
			Gateway:  gw,
			Store:    favorites.New(cmd.Context(), local, configuredRemote(), logging.Log),
			Device:   openDevice(),
			Cache:    cache,
			Log:      logging.Log,
		}, !noAlt)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("idiom-master %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.idiom-master.yaml)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	rootCmd.Flags().Bool("no-alt-screen", false, "disable the alternate screen buffer")
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in the config file and ENV variables if set.
func initConfig() {
	viper.SetDefault("loglevel", "info")
	viper.SetDefault("state.dir", "")
	viper.SetDefault("catalog.path", "")
	viper.SetDefault("gateway.provider", "")
	viper.SetDefault("gateway.model", "")
	viper.SetDefault("gateway.speech_model", "")
	viper.SetDefault("gateway.voice", "")
	viper.SetDefault("gateway.endpoint", "")
	viper.SetDefault("gateway.api_key", "")
	viper.SetDefault("gateway.requests_per_minute", 0)
	viper.SetDefault("backend.url", "")
	viper.SetDefault("backend.username", "")
	viper.SetDefault("backend.password", "")
	viper.SetDefault("server.listen", ":8787")
	viper.SetDefault("server.username", "")
	viper.SetDefault("server.password", "")
	viper.SetDefault("server.rps", 0)
	viper.SetDefault("audio.player", "")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".idiom-master")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// No config file yet; write one holding the defaults so
			// every key is there to edit.
			home, _ := homedir.Dir()
			if err := viper.SafeWriteConfigAs(filepath.Join(home, ".idiom-master.yaml")); err != nil {
				fmt.Printf("Error creating config file: %s", err)
			}
		}
	}

	// An explicit --loglevel wins over the config file; the flag's
	// default does not.
	level := viper.GetString("loglevel")
	if flag := rootCmd.PersistentFlags().Lookup("loglevel"); flag != nil && flag.Changed {
		level = flag.Value.String()
	}
	if err := logging.SetLevel(level); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// stateDir resolves the directory holding everything the app persists:
// accounts, favorites, cached audio, logs, and the server database.
func stateDir() (string, error) {
	if dir := viper.GetString("state.dir"); dir != "" {
		return dir, nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".idiom-master"), nil
}

func loadCatalog() (*catalog.Catalog, error) {
	if path := viper.GetString("catalog.path"); path != "" {
		return catalog.Load(path)
	}
	return catalog.Default()
}

func gatewayConfig() gateway.Config {
	return gateway.Config{
		Provider:          viper.GetString("gateway.provider"),
		Model:             viper.GetString("gateway.model"),
		SpeechModel:       viper.GetString("gateway.speech_model"),
		Voice:             viper.GetString("gateway.voice"),
		Endpoint:          viper.GetString("gateway.endpoint"),
		APIKey:            viper.GetString("gateway.api_key"),
		RequestsPerMinute: viper.GetInt("gateway.requests_per_minute"),
	}
}

func openLocalFavorites(dir string) (*favorites.FileStore, error) {
	return favorites.NewFileStore(filepath.Join(dir, "favorites"))
}

// configuredRemote returns nil when no backend URL is set, which keeps
// favorites in local-only mode.
func configuredRemote() *favorites.RemoteStore {
	base := viper.GetString("backend.url")
	if base == "" {
		return nil
	}
	return favorites.NewRemoteStore(base, viper.GetString("backend.username"), viper.GetString("backend.password"))
}

// openDevice prefers a real player binary and degrades to the silent
// device so a missing afplay/aplay never blocks studying.
func openDevice() audio.Device {
	device, err := audio.NewExecDevice(viper.GetString("audio.player"))
	if err != nil {
		logging.Log.WithError(err).Warn("no audio player found, playback will be silent")
		return audio.NopDevice{}
	}
	return device
}
