package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chirag6451/idiom-master/internal/account"
	"github.com/chirag6451/idiom-master/internal/favorites"
	"github.com/chirag6451/idiom-master/internal/logging"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile local favorites against the configured backend",
	Long: `Push the local favorites file through the backend's merge and adopt the
result. The backend wins on conflicting entries; favorites only one side
knows about survive on both. Pronunciation audio the backend never
received is uploaded as part of the reconcile.

The user defaults to whoever is signed in; pass --user to sync another
registered account by name.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := stateDir()
		if err != nil {
			return err
		}

		remote := configuredRemote()
		if remote == nil {
			return fmt.Errorf("no backend configured: set backend.url in the config file")
		}

		user, err := resolveSyncUser(cmd, dir)
		if err != nil {
			return err
		}

		local, err := openLocalFavorites(dir)
		if err != nil {
			return err
		}

		store := favorites.New(cmd.Context(), local, remote, logging.Log)
		synced, ok := store.(*favorites.SyncedStore)
		if !ok {
			return fmt.Errorf("backend %s is not reachable", viper.GetString("backend.url"))
		}

		merged, err := synced.Sync(cmd.Context(), user.ID)
		if err != nil {
			return err
		}

		fmt.Printf("Synced %d favorite(s) for %s.\n", len(merged), user.Name)
		if len(merged) == 0 {
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		for _, fav := range merged {
			audioNote := "no audio"
			switch {
			case fav.Audio.Empty():
			case fav.Audio.URL != "":
				audioNote = "backend audio"
			default:
				audioNote = "local audio"
			}
			fmt.Fprintf(w, "%s\t%s %s\t%s\n", fav.Text, fav.Language, fav.Kind.Label(), audioNote)
		}
		return w.Flush()
	},
}

// resolveSyncUser picks the account to sync: --user by name, otherwise
// whoever is signed in.
func resolveSyncUser(cmd *cobra.Command, dir string) (account.User, error) {
	accounts, err := account.NewStore(filepath.Join(dir, "accounts"))
	if err != nil {
		return account.User{}, err
	}

	if name, _ := cmd.Flags().GetString("user"); name != "" {
		user, found, err := accounts.Lookup(name)
		if err != nil {
			return account.User{}, err
		}
		if !found {
			return account.User{}, fmt.Errorf("no account named %q", name)
		}
		return user, nil
	}

	user, ok, err := accounts.CurrentUser()
	if err != nil {
		return account.User{}, err
	}
	if !ok {
		return account.User{}, fmt.Errorf("nobody is signed in: open the app once or pass --user")
	}
	return user, nil
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().String("user", "", "account name to sync (defaults to the signed-in user)")
}
