package cli

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/chirag6451/idiom-master/internal/account"
)

// seedAccounts registers a user in the state dir's account store and
// optionally signs them in.
func seedAccounts(t *testing.T, dir, name string, signIn bool) account.User {
	t.Helper()
	store, err := account.NewStore(filepath.Join(dir, "accounts"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	user, err := store.Login(name, "pw")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if signIn {
		if err := store.SetCurrent(user); err != nil {
			t.Fatalf("SetCurrent() error = %v", err)
		}
	}
	return user
}

func TestSyncRequiresABackend(t *testing.T) {
	setViper(t, "state.dir", t.TempDir())
	setViper(t, "backend.url", "")

	err := syncCmd.RunE(syncCmd, []string{})
	if err == nil {
		t.Fatal("sync without backend.url should fail")
	}
	if !strings.Contains(err.Error(), "backend.url") {
		t.Errorf("error should point at the missing key, got %v", err)
	}
}

func TestResolveSyncUserPrefersTheFlag(t *testing.T) {
	dir := t.TempDir()
	seedAccounts(t, dir, "Priya", true)
	want := seedAccounts(t, dir, "Marco", false)

	syncCmd.Flags().Set("user", "marco")
	defer syncCmd.Flags().Set("user", "")

	got, err := resolveSyncUser(syncCmd, dir)
	if err != nil {
		t.Fatalf("resolveSyncUser() error = %v", err)
	}
	if got.ID != want.ID {
		t.Fatalf("resolved %q, want the --user account %q", got.Name, want.Name)
	}
}

func TestResolveSyncUserRejectsUnknownName(t *testing.T) {
	dir := t.TempDir()
	seedAccounts(t, dir, "Priya", true)

	syncCmd.Flags().Set("user", "nobody")
	defer syncCmd.Flags().Set("user", "")

	if _, err := resolveSyncUser(syncCmd, dir); err == nil {
		t.Fatal("an unknown --user name should fail instead of falling back")
	}
}

func TestResolveSyncUserFallsBackToSignedIn(t *testing.T) {
	dir := t.TempDir()
	want := seedAccounts(t, dir, "Priya", true)

	got, err := resolveSyncUser(syncCmd, dir)
	if err != nil {
		t.Fatalf("resolveSyncUser() error = %v", err)
	}
	if got.ID != want.ID {
		t.Fatalf("resolved %q, want the signed-in account", got.Name)
	}
}

func TestResolveSyncUserNeedsSomeoneSignedIn(t *testing.T) {
	dir := t.TempDir()
	seedAccounts(t, dir, "Priya", false)

	_, err := resolveSyncUser(syncCmd, dir)
	if err == nil {
		t.Fatal("nobody signed in and no --user should be an error")
	}
	if !strings.Contains(err.Error(), "--user") {
		t.Errorf("error should suggest --user, got %v", err)
	}
}
