// Command notifier shows a live notification inbox in the terminal and
// sends notifications from scripts.
//
// Usage:
//
//	notifier [--config path]              open the inbox
//	notifier send --to ID --title T --message M [flags]
//	notifier login --token TOKEN | --mint --user ID [--email E]
//	notifier logout
//	notifier init                         write a default config file
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/pflag"

	"github.com/nhle/notifier/internal/app"
	"github.com/nhle/notifier/internal/auth"
	"github.com/nhle/notifier/internal/credential"
	"github.com/nhle/notifier/internal/inbox"
	"github.com/nhle/notifier/internal/logging"
	"github.com/nhle/notifier/internal/model"
	"github.com/nhle/notifier/internal/navigate"
)

const usage = `usage: notifier [command] [flags]

commands:
  (none)   open the notification inbox
  send     send a notification
  login    store a session token in the keyring
  logout   remove the stored session token
  init     write the default configuration file

run "notifier <command> --help" for the flags of a command
`

var errUsage = errors.New("usage")

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "notifier: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string) error {
	name := ""
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		name, args = args[0], args[1:]
	}

	switch name {
	case "":
		return runTUI(args)
	case "send":
		return runSend(args)
	case "login":
		return runLogin(args)
	case "logout":
		return runLogout(args)
	case "init":
		return runInit(args)
	case "help":
		fmt.Print(usage)
		return nil
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", name, usage)
		return errUsage
	}
}

// newFlagSet returns a flag set with the shared --config flag.
func newFlagSet(name string) (*pflag.FlagSet, *string) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SortFlags = false
	configPath := fs.StringP("config", "c", model.DefaultConfigPath(), "configuration file")
	return fs, configPath
}

// setup loads the configuration and points the log at its file. The
// returned func closes the log file.
func setup(configPath string) (*model.AppConfig, func(), error) {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	f, err := logging.OpenFile(cfg.Log.File)
	if err != nil {
		return nil, nil, err
	}
	if err := logging.Setup(f, cfg.Log.Level); err != nil {
		f.Close()
		return nil, nil, err
	}

	switch cfg.Display.Theme {
	case "dark":
		lipgloss.SetHasDarkBackground(true)
	case "light":
		lipgloss.SetHasDarkBackground(false)
	}

	return cfg, func() { f.Close() }, nil
}

func runTUI(args []string) error {
	fs, configPath := newFlagSet("notifier")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, closeLog, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer closeLog()

	vault := newVault(*configPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := openStore(ctx, cfg, vault)
	if err != nil {
		return err
	}
	defer s.Close()

	conn := openConnectivity(ctx, cfg.Connectivity)
	defer conn.stop()

	id, signedIn := currentIdentity(cfg.Auth, vault)

	ib := inbox.New(s, conn, inbox.WithLogger(logging.GetLogger("inbox")))
	defer ib.Close()
	if signedIn {
		ib.Subscribe(id.UserID)
	}

	p := tea.NewProgram(
		app.New(ib, id, conn, navigate.Browser{}, cfg.Display).WithSettings(*cfg, *configPath),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running ui: %w", err)
	}
	return nil
}

func runSend(args []string) error {
	fs, configPath := newFlagSet("send")
	var (
		to        = fs.String("to", "", "recipient user ID (required)")
		group     = fs.String("group", "", "recipient group ID")
		title     = fs.String("title", "", "title (required)")
		message   = fs.String("message", "", "message body")
		kind      = fs.String("type", string(model.TypeGeneral), "one of general, worker_duplicate, worker_exit_request, worker_exit_confirmed")
		priority  = fs.String("priority", string(model.PriorityMedium), "one of low, medium, high, urgent")
		worker    = fs.String("worker", "", "worker name for the action payload")
		actionURL = fs.String("action-url", "", "link opened from the notification")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	d := model.Draft{
		Type:             model.Type(*kind),
		Title:            *title,
		Message:          *message,
		RecipientID:      *to,
		RecipientGroupID: *group,
		Priority:         model.Priority(*priority),
	}
	if *worker != "" || *actionURL != "" {
		d.Action = &model.ActionData{WorkerName: *worker, ActionURL: *actionURL}
	}
	if err := d.WithDefaults().Validate(); err != nil {
		return err
	}

	cfg, closeLog, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer closeLog()

	vault := newVault(*configPath)
	id, signedIn := currentIdentity(cfg.Auth, vault)
	if !signedIn {
		return errors.New(`not signed in, run "notifier login" first`)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := openStore(ctx, cfg, vault)
	if err != nil {
		return err
	}
	defer s.Close()

	conn := openConnectivity(ctx, cfg.Connectivity)
	defer conn.stop()

	ib := inbox.New(s, conn, inbox.WithLogger(logging.GetLogger("send")))
	defer ib.Close()
	ib.Subscribe(id.UserID)

	sent := ib.Send(ctx, d)
	if sent == "" {
		return fmt.Errorf("notification not sent, see %s", cfg.Log.File)
	}
	fmt.Println(sent)
	return nil
}

func runLogin(args []string) error {
	fs, configPath := newFlagSet("login")
	var (
		token = fs.String("token", "", "session token to store")
		mint  = fs.Bool("mint", false, "sign a development token with the configured signing key")
		user  = fs.String("user", "", "user ID for --mint")
		email = fs.String("email", "", "email for --mint")
		ttl   = fs.Duration("ttl", 30*24*time.Hour, "lifetime of a minted token")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, closeLog, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer closeLog()

	vault := newVault(*configPath)
	key := []byte(auth.Resolve(cfg.Auth.SigningKeyEnv, credential.SigningKey, vault.Get))

	switch {
	case *mint:
		if *user == "" {
			return errors.New("--mint needs --user")
		}
		*token, err = auth.GenerateToken(key, *user, *email, *ttl)
		if err != nil {
			return err
		}
	case *token == "":
		return errors.New("pass --token or --mint")
	}

	id, err := auth.NewTokenProvider(*token, key).Parse()
	if err != nil {
		return err
	}

	if err := vault.Set(credential.SessionToken, *token); err != nil {
		return err
	}
	fmt.Printf("signed in as %s\n", displayName(id))
	return nil
}

func runLogout(args []string) error {
	fs, configPath := newFlagSet("logout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := newVault(*configPath).Delete(credential.SessionToken); err != nil {
		return err
	}
	fmt.Println("signed out")
	return nil
}

func runInit(args []string) error {
	fs, configPath := newFlagSet("init")
	force := fs.Bool("force", false, "overwrite an existing file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := os.Stat(*configPath); err == nil && !*force {
		return fmt.Errorf("%s exists, pass --force to overwrite", *configPath)
	}

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if err := model.SaveConfig(*configPath, cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", *configPath)
	return nil
}

// newVault opens the keyring. Its file fallback lives next to the config.
func newVault(configPath string) *credential.Vault {
	return credential.NewVault(filepath.Join(filepath.Dir(configPath), "credentials"))
}

// currentIdentity reads the session token from the environment or keyring.
func currentIdentity(cfg model.AuthConfig, vault *credential.Vault) (auth.Identity, bool) {
	token := auth.Resolve(cfg.TokenEnv, credential.SessionToken, vault.Get)
	key := auth.Resolve(cfg.SigningKeyEnv, credential.SigningKey, vault.Get)
	return auth.NewTokenProvider(token, []byte(key)).Current()
}

func displayName(id auth.Identity) string {
	if id.Email != "" {
		return fmt.Sprintf("%s (%s)", id.UserID, id.Email)
	}
	return id.UserID
}
