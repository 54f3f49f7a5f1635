package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alphabot-ai/ysocial/internal/client"
)

// CLIConfig holds the client configuration persisted to disk.
type CLIConfig struct {
	BaseURL    string `json:"base_url"`
	Username   string `json:"username"`
	PublicKey  string `json:"public_key,omitempty"`
	PrivateKey string `json:"private_key,omitempty"`
	Token      string `json:"token"`
	TokenExp   string `json:"token_expires"`
}

func clientCommands() []*cobra.Command {
	return []*cobra.Command{
		registerCmd(),
		loginCmd(),
		postCmd(),
		feedCmd(),
		deleteCmd(),
		followCmd("follow", "Follow a user", (*client.Client).Follow),
		followCmd("unfollow", "Stop following a user", (*client.Client).Unfollow),
		notificationsCmd(),
		statusCmd(),
	}
}

func registerCmd() *cobra.Command {
	var (
		baseURL  string
		username string
		email    string
		password string
		withKey  bool
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account, log in and remember the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" || email == "" || password == "" {
				return errors.New("--username, --email and --password are required")
			}
			c := client.New(baseURL)
			if err := c.RegisterAndLogin(username, email, password); err != nil {
				return err
			}
			cfg := CLIConfig{BaseURL: baseURL, Username: username}
			if withKey {
				creds, err := client.GenerateCredentials(username)
				if err != nil {
					return fmt.Errorf("generate keypair: %w", err)
				}
				if err := c.EnrollKey(creds); err != nil {
					return err
				}
				cfg.PublicKey = creds.PublicKey
				cfg.PrivateKey = creds.PrivateKeyBase64()
			}
			if err := saveCLIConfig(withToken(cfg, c)); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			fmt.Printf("Registered and logged in as %s\n", username)
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "Server URL")
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password")
	cmd.Flags().BoolVar(&withKey, "key", false, "Also enroll an ed25519 key for password-less login")
	return cmd
}

func loginCmd() *cobra.Command {
	var (
		baseURL  string
		username string
		password string
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Refresh the stored token with a password or the enrolled key",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _ := loadCLIConfig()
			if baseURL != "" {
				cfg.BaseURL = baseURL
			}
			if cfg.BaseURL == "" {
				cfg.BaseURL = "http://localhost:8080"
			}
			if username != "" && username != cfg.Username {
				cfg = CLIConfig{BaseURL: cfg.BaseURL, Username: username}
			}
			if cfg.Username == "" {
				return errors.New("--username is required")
			}

			c := client.New(cfg.BaseURL)
			switch {
			case password != "":
				if err := c.Login(cfg.Username, password); err != nil {
					return err
				}
			case cfg.PrivateKey != "":
				creds, err := client.CredentialsFromKeys(cfg.Username, cfg.PublicKey, cfg.PrivateKey)
				if err != nil {
					return err
				}
				if err := c.AuthenticateWithKey(creds); err != nil {
					return err
				}
			default:
				return errors.New("--password is required when no key is enrolled")
			}
			if err := saveCLIConfig(withToken(cfg, c)); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			fmt.Printf("Logged in as %s (expires %s)\n", cfg.Username, c.TokenExp.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", "", "Server URL (defaults to the stored one)")
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username (defaults to the stored one)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password")
	return cmd
}

func postCmd() *cobra.Command {
	var (
		message  string
		hashtags []string
	)
	cmd := &cobra.Command{
		Use:   "post [message]",
		Short: "Publish a post",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if message == "" && len(args) == 1 {
				message = args[0]
			}
			if message == "" {
				return errors.New("a message is required")
			}
			c, err := loadAuthenticatedClient()
			if err != nil {
				return err
			}
			result, err := c.CreatePost(message, hashtags)
			if errors.Is(err, client.ErrRejected) {
				fmt.Printf("Post rejected: %s\n", result.Reason)
				return nil
			}
			if err != nil {
				return err
			}
			if result.Post != nil {
				fmt.Printf("Posted #%d\n", result.Post.ID)
				return nil
			}
			fmt.Println(result.Message)
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "Post text")
	cmd.Flags().StringSliceVarP(&hashtags, "tag", "t", nil, "Hashtags (repeat or comma separate)")
	return cmd
}

func feedCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Show the feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _ := loadCLIConfig()
			baseURL := cfg.BaseURL
			if baseURL == "" {
				baseURL = "http://localhost:8080"
			}
			posts, err := client.New(baseURL).Feed()
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(posts)
			}
			if len(posts) == 0 {
				fmt.Println("No posts yet.")
				return nil
			}
			for _, p := range posts {
				fmt.Printf("#%d  @%s  %s\n", p.ID, p.Username, p.Timestamp)
				fmt.Printf("    %s\n", p.Message)
				if len(p.Hashtags) > 0 {
					fmt.Printf("    %s\n", strings.Join(p.Hashtags, " "))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print raw JSON")
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <post-id>",
		Short: "Delete one of your posts (any post when you are an admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid post id %q", args[0])
			}
			c, err := loadAuthenticatedClient()
			if err != nil {
				return err
			}
			removed, err := c.DeletePost(id)
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d post(s)\n", removed)
			return nil
		},
	}
}

func followCmd(use, short string, fn func(*client.Client, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <username>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadAuthenticatedClient()
			if err != nil {
				return err
			}
			if err := fn(c, args[0]); err != nil {
				return err
			}
			fmt.Printf("%s %s: ok\n", use, args[0])
			return nil
		},
	}
}

func notificationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notifications",
		Short: "List your notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadAuthenticatedClient()
			if err != nil {
				return err
			}
			notes, err := c.Notifications()
			if err != nil {
				return err
			}
			if len(notes) == 0 {
				fmt.Println("No notifications.")
				return nil
			}
			for _, n := range notes {
				fmt.Printf("%s  %s\n", n.Timestamp, n.Message)
			}
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Aliases: []string{"whoami"},
		Short:   "Show the stored identity and token state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadCLIConfig()
			if err != nil {
				return err
			}
			fmt.Printf("Server:   %s\n", cfg.BaseURL)
			fmt.Printf("Username: %s\n", cfg.Username)
			fmt.Printf("Key:      %t\n", cfg.PrivateKey != "")
			exp, err := time.Parse(time.RFC3339, cfg.TokenExp)
			switch {
			case cfg.Token == "" || err != nil:
				fmt.Println("Token:    none")
			case time.Now().After(exp):
				fmt.Println("Token:    expired, run 'ysocial login'")
			default:
				fmt.Printf("Token:    valid until %s\n", exp.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func withToken(cfg CLIConfig, c *client.Client) CLIConfig {
	cfg.Token = c.Token
	cfg.TokenExp = c.TokenExp.Format(time.RFC3339)
	return cfg
}

func cliConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".ysocial", "config.json")
}

func loadCLIConfig() (CLIConfig, error) {
	data, err := os.ReadFile(cliConfigPath())
	if err != nil {
		return CLIConfig{}, errors.New("not initialized - run 'ysocial register' first")
	}
	var cfg CLIConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return CLIConfig{}, err
	}
	return cfg, nil
}

func saveCLIConfig(cfg CLIConfig) error {
	path := cliConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, _ := json.MarshalIndent(cfg, "", "  ")
	return os.WriteFile(path, data, 0o600)
}

func loadAuthenticatedClient() (*client.Client, error) {
	cfg, err := loadCLIConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Token == "" {
		return nil, errors.New("not authenticated - run 'ysocial login'")
	}
	exp, _ := time.Parse(time.RFC3339, cfg.TokenExp)
	if time.Now().After(exp) {
		return nil, errors.New("token expired - run 'ysocial login'")
	}
	c := client.New(cfg.BaseURL)
	c.Token = cfg.Token
	c.TokenExp = exp
	return c, nil
}
