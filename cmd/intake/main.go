package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"intake-go/internal/app"
	"intake-go/internal/config"
	"intake-go/internal/database"
	"intake-go/internal/encryption"
	"intake-go/internal/server"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// readConfig loads the config file from its default (or overridden) location.
func readConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config and creates an IntakeApp. The caller must defer app.Close().
func newApp() (*app.IntakeApp, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewIntakeApp(cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:   "intake",
	Short: "Upload intake and dedup service",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Listen:     %s\n", cfg.Server.Addr)
		fmt.Printf("Database:   %s\n", cfg.Database.Type)
		fmt.Printf("Staging:    %s\n", cfg.Staging.Type)
		fmt.Printf("Vault:      %s\n", cfg.Vault.Type)
		fmt.Printf("Encryption: %s\n", cfg.Encryption.Type)
		return nil
	},
}

// migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}

		db, err := database.NewDatabaseFromConfig(cfg.Database)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		sqldb, ok := db.(*database.SQLiteDatabase)
		if !ok {
			return fmt.Errorf("database type %s does not support migrations", cfg.Database.Type)
		}
		if err := sqldb.Migrate(); err != nil {
			return fmt.Errorf("applying migrations: %w", err)
		}

		fmt.Println("Database schema is up to date.")
		return nil
	},
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; the real environment wins either way.
		godotenv.Load()

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if !a.TokenConfigured() {
			return fmt.Errorf("jwt secret not configured: set INTAKE_JWT_SECRET or auth.jwt_secret")
		}

		srv := server.NewServer(a.Service(), a.Auth(), a.Logger(), a.Config().Server)
		return srv.Run()
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate an archive encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}

		enc := encryption.NewAgeEncryptor(cfg.Encryption)
		if err := enc.Setup(); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}

		fmt.Printf("Public key:  %s\n", cfg.Encryption.PublicKeyPath)
		fmt.Printf("Private key: %s\n", cfg.Encryption.PrivateKeyPath)
		return nil
	},
}

// user command
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userAddCmd = &cobra.Command{
	Use:   "add EMAIL",
	Short: "Create a user account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")

		password, err := promptPassword()
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		user, err := a.RegisterUser(args[0], password, name)
		if err != nil {
			return fmt.Errorf("creating user: %w", err)
		}

		fmt.Printf("Created user %s (%s)\n", user.Email, user.ID)
		return nil
	},
}

// promptPassword reads a password twice from the terminal without echo.
func promptPassword() (string, error) {
	fmt.Print("Password: ")
	first, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	fmt.Print("Confirm password: ")
	second, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(first), nil
}

// uploads command
var uploadsCmd = &cobra.Command{
	Use:   "uploads",
	Short: "Inspect and manage uploads",
}

var uploadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's uploads",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		uploads, err := a.ListUploads(email, limit)
		if err != nil {
			return err
		}

		if len(uploads) == 0 {
			fmt.Println("No uploads.")
			return nil
		}

		for _, u := range uploads {
			fmt.Printf("%s  %-20s  %s  %s\n",
				u.ID,
				u.Status,
				u.CreatedAt.Format("2006-01-02 15:04:05"),
				u.ZipName,
			)
		}
		return nil
	},
}

var uploadsShowCmd = &cobra.Command{
	Use:   "show UPLOAD_ID",
	Short: "Show one upload with its state and history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		upload, events, err := a.GetUpload(email, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Upload:  %s\n", upload.ID)
		fmt.Printf("Zip:     %s\n", upload.ZipName)
		fmt.Printf("Status:  %s\n", upload.Status)
		fmt.Printf("Created: %s\n", upload.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("Updated: %s\n", upload.UpdatedAt.Format("2006-01-02 15:04:05"))

		if len(events) > 0 {
			fmt.Println("\nHistory:")
			for _, e := range events {
				from := string(e.FromStatus)
				if from == "" {
					from = "-"
				}
				fmt.Printf("  %s  %s -> %s\n", e.CreatedAt.Format("2006-01-02 15:04:05"), from, e.ToStatus)
			}
		}

		if len(upload.State) > 0 {
			var pretty json.RawMessage = upload.State
			out, err := json.MarshalIndent(pretty, "", "  ")
			if err == nil {
				fmt.Printf("\nState:\n%s\n", out)
			}
		}
		return nil
	},
}

var uploadsExportCmd = &cobra.Command{
	Use:   "export UPLOAD_ID",
	Short: "Export an upload's stored archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		out, _ := cmd.Flags().GetString("out")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if out == "" {
			upload, _, err := a.GetUpload(email, args[0])
			if err != nil {
				return err
			}
			out = filepath.Base(upload.ZipName)
		}

		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()

		if err := a.ExportArchive(email, args[0], f); err != nil {
			os.Remove(out)
			return fmt.Errorf("exporting archive: %w", err)
		}

		fmt.Printf("Exported to %s\n", out)
		return nil
	},
}

var uploadsFailCmd = &cobra.Command{
	Use:   "fail UPLOAD_ID",
	Short: "Mark an in-flight upload as failed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		reason, _ := cmd.Flags().GetString("reason")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		upload, err := a.FailUpload(email, args[0], reason)
		if err != nil {
			return err
		}

		fmt.Printf("Upload %s marked %s\n", upload.ID, upload.Status)
		return nil
	},
}

var uploadsPurgeCmd = &cobra.Command{
	Use:   "purge UPLOAD_ID",
	Short: "Delete an upload record and its unreferenced archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.PurgeUpload(email, args[0]); err != nil {
			return err
		}

		fmt.Printf("Purged upload %s\n", args[0])
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// keys subcommands
	keysCmd.AddCommand(keysInitCmd)

	// user subcommands
	userCmd.AddCommand(userAddCmd)
	userAddCmd.Flags().String("name", "", "Display name for the account")

	// uploads subcommands
	uploadsCmd.AddCommand(uploadsListCmd)
	uploadsCmd.AddCommand(uploadsShowCmd)
	uploadsCmd.AddCommand(uploadsExportCmd)
	uploadsCmd.AddCommand(uploadsFailCmd)
	uploadsCmd.AddCommand(uploadsPurgeCmd)
	uploadsCmd.PersistentFlags().String("email", "", "Email of the upload owner")
	uploadsCmd.MarkPersistentFlagRequired("email")
	uploadsListCmd.Flags().IntP("limit", "n", 50, "Maximum number of uploads to show")
	uploadsExportCmd.Flags().String("out", "", "Output file (defaults to the original zip name)")
	uploadsFailCmd.Flags().String("reason", "cancelled by operator", "Failure reason to record")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(uploadsCmd)
}
