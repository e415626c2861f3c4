package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"leadboard/internal/app"
	"leadboard/internal/config"
	"leadboard/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "leadboard",
	Short: "Leadboard CLI",
	Long: `Leadboard keeps a tech lead's demands, their tasks and the daily standup in one place.
- Demands move through setup -> desenvolvimento -> homologacao -> op_assistida -> concluido.
- Tasks belong to a demand; at most one task is in progress at any time.
- Completing a task logs it into tomorrow's daily entry, grouped by the demand's Sistema.
- Daily entries older than three days are pruned automatically.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envPath := filepath.Join(viper.GetString("workspace"), ".env")
		if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", envPath, err)
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("LEADBOARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("token", "", "identity token (defaults to the configured local user)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "console", "log format: console or json")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log-format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func registerCommands() {
	rootCmd.AddCommand(demandCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(fieldCmd())
	rootCmd.AddCommand(viewCmd())
	rootCmd.AddCommand(dailyCmd())
	rootCmd.AddCommand(docCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(logoutCmd())
	rootCmd.AddCommand(serveCmd())
}

func newLogger() (*zap.Logger, error) {
	return logging.New(viper.GetString("log-level"), viper.GetString("log-format"))
}

func loadConfig() (*config.Config, error) {
	return config.LoadOrDefault(viper.GetString("workspace"))
}

// sessionToken is the --token flag or LEADBOARD_TOKEN, falling back to the local user in local mode.
func sessionToken(cfg *config.Config) string {
	if t := strings.TrimSpace(viper.GetString("token")); t != "" {
		return t
	}
	if cfg.Auth.Mode == config.AuthLocal {
		return cfg.Auth.LocalUser
	}
	return ""
}

// openWorkspace builds the workspace and restores the session. The caller closes it.
func openWorkspace(ctx context.Context) (*app.Workspace, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := newLogger()
	if err != nil {
		return nil, err
	}
	ws, err := app.Open(ctx, cfg, log, app.Options{})
	if err != nil {
		return nil, err
	}
	if err := ws.Restore(ctx, sessionToken(cfg)); err != nil {
		ws.Close()
		return nil, err
	}
	return ws, nil
}

func withWorkspace(ctx context.Context, fn func(context.Context, *app.Workspace) error) error {
	ws, err := openWorkspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()
	return fn(ctx, ws)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printJSONOrTable(v any, header table.Row, rows []table.Row) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(header)
	for _, r := range rows {
		tw.AppendRow(r)
	}
	tw.Render()
	return nil
}

func printDone(v any, format string, args ...any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	fmt.Printf(format+"\n", args...)
	return nil
}

func optionalString(cmd *cobra.Command, flag, value string) *string {
	if !cmd.Flags().Changed(flag) {
		return nil
	}
	return &value
}
