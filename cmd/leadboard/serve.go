package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"leadboard/internal/config"
	"leadboard/internal/server"
)

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ws, err := openWorkspace(ctx)
			if err != nil {
				return err
			}
			defer ws.Close()
			ws.Workers.Start()

			handler, err := server.New(server.Config{Workspace: ws, BasePath: basePath, Logger: ws.Log})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()
			ws.Log.Info("serving", zap.String("addr", addr), zap.String("base_path", basePath), zap.String("backend", ws.Config.Store.Backend))
			fmt.Printf("Serving Leadboard API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Workspace configuration",
		Long:  "leadboard.yml selects the store backend (sqlite or firestore), the identity mode and the board and report settings.",
	}

	var localUser string
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default leadboard.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(localUser)), 0o644); err != nil {
				return err
			}
			return printDone(map[string]string{"path": path}, "wrote %s", path)
		},
	}
	initCmd.Flags().StringVar(&localUser, "local-user", "local-user", "user id for local mode")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return printJSON(cfg)
		},
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Validate leadboard.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := config.Load(viper.GetString("workspace"))
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}

	cmd.AddCommand(initCmd, show, validate)
	return cmd
}

const tokenEnvKey = "LEADBOARD_TOKEN"

func envFile() string {
	return filepath.Join(viper.GetString("workspace"), ".env")
}

// updateEnvFile rewrites the workspace .env with key set, or removed when value is empty.
func updateEnvFile(key, value string) error {
	env, err := godotenv.Read(envFile())
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		env = map[string]string{}
	}
	if value == "" {
		delete(env, key)
	} else {
		env[key] = value
	}
	return godotenv.Write(env, envFile())
}

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <token>",
		Short: "Verify a token and store it in the workspace .env",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			viper.Set("token", args[0])
			ws, err := openWorkspace(cmd.Context())
			if err != nil {
				return err
			}
			defer ws.Close()
			u := ws.Session.User()
			if u == nil {
				return errors.New("sign-in cancelled")
			}
			if err := updateEnvFile(tokenEnvKey, args[0]); err != nil {
				return err
			}
			return printDone(map[string]string{"userId": u.UID}, "signed in as %s", u.UID)
		},
	}
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := updateEnvFile(tokenEnvKey, ""); err != nil {
				return err
			}
			return printDone(map[string]bool{"ok": true}, "signed out")
		},
	}
}
