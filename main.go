package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/postscript-blog/postscript/config"
	"github.com/postscript-blog/postscript/database"
	"github.com/postscript-blog/postscript/logger"
	"github.com/postscript-blog/postscript/web"
	"github.com/postscript-blog/postscript/web/cache"
	"github.com/postscript-blog/postscript/web/service"

	"github.com/spf13/cobra"
)

func initLogger() {
	level, err := logger.ParseLevel(config.GetLogLevel())
	if err != nil {
		log.Fatal(err)
	}
	logger.InitLogger(level)
}

func initDB() error {
	return database.InitDBWithConfig(config.GetDatabaseConfig())
}

func runWebServer() {
	log.Printf("%v %v", config.GetName(), config.GetVersion())
	initLogger()
	defer logger.CloseLogger()

	if err := initDB(); err != nil {
		log.Fatal(err)
	}
	defer database.CloseDB()

	if err := cache.InitRedis(config.GetRedisAddr()); err != nil {
		log.Fatal(err)
	}
	defer cache.Close()

	server := web.NewServer()
	if err := server.Start(); err != nil {
		log.Println(err)
		return
	}

	sigCh := make(chan os.Signal, 1)
	// Trap shutdown signals
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGTERM, os.Interrupt)
	for {
		sig := <-sigCh

		switch sig {
		case syscall.SIGHUP:
			logger.Info("Received SIGHUP, restarting web server")
			if err := server.Stop(); err != nil {
				logger.Warning("stop server err:", err)
			}
			server = web.NewServer()
			if err := server.Start(); err != nil {
				log.Println(err)
				return
			}
		default:
			logger.Info("Shutting down")
			if err := server.Stop(); err != nil {
				logger.Warning("stop server err:", err)
			}
			return
		}
	}
}

func migrateDb() {
	fmt.Println("Start migrating database...")
	if err := initDB(); err != nil {
		log.Fatal(err)
	}
	defer database.CloseDB()
	fmt.Println("Migration done!")
}

func resetPassword(username, password string) {
	if err := initDB(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer database.CloseDB()

	// Sessions can only be revoked when they live in an external redis.
	if config.GetRedisAddr() != "" {
		if err := cache.InitRedis(config.GetRedisAddr()); err != nil {
			fmt.Println("redis unavailable, existing sessions stay valid:", err)
		} else {
			defer cache.Close()
		}
	}

	userService := service.UserService{}
	if err := userService.SetPassword(context.Background(), username, password); err != nil {
		fmt.Println("reset password failed:", err)
		return
	}
	fmt.Printf("password of %s reset\n", username)
}

func main() {
	if err := config.LoadEnv(".env"); err != nil {
		log.Println("load .env:", err)
	}

	rootCmd := &cobra.Command{
		Use:   config.GetName(),
		Short: "A small blogging server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the web server",
		Run: func(cmd *cobra.Command, args []string) {
			runWebServer()
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Run: func(cmd *cobra.Command, args []string) {
			migrateDb()
		},
	}

	var username, password string
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	resetPasswordCmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password for a user",
		Run: func(cmd *cobra.Command, args []string) {
			resetPassword(username, password)
		},
	}
	resetPasswordCmd.Flags().StringVar(&username, "username", "", "account username")
	resetPasswordCmd.Flags().StringVar(&password, "password", "", "new password")
	_ = resetPasswordCmd.MarkFlagRequired("username")
	_ = resetPasswordCmd.MarkFlagRequired("password")
	userCmd.AddCommand(resetPasswordCmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(config.GetVersion())
		},
	}

	rootCmd.AddCommand(runCmd, migrateCmd, userCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
