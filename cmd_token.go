package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aiwolfdial/studybuddy/util"
	"github.com/spf13/cobra"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an admin token for editing the schedule",
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "admin", "トークンの発行先")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "有効期間 (0で無期限)")
}

func runToken(cmd *cobra.Command, _ []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}
	secret := config.Server.Authentication.Secret
	if secret == "" {
		secret = os.Getenv("SECRET_KEY")
	}
	if secret == "" {
		return errors.New("SECRET_KEYが設定されていません")
	}
	token, err := util.NewAdminToken(secret, tokenSubject, tokenTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
