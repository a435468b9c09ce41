// Package cmd implements the one-shot report CLI.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cloud-cost-manager/cloudcost-go/internal/aggregator"
	"github.com/cloud-cost-manager/cloudcost-go/internal/awsauth"
	"github.com/cloud-cost-manager/cloudcost-go/internal/config"
	"github.com/cloud-cost-manager/cloudcost-go/internal/fetcher"
	"github.com/cloud-cost-manager/cloudcost-go/internal/observability"
	"github.com/cloud-cost-manager/cloudcost-go/internal/provider/awscost"
	"github.com/cloud-cost-manager/cloudcost-go/internal/ratelimit"
)

// Version information (set via ldflags during build)
var version = "dev"

var (
	profiles        []string
	awsRegion       string
	accountsFile    string
	assumeRolesFile string
	baseProfile     string
	topN            int
	concurrency     int
	jsonOutput      bool
	logLevel        string
)

var rootCmd = &cobra.Command{
	Use:     "cloudcost",
	Version: version,
	Short:   "Month-to-date AWS cost report across accounts",
	Long: `Cloudcost fetches month-to-date spend for every configured AWS
account, compares it against the same point in the previous month, and
prints a combined report with per-account breakdowns and the top
services by cost.

Accounts come from shared-config profiles, a static credentials file,
or an assume-roles file; the assume-roles file takes precedence over
the credentials file, which takes precedence over profiles.`,
	RunE: runReport,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().StringSliceVar(&profiles, "profiles", nil, "Shared-config profiles to report on (comma-separated)")
	rootCmd.Flags().StringVar(&awsRegion, "region", "us-east-1", "AWS region")
	rootCmd.Flags().StringVar(&accountsFile, "accounts-file", "", "JSON file of static credential pairs")
	rootCmd.Flags().StringVar(&assumeRolesFile, "assume-roles-file", "", "JSON file of roles to assume per account")
	rootCmd.Flags().StringVar(&baseProfile, "base-profile", "", "Profile supplying base credentials for role assumption")
	rootCmd.Flags().IntVar(&topN, "top", aggregator.DefaultTopN, "Number of top services to show")
	rootCmd.Flags().IntVar(&concurrency, "concurrency", aggregator.DefaultConcurrency, "Number of accounts fetched in parallel")
	rootCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the raw report JSON instead of the table")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	// #nosec G104 - BindPFlag errors only occur if flag doesn't exist, which can't happen here
	_ = viper.BindPFlag("profiles", rootCmd.Flags().Lookup("profiles"))
	_ = viper.BindPFlag("region", rootCmd.Flags().Lookup("region"))
	_ = viper.BindPFlag("accountsFile", rootCmd.Flags().Lookup("accounts-file"))
	_ = viper.BindPFlag("assumeRolesFile", rootCmd.Flags().Lookup("assume-roles-file"))
	_ = viper.BindPFlag("baseProfile", rootCmd.Flags().Lookup("base-profile"))
	_ = viper.BindPFlag("top", rootCmd.Flags().Lookup("top"))
	_ = viper.BindPFlag("concurrency", rootCmd.Flags().Lookup("concurrency"))

	viper.SetEnvPrefix("CLOUDCOST")
	viper.AutomaticEnv()
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\ninterrupted, shutting down...")
		cancel()
	}()

	observability.InitLogger(logLevel)

	cfg := config.Config{
		AWSRegion:       viper.GetString("region"),
		Profiles:        viper.GetStringSlice("profiles"),
		AccountsFile:    viper.GetString("accountsFile"),
		AssumeRolesFile: viper.GetString("assumeRolesFile"),
		BaseProfile:     viper.GetString("baseProfile"),
	}
	accounts, err := config.LoadAccounts(cfg)
	if err != nil {
		return err
	}

	limiter := ratelimit.NewServiceLimiter(ratelimit.DefaultServiceRates())
	resolver := awsauth.NewResolver(cfg.AWSRegion, limiter)
	costs := awscost.New(limiter, nil)
	f := fetcher.New(resolver, costs, fetcher.DefaultRetryPolicy())
	agg := aggregator.New(f, viper.GetInt("concurrency"), viper.GetInt("top"), nil)

	report := agg.BuildReport(ctx, accounts)

	if jsonOutput {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		fmt.Fprintln(os.Stdout, string(data))
		return nil
	}

	printReport(os.Stdout, report)
	return nil
}
