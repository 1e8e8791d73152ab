package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/image-scraper-service/internal/app"
	"github.com/user/image-scraper-service/internal/delivery/http/response"
	"github.com/user/image-scraper-service/internal/entity"
	"github.com/user/image-scraper-service/pkg/config"
	"github.com/user/image-scraper-service/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "scraper",
	Short: "Scrape the images of a web page into the image store",
	Long: `scraper runs the scrape pipeline against the configured backends
without starting the HTTP server.

Usage:
  scraper scrape <url>
  scraper restore <url>
  scraper sync`,
	SilenceUsage: true,
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape <url>",
	Short: "Store images on the page that were not stored before",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd.Context(), func(ctx context.Context, c *app.Container) error {
			images, err := c.Scraper.ScrapeIncremental(ctx, args[0])
			if err != nil {
				return err
			}
			return printImages(cmd, images)
		})
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore <url>",
	Short: "Delete stored images and scrape the page from scratch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd.Context(), func(ctx context.Context, c *app.Container) error {
			images, err := c.Scraper.ScrapeDestructive(ctx, args[0])
			if err != nil {
				return err
			}
			return printImages(cmd, images)
		})
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Re-scrape every known page once",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd.Context(), func(ctx context.Context, c *app.Container) error {
			synced, err := c.Syncer.SyncAll(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "synced %d addresses\n", synced)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(scrapeCmd, restoreCmd, syncCmd)
}

func withContainer(ctx context.Context, fn func(context.Context, *app.Container) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	c, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("could not build application", zap.Error(err))
		return err
	}
	defer c.Close()

	return fn(ctx, c)
}

func printImages(cmd *cobra.Command, images []*entity.Image) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(response.NewImageListResponse(images))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
