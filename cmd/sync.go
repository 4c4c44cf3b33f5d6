package cmd

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize a shop's catalog vocabulary once",
	Run:   runSync,
}

var (
	syncShop    string
	syncTimeout time.Duration
)

func init() {
	syncCmd.Flags().StringVar(&syncShop, "shop", "", "shop domain to synchronize | example: --shop=acme.myshopify.com")
	syncCmd.Flags().DurationVar(&syncTimeout, "timeout", 5*time.Minute, "abort the sync after this long")
	_ = syncCmd.MarkFlagRequired("shop")
	rootCmd.AddCommand(syncCmd)
}

func runSync(_ *cobra.Command, _ []string) {
	defer StopApp()

	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()

	res, err := shopUsecase.Sync(ctx, syncShop)
	if err != nil {
		logrus.Fatalf("[SYNC] %s: %v", syncShop, err)
	}
	logrus.WithFields(logrus.Fields{
		"shop":            syncShop,
		"product_types":   len(res.Taxonomy.ProductTypes),
		"vendors":         len(res.Taxonomy.Vendors),
		"tags":            len(res.Taxonomy.Tags),
		"variant_options": len(res.Taxonomy.VariantOptions),
		"flushed":         res.FlushedEntries,
		"duration":        res.Duration.Round(time.Millisecond).String(),
	}).Info("[SYNC] Done")
}
