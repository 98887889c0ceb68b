package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/Sullygrrr/digger/config"
	"github.com/Sullygrrr/digger/storage"

	"github.com/spf13/cobra"
)

var minioCheckKey string

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "Check the MinIO connection and bucket",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		fmt.Printf("MinIO: %s, bucket %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		if err := storage.InitMinio(cfg); err != nil {
			log.Fatalf("Failed to connect to MinIO: %v", err)
		}
		fmt.Println("MinIO connection OK.")

		if minioCheckKey != "" {
			store := storage.NewMediaStore(cfg)
			exists, err := store.FileExists(context.Background(), minioCheckKey)
			if err != nil {
				log.Fatalf("Stat failed for %s: %v", minioCheckKey, err)
			}
			fmt.Printf("Object %s exists: %v\n", minioCheckKey, exists)
		}
	},
}

func init() {
	minioCmd.Flags().StringVar(&minioCheckKey, "key", "", "object key to stat")
	rootCmd.AddCommand(minioCmd)
}
