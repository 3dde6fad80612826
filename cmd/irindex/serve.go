package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/irindex/irindex/api"
)

func newServeCmd() *cobra.Command {
	var indexDir, addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a completed index over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			server := api.NewServer(indexDir)
			defer server.Close()
			defer server.Jobs().Stop()

			router := gin.Default()
			api.SetupRoutes(router, server)

			srv := &http.Server{
				Addr:           addr,
				Handler:        router,
				ReadTimeout:    30 * time.Second,
				WriteTimeout:   60 * time.Second,
				IdleTimeout:    120 * time.Second,
				MaxHeaderBytes: 1 << 20,
			}

			go func() {
				log.Printf("serving index %q on %s", indexDir, addr)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatalf("server failed: %v", err)
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit
			log.Println("shutting down")

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				log.Printf("server forced to shutdown: %v", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&indexDir, "index", "", "index directory to serve")
	cmd.Flags().StringVar(&addr, "addr", ":8080", "address to listen on")
	cmd.MarkFlagRequired("index")

	return cmd
}
