package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sproutlabs/sprout/runtime/internal/bridge"
	"github.com/sproutlabs/sprout/runtime/internal/infrastructure/config"
	"github.com/sproutlabs/sprout/runtime/internal/server"
)

func main() {
	modulePath := flag.String("module", "", "Compiled module to load at startup")
	layoutPath := flag.String("layout", "", "Layout table (JSON) for the module")
	flag.Parse()

	cfg := config.LoadOrDefault()

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	if *modulePath != "" {
		if err := loadModule(srv, *modulePath, *layoutPath); err != nil {
			log.Fatalf("Failed to load module: %v", err)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		log.Println("Shutting down gracefully...")
		if err := srv.Close(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	case err := <-errChan:
		log.Fatalf("Server error: %v", err)
	}
}

func loadModule(srv *server.Server, modulePath, layoutPath string) error {
	bytecode, err := os.ReadFile(modulePath)
	if err != nil {
		return err
	}
	var layout []bridge.Binding
	if layoutPath != "" {
		data, err := os.ReadFile(layoutPath)
		if err != nil {
			return err
		}
		layout, err = bridge.ParseLayout(data)
		if err != nil {
			return err
		}
	}
	return srv.Instance().Load(bytecode, layout, nil)
}
