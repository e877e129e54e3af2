package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/apple/ml-spatial-librispeech/internal/config"
	"github.com/apple/ml-spatial-librispeech/internal/logging"
	"github.com/apple/ml-spatial-librispeech/internal/tui"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
)

func main() {
	configFlag := flag.String("config", "", "Path to config file")
	flag.Parse()

	settings, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(2)
	}

	// The alternate screen owns the terminal, so logs only go to the file.
	logger, cleanup, err := logging.New(logging.Options{
		Dir:   settings.LogDir,
		Level: settings.LogLevel,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(2)
	}

	sugar := logger.With(zap.String("run", ksuid.New().String())).Sugar()

	err = tui.Run(settings, sugar)
	cleanup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
