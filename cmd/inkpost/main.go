package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/eringen/inkpost"
	"github.com/eringen/inkpost/web"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "serve":
		if err := runServe(ctx); err != nil {
			log.Fatal(err)
		}
	case "web":
		if err := runWeb(ctx); err != nil {
			log.Fatal(err)
		}
	case "version":
		fmt.Printf("inkpost %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	app := inkpost.New(inkpost.ConfigFromEnv())
	defer app.Close()
	return app.Start(ctx)
}

func runWeb(ctx context.Context) error {
	srv := web.New(web.Config{
		Addr:         inkpost.EnvOr("WEB_ADDR", ":3000"),
		APIURL:       inkpost.EnvOr("API_URL", "http://localhost:4000"),
		SiteURL:      inkpost.EnvOr("SITE_URL", "http://localhost:3000"),
		SiteName:     inkpost.EnvOr("SITE_NAME", "Blog"),
		ImageOrigins: inkpost.FilterEmpty([]string{os.Getenv("PUBLIC_URL"), os.Getenv("S3_PUBLIC_URL")}),
	}, nil)
	return srv.Start(ctx)
}

func printUsage() {
	fmt.Println(`inkpost - A small blogging backend built with Go and Echo

Usage:
  inkpost <command>

Commands:
  serve     Run the JSON API (accounts, posts, uploads)
  web       Run the public site that renders posts from the API
  version   Print the inkpost version
  help      Show this help message

Configuration is read from the environment and an optional .env file.
SECRET is required for serve.`)
}
