// bookdl-cli triggers a scrape run from the terminal: it queues the given
// author names on the backend and prints the per-author outcome, without
// going through the web UI.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bookdl/bookdl-go/internal/backend"
	"github.com/bookdl/bookdl-go/internal/config"
	"github.com/bookdl/bookdl-go/internal/util"
)

func main() {
	reverse := flag.Bool("reverse", false, "also try each name with the last word moved to the front")
	timeout := flag.Duration("timeout", 10*time.Minute, "how long to wait for the scrape to finish")
	flag.Parse()

	if flag.NArg() == 0 {
		log.Fatal("Usage: bookdl-cli [-reverse] \"author one\" \"author two\" ...")
	}

	// Load configuration from config.yml
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	client := backend.New(cfg.Backend.URL)
	input := util.ExpandAuthorInput(strings.Join(flag.Args(), ", "), *reverse)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	log.Printf("Scraping via backend at %s: %s", cfg.Backend.URL, input)
	outcome, err := client.ScrapeAuthors(ctx, input)
	if err != nil {
		log.Fatalf("Scrape failed: %v", err)
	}

	for _, res := range outcome.Results {
		slug := util.Slugify(res.Author)
		if res.Success {
			fmt.Printf("  %-30s (%s) %d books added\n", res.Author, slug, res.BooksAdded)
		} else {
			fmt.Printf("  %-30s (%s) FAILED: %s\n", res.Author, slug, res.Error)
		}
	}
	fmt.Printf("Processed %d authors, %d books added in total.\n",
		outcome.AuthorsProcessed, outcome.TotalBooksAdded)
}
