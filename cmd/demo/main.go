// Demo of the storage engine: ingests sample entries into a throwaway
// directory and walks through dedup, pinning, eviction and search.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/clipd/clipd/internal/search"
	"github.com/clipd/clipd/internal/store/filestore"
)

func main() {
	fmt.Println("clipd storage demo")

	dir, err := os.MkdirTemp("", "clipd-demo-*")
	if err != nil {
		log.Fatalf("Failed to create demo directory: %v", err)
	}
	defer os.RemoveAll(dir)

	st, err := filestore.New(dir, 4)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	fmt.Printf("Storage: %s (ceiling 4)\n\n", dir)

	samples := []string{
		"Hello, World! This is the first entry in our history.",
		"package main\n\nimport \"fmt\"\n\nfunc main() {\n    fmt.Println(\"Hello, Go!\")\n}",
		"#!/bin/bash\necho \"Starting script...\"\nfor i in {1..5}; do\n    echo \"Processing $i\"\ndone",
		"SELECT * FROM users WHERE created_at > '2023-01-01' ORDER BY created_at DESC LIMIT 10;",
		"Lorem ipsum dolor sit amet, consectetur adipiscing elit.",
	}

	fmt.Println("Ingesting entries:")
	var firstID string
	for i, content := range samples {
		entry, err := st.Ingest(content)
		if err != nil {
			log.Fatalf("Ingest failed: %v", err)
		}
		if i == 1 {
			// Protect the Go snippet from eviction.
			if _, err := st.TogglePin(entry.ID); err != nil {
				log.Fatalf("Pin failed: %v", err)
			}
			fmt.Printf("  %d. %s (pinned)\n", i+1, entry.Preview)
			firstID = entry.ID
			continue
		}
		fmt.Printf("  %d. %s\n", i+1, entry.Preview)
	}

	fmt.Println("\nRe-ingesting the SQL query (dedup moves it to the front):")
	if _, err := st.Ingest(samples[3]); err != nil {
		log.Fatalf("Ingest failed: %v", err)
	}
	for i, e := range st.List(0) {
		pin := "  "
		if e.Pinned {
			pin = "* "
		}
		fmt.Printf("  %s%d. %s\n", pin, i, e.Preview)
	}

	stats := st.Stats()
	fmt.Printf("\nStats: %d entries (%d pinned), ceiling %d\n",
		stats.Count, stats.PinnedCount, stats.MaxEntries)

	fmt.Println("\nSearching for \"hello\":")
	results, err := search.Run(context.Background(), "hello", st.List(0), st)
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}
	for _, r := range results {
		kind := "preview"
		if r.Kind == search.MatchContent {
			kind = "content"
		}
		fmt.Printf("  [%s, score %d] %s\n", kind, r.Score, r.Entry.Preview)
	}

	fmt.Println("\nSimulating index loss and recovering:")
	if err := os.Remove(dir + "/index.json"); err != nil {
		log.Fatalf("Remove index: %v", err)
	}
	n, err := st.Recover()
	if err != nil {
		log.Fatalf("Recover failed: %v", err)
	}
	fmt.Printf("  Rebuilt %d entries from content files", n)
	if c, err := st.LoadContent(firstID); err == nil {
		fmt.Printf("; pinned snippet intact (%d bytes)\n", len(c))
	} else {
		fmt.Println()
	}
}
