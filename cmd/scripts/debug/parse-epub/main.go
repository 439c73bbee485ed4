package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/yomu/pkg/epub"
)

func main() {
	log := logger.New()

	var opts struct {
		CoverOutput string `short:"o" long:"cover-output" description:"A path to output the cover image"`
	}

	args, err := flags.Parse(&opts)
	if err != nil {
		log.Err(err).Fatal("flags parse error")
	}

	if len(args) != 1 {
		fmt.Println("go run ./cmd/scripts/debug/parse-epub <path/to/file.epub>")
		os.Exit(1)
	}

	book, err := epub.Open(args[0])
	if err != nil {
		log.Err(err).Fatal("epub open error")
	}
	defer book.Close()

	cover, mimeType, err := book.Cover()
	if err != nil {
		log.Err(err).Fatal("epub cover error")
	}

	fmt.Printf("Title: %s\nSpine: %v\nHas Cover Data: %v\nCover Mime Type: %s\n", book.Title(), book.SpineIDs(), len(cover) > 0, mimeType)
	if opts.CoverOutput != "" && len(cover) > 0 {
		if err := os.WriteFile(opts.CoverOutput, cover, 0o644); err != nil {
			log.Err(err).Fatal("file write error")
		}
	}
}
