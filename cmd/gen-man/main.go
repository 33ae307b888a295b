package main

import (
	"flag"
	"fmt"
	"os"

	"azpim/internal/cmd"
)

func main() {
	var outputFile string
	flag.StringVar(&outputFile, "output", "", "output file for man page (default: stdout)")
	flag.Parse()

	if outputFile != "" {
		if err := cmd.WriteManPageToFile(outputFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing man page to file: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Man page written to %s\n", outputFile)
		return
	}

	content, err := cmd.GenerateManPage()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating man page: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(content)
}
