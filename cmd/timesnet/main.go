// Command timesnet fits TimesNet forecasters on CSV data, inspects the dominant periods of a series
// and reshapes raw trade exports into model ready tables.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
