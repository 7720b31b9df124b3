/*
Package main is the entry point for the hybrid-rank CLI.

hybrid-rank ranks a product catalog for free-text queries by blending
similarity search, weighted business rules and learned brand preferences,
and explains every result.

Usage:

	hybrid-rank [command]

Available Commands:

	init        Create the config, default rules and catalog database
	import      Replace the product catalog from a JSON file
	rank        Rank catalog items for a free-text query
	like        Like an item to boost its brand
	tune        Set price sensitivity and rating weight
	reset       Reset learned preferences
	prefs       Show learned preferences
	rules       Inspect the scoring rules
	status      Show catalog, index, rules and learning status
	serve       Run the ranking HTTP API
	benchmark   Measure ranking latency against the catalog
	version     Show version information

Examples:

	# Set up and import a catalog
	hybrid-rank init --products products.json

	# Rank with explanations
	hybrid-rank rank laptop for coding under 1500 --explain
*/
package main

import (
	"fmt"
	"os"

	"github.com/khanglvm/hybrid-rank/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
