// Command taxa manages hierarchical categories and the subjects tagged with
// them.
package main

import "github.com/mesh-intelligence/taxa/internal/cli"

func main() {
	cli.Execute()
}
