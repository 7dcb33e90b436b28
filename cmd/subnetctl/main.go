// Command subnetctl scores, validates, and rebalances Internet Computer
// subnet decentralization.
package main

import "github.com/icnetwork/decentralization/internal/cli"

func main() {
	cli.Execute()
}
