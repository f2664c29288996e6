// SPDX-License-Identifier: MPL-2.0

// lambkin builds, packages and publishes AWS Lambda functions.
package main

import cmd "lambkin-cli/cmd/lambkin"

func main() {
	cmd.Execute()
}
