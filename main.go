// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/fusionkit/fusionkit/cmd/fusionkit"

func main() {
	cmd.Execute()
}
