// Package main is the entry of the ndpcache tool.
package main

import "github.com/sarchlab/ndpsim/ndpcache/cmd"

func main() {
	cmd.Execute()
}
