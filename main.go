package main

import "github.com/AzielCF/az-smartfilter/cmd"

func main() {
	cmd.Execute()
}
