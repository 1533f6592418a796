package main

import "github.com/lumeo-sites/ms-go-entitlements/cmd"

func main() {
	cmd.Execute()
}
