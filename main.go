package main

import "github.com/pricehound/pricehound/cmd"

func main() {
	cmd.Execute()
}
