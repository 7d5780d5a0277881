package main

import "github.com/frahmantamala/payment-engine/cmd"

func main() {
	cmd.Execute()
}
