package main

import "github.com/sheikh-saqib/peer-payments/cmd/server/commands"

func main() {
	commands.Execute()
}
