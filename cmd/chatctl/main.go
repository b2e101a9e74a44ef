package main

import "portal-chat/internal/cli"

func main() {
	cli.Execute()
}
