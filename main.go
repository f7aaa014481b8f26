package main

import "github.com/daramaccoille/crashalert/internal/cli"

func main() {
	cli.Execute()
}
