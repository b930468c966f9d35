package main

import "vulnquery/cli"

func main() {
	cli.Execute()
}
