package main

import "github.com/asdf-archive/asdfvalidate/asdfvalidate/cmd"

func main() {
	cmd.Execute()
}
