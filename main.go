package main

import "github.com/Mohsinsiddi/tokenfactory/cmd"

func main() {
	cmd.Execute()
}
