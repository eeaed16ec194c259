package main

import "github.com/StinkyLord/sxsmanifest/cmd"

func main() {
	cmd.Execute()
}
